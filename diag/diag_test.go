package diag

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LogSink", func() {
	var (
		out      *bytes.Buffer
		sink     *LogSink
		exitCode int
	)

	BeforeEach(func() {
		out = new(bytes.Buffer)
		exitCode = -1
		sink = NewLogSink(log.New(out, "", 0))
		sink.exit = func(code int) { exitCode = code }
	})

	It("should log warnings and keep running", func() {
		sink.Warning("packet dropped")

		Expect(out.String()).To(Equal("warning: packet dropped\n"))
		Expect(exitCode).To(Equal(-1))
	})

	It("should log fatal reports and exit", func() {
		sink.Fatal("port in use")

		Expect(out.String()).To(Equal("fatal: port in use\n"))
		Expect(exitCode).To(Equal(1))
	})

	It("should default to stderr", func() {
		Expect(NewLogSink(nil).logger).NotTo(BeNil())
	})
})

var _ = Describe("Recorder", func() {
	It("should keep reports in order", func() {
		r := NewRecorder()

		r.Warning("w1")
		r.Fatal("f1")
		r.Warning("w2")

		Expect(r.Warnings()).To(Equal([]string{"w1", "w2"}))
		Expect(r.Fatals()).To(Equal([]string{"f1"}))

		r.Reset()

		Expect(r.Warnings()).To(BeEmpty())
		Expect(r.Fatals()).To(BeEmpty())
	})

	It("should satisfy Sink", func() {
		var s Sink = NewRecorder()
		s.Warning("ok")
		Expect(s.(*Recorder).Warnings()).To(HaveLen(1))
	})
})
