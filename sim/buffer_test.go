package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("BufferImpl", func() {
	var (
		mockCtrl *gomock.Controller
		buf      Buffer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		buf = NewBuffer("Buf", 2)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should allow push and pop", func() {
		Expect(buf.Capacity()).To(Equal(2))
		Expect(buf.CanPush()).To(BeTrue())

		buf.Push(1)
		Expect(buf.CanPush()).To(BeTrue())
		Expect(buf.Size()).To(Equal(1))

		buf.Push(2)
		Expect(buf.CanPush()).To(BeFalse())
		Expect(buf.Size()).To(Equal(2))
		Expect(func() {
			buf.Push(3)
		}).To(Panic())

		Expect(buf.Peek()).To(Equal(1))
		Expect(buf.Pop()).To(Equal(1))
		Expect(buf.Size()).To(Equal(1))
		Expect(buf.Peek()).To(Equal(2))
		Expect(buf.Pop()).To(Equal(2))
		Expect(buf.Size()).To(Equal(0))
		Expect(buf.Peek()).To(BeNil())
		Expect(buf.Pop()).To(BeNil())
	})

	It("should clear", func() {
		buf.Push(2)
		Expect(buf.Size()).To(Equal(1))

		buf.Clear()

		Expect(buf.Size()).To(Equal(0))
		Expect(buf.Peek()).To(BeNil())
	})

	It("should never fill up when unbounded", func() {
		unbounded := NewBuffer("Unbounded", Unbounded)

		for i := 0; i < 1000; i++ {
			Expect(unbounded.CanPush()).To(BeTrue())
			unbounded.Push(i)
		}

		Expect(unbounded.Size()).To(Equal(1000))
		Expect(unbounded.Pop()).To(Equal(0))
	})

	It("should invoke hooks on push and pop", func() {
		hook := NewMockHook(mockCtrl)
		buf.AcceptHook(hook)

		push := hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosBufPush))
			Expect(ctx.Item).To(Equal(7))
		})
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosBufPop))
			Expect(ctx.Item).To(Equal(7))
		}).After(push)

		buf.Push(7)
		buf.Pop()
	})

	It("should panic on empty name", func() {
		Expect(func() { NewBuffer("", 1) }).To(Panic())
	})
})

var _ = Describe("BufferLevel", func() {
	It("should copy the fill state", func() {
		buf := NewBuffer("Buf", 4)
		buf.Push(1)

		level := LevelOf(buf)
		buf.Push(2)

		Expect(level).To(Equal(BufferLevel{Buffer: "Buf", Level: 1, Cap: 4}))
		Expect(level.Percent()).To(Equal(0.25))
	})

	It("should report unbounded buffers as empty", func() {
		buf := NewBuffer("Buf", Unbounded)
		buf.Push(1)

		Expect(LevelOf(buf).Percent()).To(BeZero())
	})
})
