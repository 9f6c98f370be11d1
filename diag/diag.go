// Package diag receives the diagnostic reports of simulated protocol layers.
//
// A report is either fatal or a warning. Fatal reports describe wiring or
// programming errors after which the simulation result is meaningless, so
// the default sink ends the run. Warnings describe traffic that was dropped
// and are only logged.
package diag

import (
	"log"
	"os"
	"sync"

	"github.com/tebeka/atexit"
)

// Sink accepts diagnostic reports.
type Sink interface {
	// Fatal reports an unrecoverable condition. Sinks are expected to
	// terminate the run.
	Fatal(msg string)

	// Warning reports a condition that was handled by dropping work.
	Warning(msg string)
}

// LogSink writes reports to a logger and exits the process on fatal
// reports. Exit handlers registered with atexit run before the process
// terminates.
type LogSink struct {
	logger *log.Logger
	exit   func(code int)
}

// NewLogSink creates a LogSink that writes to the given logger. A nil logger
// writes to stderr.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	return &LogSink{
		logger: logger,
		exit:   atexit.Exit,
	}
}

// Fatal logs the message and ends the run.
func (s *LogSink) Fatal(msg string) {
	s.logger.Printf("fatal: %s", msg)
	s.exit(1)
}

// Warning logs the message.
func (s *LogSink) Warning(msg string) {
	s.logger.Printf("warning: %s", msg)
}

// Recorder keeps reports in memory and never ends the run. It is meant for
// tests and for callers that handle fatal conditions through returned
// errors.
type Recorder struct {
	lock     sync.Mutex
	fatals   []string
	warnings []string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Fatal records a fatal report.
func (r *Recorder) Fatal(msg string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.fatals = append(r.fatals, msg)
}

// Warning records a warning.
func (r *Recorder) Warning(msg string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.warnings = append(r.warnings, msg)
}

// Fatals returns a copy of the fatal reports in arrival order.
func (r *Recorder) Fatals() []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]string(nil), r.fatals...)
}

// Warnings returns a copy of the warnings in arrival order.
func (r *Recorder) Warnings() []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]string(nil), r.warnings...)
}

// Reset drops all recorded reports.
func (r *Recorder) Reset() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.fatals = nil
	r.warnings = nil
}
