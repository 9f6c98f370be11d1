package sim

import (
	"log"
	"reflect"
)

// LogHookBase is embedded by hooks that write into a logger.
type LogHookBase struct {
	*log.Logger
}

// EventLogger logs every event before it is handled, one line per event.
type EventLogger struct {
	LogHookBase
}

// NewEventLogger creates an EventLogger writing into the logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	return &EventLogger{LogHookBase{Logger: logger}}
}

// Func logs the event time, its type and the handler name if it has one.
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	line := reflect.TypeOf(evt).String()
	if named, ok := evt.Handler().(Named); ok {
		line += " -> " + named.Name()
	}

	h.Printf("%.10f, %s", evt.Time(), line)
}
