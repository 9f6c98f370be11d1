package sim

import (
	"log"
	"reflect"
	"sync"
)

// A SerialEngine runs events one at a time on the calling goroutine.
type SerialEngine struct {
	HookableBase

	queue *EventQueue

	mu      sync.Mutex
	resumed *sync.Cond
	now     VTimeInSec
	paused  bool

	running     sync.Mutex
	endHandlers []SimulationEndHandler
}

// NewSerialEngine creates a SerialEngine with an empty queue at time 0.
func NewSerialEngine() *SerialEngine {
	e := &SerialEngine{queue: NewEventQueue()}
	e.resumed = sync.NewCond(&e.mu)

	return e
}

// Schedule queues an event. Scheduling an event earlier than the current
// time panics.
func (e *SerialEngine) Schedule(evt Event) {
	now := e.CurrentTime()
	if evt.Time() < now {
		log.Panicf("cannot schedule %s at %.10f, the engine is at %.10f",
			reflect.TypeOf(evt), evt.Time(), now)
	}

	e.queue.Push(evt)
}

// Run handles events until the queue is empty or a handler fails. The
// handler error is returned as is.
func (e *SerialEngine) Run() error {
	e.running.Lock()
	defer e.running.Unlock()

	for {
		evt := e.advance()
		if evt == nil {
			return nil
		}

		ctx := HookCtx{
			Domain: e,
			Now:    evt.Time(),
			Pos:    HookPosBeforeEvent,
			Item:   evt,
		}
		e.InvokeHook(ctx)

		err := evt.Handler().Handle(evt)

		ctx.Pos = HookPosAfterEvent
		e.InvokeHook(ctx)

		if err != nil {
			return err
		}
	}
}

// advance waits while the engine is paused, then takes the next event and
// moves the clock to it.
func (e *SerialEngine) advance() Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	for e.paused {
		e.resumed.Wait()
	}

	evt := e.queue.Pop()
	if evt != nil {
		e.now = evt.Time()
	}

	return evt
}

// Pause stops Run before the next event. The event being handled finishes.
func (e *SerialEngine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

// Continue lets a paused Run go on.
func (e *SerialEngine) Continue() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()

	e.resumed.Broadcast()
}

// CurrentTime returns the time of the event being handled, or of the last
// handled event.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.now
}

// RegisterSimulationEndHandler adds a handler that Finished calls.
func (e *SerialEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.endHandlers = append(e.endHandlers, handler)
}

// Finished calls the simulation end handlers in registration order.
func (e *SerialEngine) Finished() {
	now := e.CurrentTime()
	for _, h := range e.endHandlers {
		h.Handle(now)
	}
}
