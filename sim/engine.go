package sim

// TimeTeller reports the simulated time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler accepts events to be handled at their own time.
type EventScheduler interface {
	Schedule(e Event)
}

// A SimulationEndHandler runs once the demo or test is done with the engine,
// for example to flush a recorder.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// An Engine drives the simulation: it hands scheduled events to their
// handlers in time order and can be paused from another goroutine.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run handles events until none is left and returns the first handler
	// error.
	Run() error

	// Pause stops Run before the next event.
	Pause()

	// Continue resumes a paused Run.
	Continue()

	// RegisterSimulationEndHandler adds a handler for Finished.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished calls the end handlers in registration order.
	Finished()
}
