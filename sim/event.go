package sim

// VTimeInSec is a point in simulated time, in seconds.
type VTimeInSec float64

// An Event is something that happens to a Handler at a point in simulated
// time.
type Event interface {
	Time() VTimeInSec
	Handler() Handler

	// IsSecondary events run after every primary event of the same time.
	IsSecondary() bool
}

// A Handler owns the state that its events change.
type Handler interface {
	Handle(e Event) error
}

// EventBase carries the fields every event needs. Embed it in concrete
// event types.
type EventBase struct {
	ID string

	at        VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates a primary EventBase.
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	return &EventBase{
		ID:      GetIDGenerator().Generate(),
		at:      t,
		handler: handler,
	}
}

// NewSecondaryEventBase creates an EventBase that runs after all primary
// events scheduled for the same time.
func NewSecondaryEventBase(t VTimeInSec, handler Handler) *EventBase {
	e := NewEventBase(t, handler)
	e.secondary = true

	return e
}

func (e EventBase) Time() VTimeInSec { return e.at }

func (e EventBase) Handler() Handler { return e.handler }

func (e EventBase) IsSecondary() bool { return e.secondary }
