package mux

import "github.com/pkg/errors"

// Errors returned by the demultiplexer. They are wrapped with the name of
// the demultiplexer and the port involved; use errors.Is to match them.
var (
	ErrInvalidPort     = errors.New("invalid port number")
	ErrPortInUse       = errors.New("only one agent can be attached per port")
	ErrPortNotAttached = errors.New("no agent attached to port")
	ErrMailboxEmpty    = errors.New("no packet waiting at port")
	ErrNoLowerLayer    = errors.New("no network service attached")
)

// ErrAgentNotAttached is returned when an Agent sends before being bound to
// a port.
var ErrAgentNotAttached = errors.New("agent is not attached to a demultiplexer")
