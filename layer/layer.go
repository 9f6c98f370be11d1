// Package layer defines the contract shared by adjacent protocol layers in
// the simulated network stack.
//
// Layers talk to each other in two ways. Data moves with direct calls
// (send downward, read upward). Events move with indications: a layer tells
// its neighbor that something happened and the neighbor decides whether to
// act on it.
package layer

import "fmt"

// Status is the kind of event carried by an indication.
type Status int

const (
	// ReadyToSend tells an upper layer that the lower layer can accept more
	// outbound traffic.
	ReadyToSend Status = iota + 1

	// PacketAvailable tells an upper layer that a packet is waiting to be
	// read from the indicating layer.
	PacketAvailable
)

func (s Status) String() string {
	switch s {
	case ReadyToSend:
		return "ReadyToSend"
	case PacketAvailable:
		return "PacketAvailable"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}
