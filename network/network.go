// Package network describes the connectionless network layer that transport
// protocols in the simulator run on top of.
package network

import (
	"fmt"
	"net/netip"

	"github.com/sarchlab/portmux/layer"
	"github.com/sarchlab/portmux/sim"
)

// Protocol identifies the upper-layer protocol a packet belongs to.
type Protocol int

// Protocol numbers carried in the network header.
const (
	ProtocolICMP  Protocol = 1
	ProtocolTCP   Protocol = 6
	ProtocolUDP   Protocol = 17
	ProtocolMPTCP Protocol = 262
)

func (p Protocol) String() string {
	switch p {
	case ProtocolICMP:
		return "ICMP"
	case ProtocolTCP:
		return "TCP"
	case ProtocolUDP:
		return "UDP"
	case ProtocolMPTCP:
		return "MPTCP"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// A Packet is a network-layer envelope. Data is owned by the upper-layer
// protocol and is never inspected by the network layer.
type Packet struct {
	ID       string
	Src, Dst netip.Addr
	Length   int
	Protocol Protocol
	Data     any
}

// NewPacket creates a packet with a fresh ID.
func NewPacket(
	src, dst netip.Addr,
	length int,
	data any,
	proto Protocol,
) *Packet {
	return &Packet{
		ID:       sim.GetIDGenerator().Generate(),
		Src:      src,
		Dst:      dst,
		Length:   length,
		Protocol: proto,
		Data:     data,
	}
}

// Service is a connectionless network service.
type Service interface {
	// Send hands a packet to the network. There is no delivery guarantee.
	Send(src, dst netip.Addr, length int, data any, proto Protocol)

	// Read removes and returns the oldest packet received for the given
	// protocol, or nil if there is none.
	Read(proto Protocol) *Packet
}

// Upper is a protocol that runs directly on top of a Service.
type Upper interface {
	// AttachLower tells the protocol which Service it runs on.
	AttachLower(s Service)

	// Indicate notifies the protocol about an event at the Service.
	Indicate(status layer.Status, from Service)
}
