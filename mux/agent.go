package mux

import (
	"net/netip"

	"github.com/pkg/errors"
	"github.com/sarchlab/portmux/layer"
	"github.com/sarchlab/portmux/network"
)

type outbound struct {
	dst    netip.Addr
	length int
	seg    *Segment
}

// An Agent is a minimal endpoint. It numbers outgoing segments, holds them
// while the lower layer cannot take them, and reads every packet it is told
// about.
type Agent struct {
	name string
	port int

	// Addr is used as the source address of outgoing segments.
	Addr netip.Addr

	// OnReceive, if set, is called with every packet the agent reads.
	OnReceive func(pkt *network.Packet)

	lower       Lower
	nextSeq     int
	outbox      []outbound
	numSent     int
	numReceived int
}

// NewAgent creates an Agent for the port. It still needs to be attached.
func NewAgent(name string, port int) *Agent {
	return &Agent{
		name: name,
		port: port,
	}
}

// Name returns the name of the agent.
func (a *Agent) Name() string {
	return a.name
}

// Port returns the local port of the agent.
func (a *Agent) Port() int {
	return a.port
}

// AttachLower records the layer the agent sends through.
func (a *Agent) AttachLower(l Lower) {
	a.lower = l
}

// Indicate reacts to events from the lower layer.
func (a *Agent) Indicate(status layer.Status, from Lower) {
	if from == nil {
		from = a.lower
	}

	switch status {
	case layer.PacketAvailable:
		a.receive(from)
	case layer.ReadyToSend:
		_ = a.flush()
	}
}

func (a *Agent) receive(from Lower) {
	pkt, err := from.Read(a.port)
	if err != nil {
		return
	}

	a.numReceived++

	if a.OnReceive != nil {
		a.OnReceive(pkt)
	}
}

// Send queues a segment to the destination and sends as many queued
// segments as the lower layer accepts.
func (a *Agent) Send(
	dst netip.Addr,
	dstPort int,
	length int,
	payload any,
) error {
	if a.lower == nil {
		return errors.Wrapf(ErrAgentNotAttached, "%s", a.name)
	}

	seg := &Segment{
		SrcPort: a.port,
		DstPort: dstPort,
		Seq:     a.nextSeq,
		Payload: payload,
	}
	a.nextSeq++

	a.outbox = append(a.outbox, outbound{dst: dst, length: length, seg: seg})

	return a.flush()
}

func (a *Agent) flush() error {
	if a.lower == nil {
		return nil
	}

	for len(a.outbox) > 0 {
		o := a.outbox[0]
		if !a.lower.CanSend(o.dst, o.length) {
			return nil
		}

		err := a.lower.Send(a.Addr, o.dst, o.length, o.seg, a.port)
		if err != nil {
			return err
		}

		a.outbox[0] = outbound{}
		a.outbox = a.outbox[1:]
		a.numSent++
	}

	a.outbox = nil

	return nil
}

// NumSent returns the number of segments handed to the lower layer.
func (a *Agent) NumSent() int {
	return a.numSent
}

// NumReceived returns the number of packets read.
func (a *Agent) NumReceived() int {
	return a.numReceived
}

// NumQueued returns the number of segments waiting to be sent.
func (a *Agent) NumQueued() int {
	return len(a.outbox)
}
