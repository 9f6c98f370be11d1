package mux

import (
	"fmt"

	"github.com/sarchlab/portmux/network"
	"github.com/sarchlab/portmux/sim"
)

// mailbox holds the packets that arrived at a port but were not read yet.
// It is only touched under the mux lock and its buffer never carries hooks.
// Mailbox activity is observed through the mux hook positions, which fire
// after the lock is released.
type mailbox struct {
	buf sim.Buffer
}

func newMailbox(muxName string, port int) *mailbox {
	name := fmt.Sprintf("%s.Port[%d].Mailbox", muxName, port)

	return &mailbox{
		buf: sim.NewBuffer(name, sim.Unbounded),
	}
}

func (mb *mailbox) push(pkt *network.Packet) {
	mb.buf.Push(pkt)
}

// pop returns nil when the mailbox is empty.
func (mb *mailbox) pop() *network.Packet {
	item := mb.buf.Pop()
	if item == nil {
		return nil
	}

	return item.(*network.Packet)
}

func (mb *mailbox) size() int {
	return mb.buf.Size()
}

func (mb *mailbox) drain() []*network.Packet {
	pkts := make([]*network.Packet, 0, mb.size())
	for pkt := mb.pop(); pkt != nil; pkt = mb.pop() {
		pkts = append(pkts, pkt)
	}

	return pkts
}
