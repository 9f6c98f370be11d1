package loopback

import (
	"fmt"
	"log"
	"net/netip"
	"reflect"
	"sort"
	"sync"

	"github.com/sarchlab/portmux/layer"
	"github.com/sarchlab/portmux/network"
	"github.com/sarchlab/portmux/sim"
)

type readyEvent struct {
	*sim.EventBase
}

// A Host is the network service of one address. It keeps one inbound queue
// per protocol and indicates arrivals to the protocol attached on top.
// The queues stay inside the host; other goroutines see them through
// BufferLevels.
type Host struct {
	name   string
	addr   netip.Addr
	fabric *Fabric

	mu      sync.Mutex
	uppers  map[network.Protocol]network.Upper
	inbound map[network.Protocol]sim.Buffer

	readyPending bool
	numSent      int
	numReceived  int
	numDropped   int
}

// Name returns the name of the host.
func (h *Host) Name() string {
	return h.name
}

// Addr returns the address of the host.
func (h *Host) Addr() netip.Addr {
	return h.addr
}

// Attach runs the upper protocol on top of this host. Packets of the
// protocol are indicated to the upper protocol from now on.
func (h *Host) Attach(upper network.Upper, proto network.Protocol) {
	h.mu.Lock()
	h.uppers[proto] = upper
	if _, found := h.inbound[proto]; !found {
		h.inbound[proto] = sim.NewBuffer(
			fmt.Sprintf("%s.Inbound[%s]", h.name, proto), sim.Unbounded)
	}
	h.mu.Unlock()

	upper.AttachLower(h)
}

// Send puts a packet on the fabric. Once the packet has left, the upper
// protocols are told they can send again.
func (h *Host) Send(
	src, dst netip.Addr,
	length int,
	data any,
	proto network.Protocol,
) {
	pkt := network.NewPacket(src, dst, length, data, proto)
	h.fabric.transmit(pkt)

	h.mu.Lock()
	h.numSent++
	scheduleReady := !h.readyPending
	h.readyPending = true
	h.mu.Unlock()

	if !scheduleReady {
		return
	}

	now := h.fabric.engine.CurrentTime()
	h.fabric.engine.Schedule(readyEvent{
		EventBase: sim.NewSecondaryEventBase(now, h),
	})
}

// Read takes the oldest packet received for the protocol.
func (h *Host) Read(proto network.Protocol) *network.Packet {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf, found := h.inbound[proto]
	if !found {
		return nil
	}

	item := buf.Pop()
	if item == nil {
		return nil
	}

	return item.(*network.Packet)
}

// Handle tells the upper protocols that the host can send again.
func (h *Host) Handle(e sim.Event) error {
	switch e := e.(type) {
	case readyEvent:
		h.mu.Lock()
		h.readyPending = false
		h.mu.Unlock()

		for _, upper := range h.uppersInOrder() {
			upper.Indicate(layer.ReadyToSend, h)
		}
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

func (h *Host) uppersInOrder() []network.Upper {
	h.mu.Lock()
	defer h.mu.Unlock()

	protos := make([]int, 0, len(h.uppers))
	for p := range h.uppers {
		protos = append(protos, int(p))
	}

	sort.Ints(protos)

	uppers := make([]network.Upper, 0, len(protos))
	for _, p := range protos {
		uppers = append(uppers, h.uppers[network.Protocol(p)])
	}

	return uppers
}

func (h *Host) receive(pkt *network.Packet) {
	h.mu.Lock()
	upper, found := h.uppers[pkt.Protocol]
	if !found {
		h.numDropped++
		h.mu.Unlock()

		h.fabric.sink.Warning(fmt.Sprintf(
			"%s: no protocol %s attached, dropping packet %s",
			h.name, pkt.Protocol, pkt.ID))

		return
	}

	h.inbound[pkt.Protocol].Push(pkt)
	h.numReceived++
	h.mu.Unlock()

	upper.Indicate(layer.PacketAvailable, h)
}

// BufferLevels returns the fill state of the inbound queues in protocol
// order.
func (h *Host) BufferLevels() []sim.BufferLevel {
	h.mu.Lock()
	defer h.mu.Unlock()

	protos := make([]int, 0, len(h.inbound))
	for p := range h.inbound {
		protos = append(protos, int(p))
	}

	sort.Ints(protos)

	levels := make([]sim.BufferLevel, 0, len(protos))
	for _, p := range protos {
		levels = append(levels, sim.LevelOf(h.inbound[network.Protocol(p)]))
	}

	return levels
}

// NumSent returns the number of packets put on the fabric.
func (h *Host) NumSent() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.numSent
}

// NumReceived returns the number of packets accepted from the fabric.
func (h *Host) NumReceived() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.numReceived
}

// NumDropped returns the number of packets for protocols not attached.
func (h *Host) NumDropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.numDropped
}
