// Package mux provides a port-based demultiplexer that sits between one
// connectionless network service and many transport endpoints.
//
// Each endpoint is bound to exactly one port. Inbound packets are queued in
// the mailbox of their destination port and only the owning endpoint is
// notified. Outbound segments are forwarded to the network service tagged
// with the demultiplexer's protocol number.
package mux

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/pkg/errors"
	"github.com/sarchlab/portmux/diag"
	"github.com/sarchlab/portmux/layer"
	"github.com/sarchlab/portmux/network"
	"github.com/sarchlab/portmux/sim"
)

// Lower is the view of the demultiplexer that endpoints use.
type Lower interface {
	// CanSend reports whether a segment can be sent now.
	CanSend(dst netip.Addr, length int) bool

	// Send forwards a segment to the network.
	Send(src, dst netip.Addr, length int, data any, port int) error

	// Read takes the oldest packet waiting at the port.
	Read(port int) (*network.Packet, error)
}

// Endpoint is a transport endpoint that can be bound to a port.
type Endpoint interface {
	// AttachLower is called once the endpoint is bound.
	AttachLower(l Lower)

	// Indicate notifies the endpoint about an event at the lower layer.
	Indicate(status layer.Status, from Lower)
}

// PortAddressed is implemented by payloads that name a destination port.
type PortAddressed interface {
	DestinationPort() int
}

// A Segment is the payload the demultiplexer expects inside network packets.
type Segment struct {
	SrcPort int
	DstPort int
	Seq     int
	Payload any
}

// DestinationPort returns the port the segment is addressed to.
func (s *Segment) DestinationPort() int {
	return s.DstPort
}

type binding struct {
	port     int
	endpoint Endpoint
	mailbox  *mailbox
}

// Mux demultiplexes packets of one protocol by destination port.
type Mux struct {
	sim.HookableBase

	name     string
	engine   sim.TimeTeller
	sink     diag.Sink
	protocol network.Protocol
	addr     netip.Addr

	lock        sync.Mutex
	lower       network.Service
	ports       map[int]*binding
	order       []int
	packetCount uint64
}

// Name returns the name of the demultiplexer.
func (m *Mux) Name() string {
	return m.name
}

// Protocol returns the protocol number used towards the network service.
func (m *Mux) Protocol() network.Protocol {
	return m.protocol
}

// Attach binds an endpoint to a port. A port can only be bound once; binding
// an occupied port is fatal and keeps the existing binding.
func (m *Mux) Attach(ep Endpoint, port int) error {
	if port < 0 {
		return m.fatal(errors.Wrapf(ErrInvalidPort, "%s: port %d", m.name, port))
	}

	m.lock.Lock()
	if _, found := m.ports[port]; found {
		m.lock.Unlock()
		return m.fatal(errors.Wrapf(ErrPortInUse, "%s: port %d", m.name, port))
	}

	m.ports[port] = &binding{
		port:     port,
		endpoint: ep,
		mailbox:  newMailbox(m.name, port),
	}
	m.order = append(m.order, port)
	m.lock.Unlock()

	ep.AttachLower(m)

	return nil
}

// AttachLower sets the network service. Calling it again replaces the
// previous service.
func (m *Mux) AttachLower(s network.Service) {
	m.lock.Lock()
	m.lower = s
	m.lock.Unlock()
}

// Detach unbinds the endpoint at the port. Packets still waiting in the
// mailbox are dropped.
func (m *Mux) Detach(port int) error {
	m.lock.Lock()
	b, found := m.ports[port]
	if !found {
		m.lock.Unlock()
		return m.fatal(
			errors.Wrapf(ErrPortNotAttached, "%s: detach port %d", m.name, port))
	}

	delete(m.ports, port)
	m.removeFromOrder(port)
	dropped := b.mailbox.drain()
	m.lock.Unlock()

	for _, pkt := range dropped {
		m.sink.Warning(fmt.Sprintf(
			"%s: dropping packet %s pending at detached port %d",
			m.name, pkt.ID, port))
		m.invokeHook(HookPosMuxDrop, pkt, DropDetail{
			Port:   port,
			Reason: DropReasonDetached,
		})
	}

	return nil
}

func (m *Mux) removeFromOrder(port int) {
	for i, p := range m.order {
		if p == port {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// Indicate handles an event signaled by the network service.
func (m *Mux) Indicate(status layer.Status, from network.Service) {
	switch status {
	case layer.ReadyToSend:
		m.broadcastReadyToSend()
	case layer.PacketAvailable:
		m.receive(from)
	default:
		m.sink.Warning(fmt.Sprintf(
			"%s: ignoring unknown indication %s", m.name, status))
	}
}

func (m *Mux) broadcastReadyToSend() {
	m.lock.Lock()
	endpoints := make([]Endpoint, 0, len(m.order))
	for _, port := range m.order {
		endpoints = append(endpoints, m.ports[port].endpoint)
	}
	m.lock.Unlock()

	for _, ep := range endpoints {
		ep.Indicate(layer.ReadyToSend, m)
	}
}

func (m *Mux) receive(from network.Service) {
	if from == nil {
		m.lock.Lock()
		from = m.lower
		m.lock.Unlock()
	}

	if from == nil {
		_ = m.fatal(errors.Wrapf(ErrNoLowerLayer,
			"%s: packet indicated without a network service", m.name))
		return
	}

	pkt := from.Read(m.protocol)
	if pkt == nil {
		m.sink.Warning(fmt.Sprintf(
			"%s: packet indicated but none was available", m.name))
		return
	}

	port, ok := m.destinationPort(pkt)
	if !ok {
		return
	}

	m.lock.Lock()
	b, found := m.ports[port]
	if !found {
		m.lock.Unlock()
		m.sink.Warning(fmt.Sprintf(
			"%s: packet %s sent to port %d that no one is listening to",
			m.name, pkt.ID, port))
		m.invokeHook(HookPosMuxDrop, pkt, DropDetail{
			Port:   port,
			Reason: DropReasonNoListener,
		})

		return
	}

	b.mailbox.push(pkt)
	ep := b.endpoint
	m.lock.Unlock()

	m.invokeHook(HookPosMuxDeliver, pkt, DeliverDetail{Port: port})

	ep.Indicate(layer.PacketAvailable, m)
}

// destinationPort validates the payload and extracts the port. A payload of
// an unexpected type only produces a warning as long as a port can still be
// found on it.
func (m *Mux) destinationPort(pkt *network.Packet) (int, bool) {
	if _, ok := pkt.Data.(*Segment); !ok {
		m.sink.Warning(fmt.Sprintf(
			"%s: packet %s passed with wrong packet content %T",
			m.name, pkt.ID, pkt.Data))
	}

	addressed, ok := pkt.Data.(PortAddressed)
	if !ok {
		m.sink.Warning(fmt.Sprintf(
			"%s: packet %s has no destination port, dropping",
			m.name, pkt.ID))
		m.invokeHook(HookPosMuxDrop, pkt, DropDetail{
			Port:   -1,
			Reason: DropReasonMalformed,
		})

		return 0, false
	}

	return addressed.DestinationPort(), true
}

// CanSend always returns true. The demultiplexer never applies backpressure.
func (m *Mux) CanSend(_ netip.Addr, _ int) bool {
	return true
}

// Send forwards data to the network service.
func (m *Mux) Send(
	src, dst netip.Addr,
	length int,
	data any,
	port int,
) error {
	m.lock.Lock()
	lower := m.lower
	if lower == nil {
		m.lock.Unlock()
		return m.fatal(errors.Wrapf(ErrNoLowerLayer,
			"%s: send from port %d", m.name, port))
	}

	m.packetCount++
	count := m.packetCount
	m.lock.Unlock()

	lower.Send(src, dst, length, data, m.protocol)

	seq := -1
	if seg, ok := data.(*Segment); ok {
		seq = seg.Seq
	}

	m.invokeHook(HookPosMuxSend, data, SendDetail{
		Src:   src,
		Dst:   dst,
		Port:  port,
		Seq:   seq,
		Count: count,
	})

	return nil
}

// Read removes and returns the oldest packet waiting at the port. Reading a
// port without an endpoint is fatal. Reading an empty mailbox returns
// ErrMailboxEmpty.
func (m *Mux) Read(port int) (*network.Packet, error) {
	m.lock.Lock()
	b, found := m.ports[port]
	if !found {
		m.lock.Unlock()
		return nil, m.fatal(errors.Wrapf(ErrPortNotAttached,
			"%s: someone who is not attached is reading from port %d",
			m.name, port))
	}

	pkt := b.mailbox.pop()
	m.lock.Unlock()

	if pkt == nil {
		return nil, errors.Wrapf(ErrMailboxEmpty, "%s: port %d", m.name, port)
	}

	m.invokeHook(HookPosMuxRead, pkt, DeliverDetail{Port: port})

	return pkt, nil
}

// PacketCount returns the number of packets sent through this
// demultiplexer.
func (m *Mux) PacketCount() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.packetCount
}

// Ports returns the bound ports in the order they were attached.
func (m *Mux) Ports() []int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return append([]int(nil), m.order...)
}

// Pending returns the number of packets waiting at the port. Ports without
// an endpoint have no packets.
func (m *Mux) Pending(port int) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	b, found := m.ports[port]
	if !found {
		return 0
	}

	return b.mailbox.size()
}

// PortStatus is a snapshot of one binding.
type PortStatus struct {
	Port     int    `json:"port"`
	Endpoint string `json:"endpoint"`
	Pending  int    `json:"pending"`
}

// Status returns a snapshot of all bindings in attach order.
func (m *Mux) Status() []PortStatus {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.statusLocked()
}

func (m *Mux) statusLocked() []PortStatus {
	status := make([]PortStatus, 0, len(m.order))
	for _, port := range m.order {
		b := m.ports[port]

		name := fmt.Sprintf("%T", b.endpoint)
		if named, ok := b.endpoint.(sim.Named); ok {
			name = named.Name()
		}

		status = append(status, PortStatus{
			Port:     port,
			Endpoint: name,
			Pending:  b.mailbox.size(),
		})
	}

	return status
}

// Snapshot is a copy of the demultiplexer state taken under its lock.
type Snapshot struct {
	Name        string       `json:"name"`
	Protocol    string       `json:"protocol"`
	Addr        string       `json:"addr"`
	HasLower    bool         `json:"has_lower"`
	PacketCount uint64       `json:"packet_count"`
	Ports       []PortStatus `json:"ports"`
}

// Snapshot copies the state that can be inspected while the simulation
// runs on another goroutine.
func (m *Mux) Snapshot() Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()

	return Snapshot{
		Name:        m.name,
		Protocol:    m.protocol.String(),
		Addr:        m.addr.String(),
		HasLower:    m.lower != nil,
		PacketCount: m.packetCount,
		Ports:       m.statusLocked(),
	}
}

// BufferLevels returns the fill state of the mailboxes in attach order.
// The mailboxes themselves never leave the demultiplexer.
func (m *Mux) BufferLevels() []sim.BufferLevel {
	m.lock.Lock()
	defer m.lock.Unlock()

	levels := make([]sim.BufferLevel, 0, len(m.order))
	for _, port := range m.order {
		levels = append(levels, sim.LevelOf(m.ports[port].mailbox.buf))
	}

	return levels
}

// CreateNewAgent creates an Agent and binds it to the port.
func (m *Mux) CreateNewAgent(port int) (*Agent, error) {
	agent := NewAgent(fmt.Sprintf("%s.Agent[%d]", m.name, port), port)
	agent.Addr = m.addr

	err := m.Attach(agent, port)
	if err != nil {
		return nil, err
	}

	return agent, nil
}

func (m *Mux) fatal(err error) error {
	m.sink.Fatal(err.Error())
	return err
}

func (m *Mux) now() sim.VTimeInSec {
	if m.engine == nil {
		return 0
	}

	return m.engine.CurrentTime()
}

func (m *Mux) invokeHook(pos *sim.HookPos, item, detail interface{}) {
	if m.NumHooks() == 0 {
		return
	}

	m.InvokeHook(sim.HookCtx{
		Domain: m,
		Now:    m.now(),
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
