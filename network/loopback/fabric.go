// Package loopback provides a simulated connectionless network. Hosts are
// identified by address and every packet reaches its destination host after
// a fixed latency. There is no loss, reordering or congestion.
package loopback

import (
	"fmt"
	"log"
	"net/netip"
	"reflect"

	"github.com/pkg/errors"
	"github.com/sarchlab/portmux/diag"
	"github.com/sarchlab/portmux/network"
	"github.com/sarchlab/portmux/sim"
)

// ErrAddrInUse is returned when two hosts are given the same address.
var ErrAddrInUse = errors.New("address already used by another host")

type deliverEvent struct {
	*sim.EventBase
	pkt *network.Packet
}

// A Fabric connects hosts.
type Fabric struct {
	name    string
	engine  sim.Engine
	latency sim.VTimeInSec
	sink    diag.Sink

	hosts map[netip.Addr]*Host
	order []*Host
}

// Name returns the name of the fabric.
func (f *Fabric) Name() string {
	return f.name
}

// Engine returns the engine that drives the fabric.
func (f *Fabric) Engine() sim.Engine {
	return f.engine
}

// NewHost creates a host with the given address.
func (f *Fabric) NewHost(name string, addr netip.Addr) (*Host, error) {
	if _, found := f.hosts[addr]; found {
		return nil, errors.Wrapf(ErrAddrInUse, "%s: %s", f.name, addr)
	}

	h := &Host{
		name:    name,
		addr:    addr,
		fabric:  f,
		uppers:  make(map[network.Protocol]network.Upper),
		inbound: make(map[network.Protocol]sim.Buffer),
	}

	f.hosts[addr] = h
	f.order = append(f.order, h)

	return h, nil
}

// Hosts returns all hosts in creation order.
func (f *Fabric) Hosts() []*Host {
	return append([]*Host(nil), f.order...)
}

func (f *Fabric) transmit(pkt *network.Packet) {
	now := f.engine.CurrentTime()
	evt := deliverEvent{
		EventBase: sim.NewEventBase(now+f.latency, f),
		pkt:       pkt,
	}
	f.engine.Schedule(evt)
}

// Handle delivers packets that finished traveling through the fabric.
func (f *Fabric) Handle(e sim.Event) error {
	switch e := e.(type) {
	case deliverEvent:
		f.deliver(e.pkt)
	default:
		log.Panicf("cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

func (f *Fabric) deliver(pkt *network.Packet) {
	h, found := f.hosts[pkt.Dst]
	if !found {
		f.sink.Warning(fmt.Sprintf(
			"%s: no host at %s, dropping packet %s", f.name, pkt.Dst, pkt.ID))
		return
	}

	h.receive(pkt)
}
