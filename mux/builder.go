package mux

import (
	"log"
	"net/netip"

	"github.com/sarchlab/portmux/diag"
	"github.com/sarchlab/portmux/network"
	"github.com/sarchlab/portmux/sim"
)

// A Builder can build demultiplexers.
type Builder struct {
	engine    sim.TimeTeller
	sink      diag.Sink
	protocol  network.Protocol
	addr      netip.Addr
	sendTrace *log.Logger
}

// MakeBuilder creates a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		protocol: network.ProtocolMPTCP,
	}
}

// WithEngine sets the engine used to timestamp hook invocations.
func (b Builder) WithEngine(engine sim.TimeTeller) Builder {
	b.engine = engine
	return b
}

// WithSink sets where fatal reports and warnings go. By default they are
// logged to stderr and fatal reports end the process.
func (b Builder) WithSink(sink diag.Sink) Builder {
	b.sink = sink
	return b
}

// WithProtocol sets the protocol number used towards the network service.
func (b Builder) WithProtocol(protocol network.Protocol) Builder {
	b.protocol = protocol
	return b
}

// WithAddr sets the local address given to agents created by
// CreateNewAgent.
func (b Builder) WithAddr(addr netip.Addr) Builder {
	b.addr = addr
	return b
}

// WithSendTrace prints a line into the logger for every packet sent.
func (b Builder) WithSendTrace(logger *log.Logger) Builder {
	b.sendTrace = logger
	return b
}

// Build creates a new demultiplexer.
func (b Builder) Build(name string) *Mux {
	m := &Mux{
		name:     name,
		engine:   b.engine,
		sink:     b.sink,
		protocol: b.protocol,
		addr:     b.addr,
		ports:    make(map[int]*binding),
	}

	if m.sink == nil {
		m.sink = diag.NewLogSink(nil)
	}

	if b.sendTrace != nil {
		m.AcceptHook(NewSendLogger(b.sendTrace))
	}

	return m
}
