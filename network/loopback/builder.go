package loopback

import (
	"net/netip"

	"github.com/sarchlab/portmux/diag"
	"github.com/sarchlab/portmux/sim"
)

// A Builder can build fabrics.
type Builder struct {
	engine  sim.Engine
	latency sim.VTimeInSec
	sink    diag.Sink
}

// MakeBuilder creates a Builder with a latency of one microsecond.
func MakeBuilder() Builder {
	return Builder{
		latency: 1e-6,
	}
}

// WithEngine sets the engine that schedules packet delivery.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithLatency sets the time a packet spends on the fabric.
func (b Builder) WithLatency(latency sim.VTimeInSec) Builder {
	b.latency = latency
	return b
}

// WithSink sets where dropped packets are reported.
func (b Builder) WithSink(sink diag.Sink) Builder {
	b.sink = sink
	return b
}

// Build creates a new fabric.
func (b Builder) Build(name string) *Fabric {
	if b.engine == nil {
		panic("engine is not given")
	}

	f := &Fabric{
		name:    name,
		engine:  b.engine,
		latency: b.latency,
		sink:    b.sink,
		hosts:   make(map[netip.Addr]*Host),
	}

	if f.sink == nil {
		f.sink = diag.NewLogSink(nil)
	}

	return f
}
