// Package tracing turns demultiplexer hook invocations into traffic records.
package tracing

import (
	"sync"

	"github.com/sarchlab/portmux/datarecording"
	"github.com/sarchlab/portmux/mux"
	"github.com/sarchlab/portmux/network"
	"github.com/sarchlab/portmux/sim"
)

// TrafficTable is the name of the table that TrafficTracer writes into.
const TrafficTable = "mux_traffic"

// TrafficEntry is one row of the traffic table.
type TrafficEntry struct {
	Time     float64
	Where    string
	What     string
	Port     int
	PacketID string
	Seq      int
	Reason   string
}

// TrafficTracer records every send, delivery, read and drop of the
// demultiplexers it is attached to.
type TrafficTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder

	startTime, endTime sim.VTimeInSec
}

// NewTrafficTracer creates a tracer that writes into the backend. The
// traffic table is created immediately.
func NewTrafficTracer(backend datarecording.DataRecorder) *TrafficTracer {
	backend.CreateTable(TrafficTable, TrafficEntry{})

	return &TrafficTracer{
		backend:   backend,
		startTime: -1,
		endTime:   -1,
	}
}

// SetTimeRange limits recording to hook invocations within [start, end).
// A negative bound leaves that side open.
func (t *TrafficTracer) SetTimeRange(start, end sim.VTimeInSec) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = start
	t.endTime = end
}

func (t *TrafficTracer) inRange(now sim.VTimeInSec) bool {
	if t.startTime >= 0 && now < t.startTime {
		return false
	}

	if t.endTime >= 0 && now >= t.endTime {
		return false
	}

	return true
}

// Func records the hook invocation.
func (t *TrafficTracer) Func(ctx sim.HookCtx) {
	entry, ok := entryFromHook(ctx)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.inRange(ctx.Now) {
		return
	}

	t.backend.InsertData(TrafficTable, entry)
}

func entryFromHook(ctx sim.HookCtx) (TrafficEntry, bool) {
	entry := TrafficEntry{
		Time: float64(ctx.Now),
		What: ctx.Pos.Name,
		Seq:  -1,
	}

	if named, ok := ctx.Domain.(sim.Named); ok {
		entry.Where = named.Name()
	}

	switch detail := ctx.Detail.(type) {
	case mux.SendDetail:
		entry.Port = detail.Port
		entry.Seq = detail.Seq
	case mux.DeliverDetail:
		entry.Port = detail.Port
	case mux.DropDetail:
		entry.Port = detail.Port
		entry.Reason = string(detail.Reason)
	default:
		return entry, false
	}

	if pkt, ok := ctx.Item.(*network.Packet); ok {
		entry.PacketID = pkt.ID
		if seg, ok := pkt.Data.(*mux.Segment); ok {
			entry.Seq = seg.Seq
		}
	}

	return entry, true
}
