package tracing

import (
	"sync"

	"github.com/sarchlab/portmux/mux"
	"github.com/sarchlab/portmux/sim"
)

// TrafficCounter counts demultiplexer events per hook position.
type TrafficCounter struct {
	mu     sync.Mutex
	counts map[string]uint64
}

// NewTrafficCounter creates a TrafficCounter.
func NewTrafficCounter() *TrafficCounter {
	return &TrafficCounter{
		counts: make(map[string]uint64),
	}
}

// Func counts the hook invocation.
func (c *TrafficCounter) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case mux.HookPosMuxSend,
		mux.HookPosMuxDeliver,
		mux.HookPosMuxRead,
		mux.HookPosMuxDrop:
	default:
		return
	}

	c.mu.Lock()
	c.counts[ctx.Pos.Name]++
	c.mu.Unlock()
}

// Count returns the number of invocations at the position.
func (c *TrafficCounter) Count(pos *sim.HookPos) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.counts[pos.Name]
}
