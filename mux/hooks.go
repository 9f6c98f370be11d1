package mux

import (
	"log"
	"net/netip"

	"github.com/sarchlab/portmux/sim"
)

// HookPosMuxSend marks when a segment is forwarded to the network service.
var HookPosMuxSend = &sim.HookPos{Name: "Mux Send"}

// HookPosMuxDeliver marks when an inbound packet is put into a mailbox.
var HookPosMuxDeliver = &sim.HookPos{Name: "Mux Deliver"}

// HookPosMuxRead marks when an endpoint takes a packet from its mailbox.
var HookPosMuxRead = &sim.HookPos{Name: "Mux Read"}

// HookPosMuxDrop marks when an inbound packet is discarded.
var HookPosMuxDrop = &sim.HookPos{Name: "Mux Drop"}

// SendDetail is the hook detail of HookPosMuxSend.
type SendDetail struct {
	Src, Dst netip.Addr
	Port     int

	// Seq is the segment sequence number, or -1 if the payload is not a
	// Segment.
	Seq int

	// Count is the number of packets sent so far, including this one.
	Count uint64
}

// DeliverDetail is the hook detail of HookPosMuxDeliver and HookPosMuxRead.
type DeliverDetail struct {
	Port int
}

// DropReason tells why a packet was discarded.
type DropReason string

// Reasons for dropping inbound packets.
const (
	DropReasonNoListener DropReason = "no listener"
	DropReasonMalformed  DropReason = "malformed"
	DropReasonDetached   DropReason = "detached"
)

// DropDetail is the hook detail of HookPosMuxDrop.
type DropDetail struct {
	Port   int
	Reason DropReason
}

// SendLogger is a hook that prints one line for every packet sent.
type SendLogger struct {
	sim.LogHookBase
}

// NewSendLogger creates a SendLogger that writes into the logger.
func NewSendLogger(logger *log.Logger) *SendLogger {
	h := new(SendLogger)
	h.Logger = logger

	return h
}

// Func prints the running packet count.
func (h *SendLogger) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosMuxSend {
		return
	}

	detail, ok := ctx.Detail.(SendDetail)
	if !ok {
		return
	}

	h.Logger.Printf("Total Packet Count in Network at %s seq no. %d = %d",
		detail.Src, detail.Seq, detail.Count)
}
