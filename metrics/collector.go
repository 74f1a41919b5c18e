// Package metrics collects per-packet completion and drop records during a
// run and derives summary statistics from them.
package metrics

import (
	"github.com/fabriclab/cxlfabric/fabric/messaging"
	"github.com/fabriclab/cxlfabric/sim"
)

// A CompletionRecord describes one message that fully arrived at its
// destination endpoint.
type CompletionRecord struct {
	PacketID       string
	FlowID         string
	Class          int
	Bytes          int
	HopCount       int
	CreationTime   float64
	CompletionTime float64
	Latency        float64
}

// A DropRecord describes one flit discarded inside the fabric.
type DropRecord struct {
	PacketID string
	FlowID   string
	Class    int
	Reason   string
	DropTime float64
}

// A Collector accumulates completion and drop records. It plugs into
// endpoints as a completion observer and into switches as a drop observer.
// Records keep the order in which the callbacks fired, so two runs with the
// same seed produce identical record streams.
type Collector struct {
	completions []CompletionRecord
	drops       []DropRecord
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// MsgCompleted records the completion of a message.
func (c *Collector) MsgCompleted(
	msg sim.Msg,
	hopCount int,
	now sim.VTimeInSec,
) {
	meta := msg.Meta()

	c.completions = append(c.completions, CompletionRecord{
		PacketID:       meta.ID,
		FlowID:         meta.FlowID,
		Class:          meta.Class,
		Bytes:          meta.TrafficBytes,
		HopCount:       hopCount,
		CreationTime:   float64(meta.CreationTime),
		CompletionTime: float64(now),
		Latency:        float64(now - meta.CreationTime),
	})
}

// FlitDropped records the loss of a flit.
func (c *Collector) FlitDropped(
	flit *messaging.Flit,
	reason string,
	now sim.VTimeInSec,
) {
	c.drops = append(c.drops, DropRecord{
		PacketID: flit.Msg.Meta().ID,
		FlowID:   flit.FlowID,
		Class:    flit.Class,
		Reason:   reason,
		DropTime: float64(now),
	})
}

// Completions returns the completion records in arrival order.
func (c *Collector) Completions() []CompletionRecord {
	return c.completions
}

// Drops returns the drop records in arrival order.
func (c *Collector) Drops() []DropRecord {
	return c.drops
}
