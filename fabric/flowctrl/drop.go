package flowctrl

import (
	"github.com/iti/rngstream"

	"github.com/fabriclab/cxlfabric/sim"
)

// A DropPolicy decides whether an arriving flit is admitted to a buffer or
// dropped. It only applies when the fabric runs without credit-based flow
// control; with credits, the sender never overruns the receiver.
type DropPolicy interface {
	// ShouldDrop is consulted before each enqueue attempt.
	ShouldDrop(buf sim.Buffer) bool
}

// NewTailDrop creates the policy that drops exactly when the buffer is full.
func NewTailDrop() DropPolicy {
	return tailDrop{}
}

type tailDrop struct{}

func (tailDrop) ShouldDrop(buf sim.Buffer) bool {
	return !buf.CanPush()
}

// NewRandomEarlyDrop creates a RED-style policy: below minOccupancy nothing
// drops, above the buffer capacity everything drops, and in between the drop
// probability rises linearly to maxProb. The stream derives from the global
// rngstream master seed, so runs stay reproducible.
func NewRandomEarlyDrop(
	name string,
	minOccupancy int,
	maxProb float64,
) DropPolicy {
	return &randomEarlyDrop{
		minOccupancy: minOccupancy,
		maxProb:      maxProb,
		rng:          rngstream.New(name),
	}
}

type randomEarlyDrop struct {
	minOccupancy int
	maxProb      float64
	rng          *rngstream.RngStream
}

func (p *randomEarlyDrop) ShouldDrop(buf sim.Buffer) bool {
	if !buf.CanPush() {
		return true
	}

	occupancy := buf.Size()
	if occupancy < p.minOccupancy {
		return false
	}

	span := buf.Capacity() - p.minOccupancy
	if span <= 0 {
		return false
	}

	prob := p.maxProb *
		float64(occupancy-p.minOccupancy) / float64(span)

	return p.rng.RandU01() < prob
}
