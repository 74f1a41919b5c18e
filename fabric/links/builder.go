package links

import (
	"github.com/fabriclab/cxlfabric/sim"
)

// Builder can help building links.
type Builder struct {
	engine        sim.Engine
	freq          sim.Freq
	delay         sim.VTimeInSec
	bytesPerCycle int
}

// MakeBuilder creates a new builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		bytesPerCycle: 64,
	}
}

// WithEngine sets the engine of the link to build.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency at which the link picks up traffic.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithDelay sets the propagation delay of the link, in seconds. Every
// message arrives at the far end this long after it is picked up.
func (b Builder) WithDelay(delay sim.VTimeInSec) Builder {
	b.delay = delay
	return b
}

// WithBytesPerCycle sets the bandwidth of the link as the number of payload
// bytes that can be picked up in each direction per cycle.
func (b Builder) WithBytesPerCycle(bytes int) Builder {
	b.bytesPerCycle = bytes
	return b
}

// Build creates a new link.
func (b Builder) Build(name string) *Comp {
	b.freqMustNotBeZero()
	b.bandwidthMustBePositive()

	c := &Comp{}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.delay = b.delay
	c.bytesPerCycle = b.bytesPerCycle

	return c
}

func (b Builder) freqMustNotBeZero() {
	if b.freq == 0 {
		panic("link frequency cannot be 0")
	}
}

func (b Builder) bandwidthMustBePositive() {
	if b.bytesPerCycle <= 0 {
		panic("link bandwidth must be positive")
	}
}
