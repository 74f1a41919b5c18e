package device

import (
	"github.com/fabriclab/cxlfabric/sim"
)

// Builder can help building devices.
type Builder struct {
	engine       sim.Engine
	freq         sim.Freq
	latency      int
	writeAckSize int
}

// MakeBuilder creates a new builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		latency:      50,
		writeAckSize: 8,
	}
}

// WithEngine sets the engine of the device to build.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the device to build.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithLatency sets the access latency of the device, in cycles.
func (b Builder) WithLatency(cycles int) Builder {
	b.latency = cycles
	return b
}

// WithWriteAckSize sets the payload size of write acknowledgements.
func (b Builder) WithWriteAckSize(bytes int) Builder {
	b.writeAckSize = bytes
	return b
}

// Build creates a new device.
func (b Builder) Build(name string) *Comp {
	b.freqMustNotBeZero()

	c := &Comp{}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.latency = b.latency
	c.writeAckSize = b.writeAckSize

	c.ToFabric = sim.NewPort(c, 16, 16, name+".ToFabric")
	c.AddPort(c.ToFabric.Name(), c.ToFabric)

	return c
}

func (b Builder) freqMustNotBeZero() {
	if b.freq == 0 {
		panic("device frequency cannot be 0")
	}
}
