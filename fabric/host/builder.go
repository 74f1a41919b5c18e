package host

import (
	"github.com/fabriclab/cxlfabric/sim"
	"github.com/fabriclab/cxlfabric/workload"
)

// Builder can help building hosts.
type Builder struct {
	engine         sim.Engine
	freq           sim.Freq
	source         workload.Source
	devices        []sim.RemotePort
	maxOutstanding int
}

// MakeBuilder creates a new builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		maxOutstanding: 16,
	}
}

// WithEngine sets the engine of the host to build.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the host to build.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithSource sets the workload source the host replays.
func (b Builder) WithSource(source workload.Source) Builder {
	b.source = source
	return b
}

// WithDevices sets the device endpoints, indexed by the device ID the
// workload source refers to.
func (b Builder) WithDevices(devices []sim.RemotePort) Builder {
	b.devices = devices
	return b
}

// WithMaxOutstanding sets the in-flight request window of the host.
func (b Builder) WithMaxOutstanding(n int) Builder {
	b.maxOutstanding = n
	return b
}

// Build creates a new host.
func (b Builder) Build(name string) *Comp {
	b.freqMustNotBeZero()
	b.sourceMustBeGiven()
	b.devicesMustBeGiven()

	c := &Comp{}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.source = b.source
	c.devices = b.devices
	c.maxOutstanding = b.maxOutstanding
	c.outstanding = make(map[string]struct{})

	c.ToFabric = sim.NewPort(c, 16, 16, name+".ToFabric")
	c.AddPort(c.ToFabric.Name(), c.ToFabric)

	// Pull the first injection once the simulation starts.
	c.TickLater()

	return c
}

func (b Builder) freqMustNotBeZero() {
	if b.freq == 0 {
		panic("host frequency cannot be 0")
	}
}

func (b Builder) sourceMustBeGiven() {
	if b.source == nil {
		panic("host requires a workload source")
	}
}

func (b Builder) devicesMustBeGiven() {
	if len(b.devices) == 0 {
		panic("host requires at least one device to target")
	}
}
