package switches

import (
	"fmt"

	"github.com/fabriclab/cxlfabric/fabric/arbitration"
	"github.com/fabriclab/cxlfabric/fabric/flowctrl"
	"github.com/fabriclab/cxlfabric/fabric/messaging"
	"github.com/fabriclab/cxlfabric/fabric/routing"
	"github.com/fabriclab/cxlfabric/sim"
)

// Builder can help building switches.
type Builder struct {
	engine        sim.Engine
	freq          sim.Freq
	routingTable  routing.Table
	policyFactory func() arbitration.Policy
	useCredits    bool
	dropPolicy    flowctrl.DropPolicy
	dropObserver  DropObserver
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{useCredits: true}
}

// WithEngine sets the engine that the switch to build uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency that the switch to build works at.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithRoutingTable sets the routing table to be used by the switch.
func (b Builder) WithRoutingTable(rt routing.Table) Builder {
	b.routingTable = rt
	return b
}

// WithArbitrationPolicy sets the factory that creates one QoS policy
// instance per egress port.
func (b Builder) WithArbitrationPolicy(
	factory func() arbitration.Policy,
) Builder {
	b.policyFactory = factory
	return b
}

// WithCreditFlowControl selects credit-based flow control (the default).
func (b Builder) WithCreditFlowControl() Builder {
	b.useCredits = true
	b.dropPolicy = nil
	return b
}

// WithDropPolicy disables credits and resolves buffer overflow with the
// given drop policy instead.
func (b Builder) WithDropPolicy(policy flowctrl.DropPolicy) Builder {
	b.useCredits = false
	b.dropPolicy = policy
	return b
}

// WithDropObserver sets the observer notified of dropped flits.
func (b Builder) WithDropObserver(o DropObserver) Builder {
	b.dropObserver = o
	return b
}

// Build creates a new switch.
func (b Builder) Build(name string) *Comp {
	b.freqMustNotBeZero()
	b.routingTableMustBeGiven()
	b.policyMustBeGiven()

	s := &Comp{}
	s.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, s)
	s.routingTable = b.routingTable
	s.arbiter = arbitration.NewXBarArbiter(b.policyFactory, s.creditFor)
	s.useCredits = b.useCredits
	s.dropPolicy = b.dropPolicy
	s.dropObserver = b.dropObserver
	s.portToComplexMapping = make(map[sim.Port]*portComplex)

	return s
}

func (b Builder) freqMustNotBeZero() {
	if b.freq == 0 {
		panic("switch frequency cannot be 0")
	}
}

func (b Builder) routingTableMustBeGiven() {
	if b.routingTable == nil {
		panic("switch requires a routing table to operate")
	}
}

func (b Builder) policyMustBeGiven() {
	if b.policyFactory == nil {
		panic("switch requires an arbitration policy to operate")
	}
}

// SwitchPortAdder can add a port to a switch.
type SwitchPortAdder struct {
	sw               *Comp
	localPort        sim.Port
	remotePort       sim.RemotePort
	vcCapacity       int
	creditPerClass   int
	pauseWatermark   int
	resumeWatermark  int
	numInputChannel  int
	numOutputChannel int
}

// MakeSwitchPortAdder creates a SwitchPortAdder that can add ports for the
// provided switch.
func MakeSwitchPortAdder(sw *Comp) SwitchPortAdder {
	return SwitchPortAdder{
		sw:               sw,
		vcCapacity:       4,
		creditPerClass:   4,
		numInputChannel:  1,
		numOutputChannel: 1,
	}
}

// WithPorts defines the local port of the switch and the remote port on the
// other side of the link.
func (a SwitchPortAdder) WithPorts(
	local sim.Port,
	remote sim.RemotePort,
) SwitchPortAdder {
	a.localPort = local
	a.remotePort = remote
	return a
}

// WithVCCapacity sets the capacity, in flits, of each per-class virtual
// channel buffer on the ingress side.
func (a SwitchPortAdder) WithVCCapacity(capacity int) SwitchPortAdder {
	a.vcCapacity = capacity
	return a
}

// WithCreditPerClass sets the initial credits toward the downstream
// neighbor. It must equal the downstream input buffer capacity.
func (a SwitchPortAdder) WithCreditPerClass(credits int) SwitchPortAdder {
	a.creditPerClass = credits
	return a
}

// WithWatermarks enables backpressure signaling on the ingress buffers:
// crossing pause emits a PauseMsg upstream, falling to resume emits a
// ResumeMsg. The two thresholds form the hysteresis band.
func (a SwitchPortAdder) WithWatermarks(pause, resume int) SwitchPortAdder {
	a.pauseWatermark = pause
	a.resumeWatermark = resume
	return a
}

// WithNumInputChannel sets the number of flits that can enter the switch
// from the port each cycle.
func (a SwitchPortAdder) WithNumInputChannel(num int) SwitchPortAdder {
	a.numInputChannel = num
	return a
}

// WithNumOutputChannel sets the number of flits that can leave the switch
// to the port each cycle.
func (a SwitchPortAdder) WithNumOutputChannel(num int) SwitchPortAdder {
	a.numOutputChannel = num
	return a
}

// AddPort adds the port to the switch.
func (a SwitchPortAdder) AddPort() {
	complexID := len(a.sw.ports)
	complexName := fmt.Sprintf("%s.PortComplex%d", a.sw.Name(), complexID)

	pc := &portComplex{
		localPort:     a.localPort,
		remotePort:    a.remotePort,
		sendOutBuffer: sim.NewBuffer(complexName+".SendOutBuf", a.numOutputChannel),
		credits: flowctrl.NewCreditCounter(
			complexName, a.sw.Engine, messaging.NumClasses, a.creditPerClass),
		pause:            flowctrl.NewPauseState(messaging.NumClasses),
		numInputChannel:  a.numInputChannel,
		numOutputChannel: a.numOutputChannel,
	}

	for class := 0; class < messaging.NumClasses; class++ {
		buf := sim.NewBuffer(
			fmt.Sprintf("%s.VC%d", complexName, class), a.vcCapacity)

		if a.pauseWatermark > 0 {
			buf.SetWatermarks(a.pauseWatermark, a.resumeWatermark,
				&vcWatcher{sw: a.sw, pc: pc, class: class})
		}

		pc.inputBuffers = append(pc.inputBuffers, buf)
	}

	a.sw.addPort(pc)
	a.sw.AddPort(a.localPort.Name(), a.localPort)
}
