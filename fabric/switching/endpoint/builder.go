package endpoint

import (
	"container/list"

	"github.com/fabriclab/cxlfabric/fabric/flowctrl"
	"github.com/fabriclab/cxlfabric/fabric/messaging"
	"github.com/fabriclab/cxlfabric/sim"
)

// Builder can help building endpoints.
type Builder struct {
	engine             sim.Engine
	freq               sim.Freq
	flitByteSize       int
	numInputChannels   int
	numOutputChannels  int
	recvBufCapacity    int
	creditPerClass     int
	useCredits         bool
	completionObserver CompletionObserver
}

// MakeBuilder creates a new builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		flitByteSize:      64,
		numInputChannels:  1,
		numOutputChannels: 1,
		recvBufCapacity:   16,
		creditPerClass:    4,
		useCredits:        true,
	}
}

// WithEngine sets the engine of the endpoint to build.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the endpoint to build.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithFlitByteSize sets the flit byte size that the endpoint fragments
// messages into.
func (b Builder) WithFlitByteSize(n int) Builder {
	b.flitByteSize = n
	return b
}

// WithNumInputChannels sets the number of flits that can arrive in each
// cycle.
func (b Builder) WithNumInputChannels(num int) Builder {
	b.numInputChannels = num
	return b
}

// WithNumOutputChannels sets the number of flits that can leave in each
// cycle.
func (b Builder) WithNumOutputChannels(num int) Builder {
	b.numOutputChannels = num
	return b
}

// WithRecvBufCapacity sets the capacity of the network-facing incoming
// buffer. The upstream switch's credit pool must match this value.
func (b Builder) WithRecvBufCapacity(n int) Builder {
	b.recvBufCapacity = n
	return b
}

// WithCreditPerClass sets the initial credits toward the attached switch.
// It must equal the switch's ingress buffer capacity per class.
func (b Builder) WithCreditPerClass(credits int) Builder {
	b.creditPerClass = credits
	return b
}

// WithoutCreditFlowControl disables credit accounting. Used for runs that
// resolve contention with drop policies instead.
func (b Builder) WithoutCreditFlowControl() Builder {
	b.useCredits = false
	return b
}

// WithCompletionObserver sets the observer notified of completed messages.
func (b Builder) WithCompletionObserver(o CompletionObserver) Builder {
	b.completionObserver = o
	return b
}

// Build creates a new endpoint.
func (b Builder) Build(name string) *Comp {
	c := &Comp{}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.flitByteSize = b.flitByteSize
	c.numInputChannels = b.numInputChannels
	c.numOutputChannels = b.numOutputChannels
	c.useCredits = b.useCredits
	c.credits = flowctrl.NewCreditCounter(
		name, b.engine, messaging.NumClasses, b.creditPerClass)
	c.pause = flowctrl.NewPauseState(messaging.NumClasses)
	c.completionObserver = b.completionObserver

	c.assemblingMsgTable = make(map[string]*list.Element)
	c.assemblingMsgs = list.New()

	c.NetworkPort = sim.NewPort(c, b.recvBufCapacity, 4,
		name+".NetworkPort")
	c.AddPort(c.NetworkPort.Name(), c.NetworkPort)

	return c
}
