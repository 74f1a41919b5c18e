// Package acceptance provides the traffic harness the end-to-end fabric
// checks are built on.
package acceptance

import (
	"fmt"

	"github.com/fabriclab/cxlfabric/sim"
)

// Agent can send and receive traffic messages through the fabric.
type Agent struct {
	*sim.TickingComponent

	test       *Test
	AgentPorts []sim.Port

	MsgsToSend []sim.Msg
	sendBytes  uint64
	recvBytes  uint64
}

// NewAgent creates a new agent with numPorts ports.
func NewAgent(
	engine sim.Engine,
	freq sim.Freq,
	name string,
	numPorts int,
	test *Test,
) *Agent {
	a := &Agent{}
	a.test = test
	a.TickingComponent = sim.NewTickingComponent(name, engine, freq, a)

	for i := 0; i < numPorts; i++ {
		p := sim.NewPort(a, 1, 1, fmt.Sprintf("%s.Port%d", name, i))
		a.AgentPorts = append(a.AgentPorts, p)
		a.AddPort(p.Name(), p)
	}

	return a
}

// Tick tries to send pending messages and to receive arriving ones.
func (a *Agent) Tick() bool {
	madeProgress := false
	madeProgress = a.send() || madeProgress
	madeProgress = a.recv() || madeProgress

	return madeProgress
}

func (a *Agent) send() bool {
	if len(a.MsgsToSend) == 0 {
		return false
	}

	msg := a.MsgsToSend[0]
	srcPort := a.findPortByName(msg.Meta().Src)

	if err := srcPort.Send(msg); err != nil {
		return false
	}

	a.MsgsToSend = a.MsgsToSend[1:]
	a.sendBytes += uint64(msg.Meta().TrafficBytes)

	return true
}

func (a *Agent) recv() bool {
	madeProgress := false

	for _, port := range a.AgentPorts {
		msg := port.RetrieveIncoming()
		if msg == nil {
			continue
		}

		a.recvBytes += uint64(msg.Meta().TrafficBytes)
		a.test.receiveMsg(msg, port)
		madeProgress = true
	}

	return madeProgress
}

func (a *Agent) findPortByName(src sim.RemotePort) sim.Port {
	for _, port := range a.AgentPorts {
		if port.AsRemote() == src {
			return port
		}
	}

	panic("port not found")
}
