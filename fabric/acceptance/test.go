package acceptance

import (
	"log"

	"github.com/iti/rngstream"

	"github.com/fabriclab/cxlfabric/sim"
)

type trafficMsg struct {
	sim.MsgMeta
}

func (m *trafficMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

func (m *trafficMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// Test is one end-to-end traffic check. It generates random messages between
// agents and asserts that every one of them arrives exactly once at its
// destination port.
type Test struct {
	rng *rngstream.RngStream

	agents            []*Agent
	msgs              []sim.Msg
	receivedMsgs      []sim.Msg
	receivedMsgsTable map[sim.Msg]bool
}

// NewTest creates a new test.
func NewTest(name string) *Test {
	return &Test{
		rng:               rngstream.New(name),
		receivedMsgsTable: make(map[sim.Msg]bool),
	}
}

// RegisterAgent adds an agent to the test.
func (t *Test) RegisterAgent(agent *Agent) {
	t.agents = append(t.agents, agent)
}

// GenerateMsgs generates n messages, each from a random source port to a
// random port on a different agent.
func (t *Test) GenerateMsgs(n int) {
	for i := 0; i < n; i++ {
		srcAgent := t.agents[t.rng.RandInt(0, len(t.agents)-1)]
		srcPort := srcAgent.AgentPorts[t.rng.RandInt(
			0, len(srcAgent.AgentPorts)-1)]

		dstAgent := srcAgent
		for dstAgent == srcAgent {
			dstAgent = t.agents[t.rng.RandInt(0, len(t.agents)-1)]
		}
		dstPort := dstAgent.AgentPorts[t.rng.RandInt(
			0, len(dstAgent.AgentPorts)-1)]

		msg := &trafficMsg{}
		msg.ID = sim.GetIDGenerator().Generate()
		msg.Src = srcPort.AsRemote()
		msg.Dst = dstPort.AsRemote()
		msg.TrafficBytes = t.rng.RandInt(1, 4096)

		srcAgent.MsgsToSend = append(srcAgent.MsgsToSend, msg)
		t.msgs = append(t.msgs, msg)
	}
}

func (t *Test) receiveMsg(msg sim.Msg, recvPort sim.Port) {
	if msg.Meta().Dst != recvPort.AsRemote() {
		panic("msg delivered to a wrong destination")
	}

	if t.receivedMsgsTable[msg] {
		panic("msg is double delivered")
	}

	t.receivedMsgsTable[msg] = true
	t.receivedMsgs = append(t.receivedMsgs, msg)
}

// MustHaveReceivedAllMsgs asserts that every generated message arrived.
func (t *Test) MustHaveReceivedAllMsgs() {
	if len(t.msgs) == len(t.receivedMsgs) {
		return
	}

	for _, sentMsg := range t.msgs {
		if !t.receivedMsgsTable[sentMsg] {
			log.Printf("msg %s expected, but not received\n",
				sentMsg.Meta().ID)
		}
	}

	panic("some messages are lost")
}

// ReportBandwidthAchieved dumps the bandwidth observed by each agent.
func (t *Test) ReportBandwidthAchieved(now sim.VTimeInSec) {
	for _, a := range t.agents {
		log.Printf(
			"agent %s, send bandwidth %.2f GB/s, recv bandwidth %.2f GB/s",
			a.Name(),
			float64(a.sendBytes)/float64(now)/1e9,
			float64(a.recvBytes)/float64(now)/1e9)
	}
}
