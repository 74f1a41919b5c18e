package links

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fabriclab/cxlfabric/sim"
)

type sampleMsg struct {
	meta sim.MsgMeta
}

func (m *sampleMsg) Meta() *sim.MsgMeta {
	return &m.meta
}

func (m *sampleMsg) Clone() sim.Msg {
	cloned := *m
	cloned.meta.ID = sim.GetIDGenerator().Generate()

	return &cloned
}

// agent owns one port and records every message it retrieves, with the time
// of retrieval.
type agent struct {
	*sim.ComponentBase

	engine sim.Engine
	port   sim.Port
	drain  bool

	received  []sim.Msg
	recvTimes []sim.VTimeInSec
}

func newAgent(name string, engine sim.Engine, drain bool) *agent {
	a := &agent{
		ComponentBase: sim.NewComponentBase(name),
		engine:        engine,
		drain:         drain,
	}
	a.port = sim.NewPort(a, 4, 4, name+".Port")
	a.AddPort(a.port.Name(), a.port)

	return a
}

func (a *agent) Handle(_ sim.Event) error {
	return nil
}

func (a *agent) NotifyRecv(port sim.Port) {
	if !a.drain {
		return
	}

	for {
		msg := port.RetrieveIncoming()
		if msg == nil {
			return
		}

		a.received = append(a.received, msg)
		a.recvTimes = append(a.recvTimes, a.engine.CurrentTime())
	}
}

func (a *agent) NotifyPortFree(_ sim.Port) {
}

func (a *agent) send(dst sim.RemotePort, bytes int) *sampleMsg {
	msg := &sampleMsg{}
	msg.meta.ID = sim.GetIDGenerator().Generate()
	msg.meta.Src = a.port.AsRemote()
	msg.meta.Dst = dst
	msg.meta.TrafficBytes = bytes

	err := a.port.Send(msg)
	Expect(err).To(BeNil())

	return msg
}

var _ = Describe("Link", func() {
	var (
		engine *sim.SerialEngine
		left   *agent
		right  *agent
		link   *Comp
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		left = newAgent("Left", engine, true)
		right = newAgent("Right", engine, true)

		link = MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithDelay(3e-9).
			WithBytesPerCycle(64).
			Build("Link")
		link.PlugIn(left.port)
		link.PlugIn(right.port)
	})

	It("should deliver after the propagation delay", func() {
		left.send(right.port.AsRemote(), 64)

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(right.received).To(HaveLen(1))
		// Picked up on the first cycle, arrives one delay later.
		Expect(float64(right.recvTimes[0])).
			To(BeNumerically("~", 4e-9, 1e-12))
	})

	It("should carry traffic in both directions", func() {
		left.send(right.port.AsRemote(), 64)
		right.send(left.port.AsRemote(), 64)

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(right.received).To(HaveLen(1))
		Expect(left.received).To(HaveLen(1))
	})

	It("should serialize messages beyond the per-cycle byte budget", func() {
		left.send(right.port.AsRemote(), 64)
		left.send(right.port.AsRemote(), 64)

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(right.received).To(HaveLen(2))
		Expect(float64(right.recvTimes[1] - right.recvTimes[0])).
			To(BeNumerically("~", 1e-9, 1e-12))
	})

	It("should carry a message wider than the per-cycle budget", func() {
		wide := left.send(right.port.AsRemote(), 256)
		follower := left.send(right.port.AsRemote(), 64)

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(right.received).To(Equal([]sim.Msg{wide, follower}))
		// Four cycles on the wire, then the propagation delay.
		Expect(float64(right.recvTimes[0])).
			To(BeNumerically("~", 7e-9, 1e-12))
		Expect(float64(right.recvTimes[1] - right.recvTimes[0])).
			To(BeNumerically("~", 1e-9, 1e-12))
	})

	It("should let zero-byte control messages ride for free", func() {
		left.send(right.port.AsRemote(), 64)
		left.send(right.port.AsRemote(), 0)

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(right.received).To(HaveLen(2))
		Expect(right.recvTimes[1]).To(Equal(right.recvTimes[0]))
	})

	It("should preserve message order", func() {
		msg1 := left.send(right.port.AsRemote(), 64)
		msg2 := left.send(right.port.AsRemote(), 64)
		msg3 := left.send(right.port.AsRemote(), 64)

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(right.received).To(Equal([]sim.Msg{msg1, msg2, msg3}))
	})

	It("should hold delivery until the receiver frees space", func() {
		blocked := newAgent("Blocked", engine, false)
		blockedPort := sim.NewPort(blocked, 1, 4, "Blocked.SmallPort")
		blocked.AddPort(blockedPort.Name(), blockedPort)

		narrowLink := MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithDelay(3e-9).
			WithBytesPerCycle(64).
			Build("NarrowLink")

		sender := newAgent("Sender", engine, true)
		narrowLink.PlugIn(sender.port)
		narrowLink.PlugIn(blockedPort)

		msg1 := sender.send(blockedPort.AsRemote(), 64)
		msg2 := sender.send(blockedPort.AsRemote(), 64)

		err := engine.Run()
		Expect(err).To(BeNil())

		// Only the first message fits; the second waits on the link.
		Expect(blockedPort.PeekIncoming()).To(BeIdenticalTo(msg1))

		retrieved := blockedPort.RetrieveIncoming()
		Expect(retrieved).To(BeIdenticalTo(msg1))

		err = engine.Run()
		Expect(err).To(BeNil())
		Expect(blockedPort.PeekIncoming()).To(BeIdenticalTo(msg2))
	})
})
