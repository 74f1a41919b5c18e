package device

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fabriclab/cxlfabric/fabric/messaging"
	"github.com/fabriclab/cxlfabric/sim"
)

// recordingConn records the time the device first puts a message on its
// outgoing buffer.
type recordingConn struct {
	sim.HookableBase

	engine    sim.Engine
	sendTimes []sim.VTimeInSec
}

func (r *recordingConn) Name() string               { return "RecordingConn" }
func (r *recordingConn) PlugIn(port sim.Port)       { port.SetConnection(r) }
func (r *recordingConn) Unplug(_ sim.Port)          {}
func (r *recordingConn) NotifyAvailable(_ sim.Port) {}

func (r *recordingConn) NotifySend() {
	r.sendTimes = append(r.sendTimes, r.engine.CurrentTime())
}

var _ = Describe("Device", func() {
	var (
		engine *sim.SerialEngine
		conn   *recordingConn
		dev    *Comp
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		conn = &recordingConn{engine: engine}

		dev = MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithLatency(10).
			Build("Dev")
		conn.PlugIn(dev.ToFabric)
	})

	deliverRead := func(address uint64) *messaging.MemReadReq {
		req := messaging.MemReqBuilder{}.
			WithSrc("Host.ToFabric").
			WithDst(dev.ToFabric.AsRemote()).
			WithAddress(address).
			WithAccessBytes(64).
			BuildRead()
		Expect(dev.ToFabric.Deliver(req)).To(BeNil())

		return req
	}

	It("should answer a read after the access latency", func() {
		req := deliverRead(0x1000)

		Expect(engine.Run()).To(Succeed())

		rsp := dev.ToFabric.RetrieveOutgoing().(*messaging.MemReadRsp)
		Expect(rsp.RspTo).To(Equal(req.ID))
		Expect(rsp.TrafficBytes).To(Equal(64))
		Expect(dev.NumReads()).To(Equal(1))

		Expect(conn.sendTimes).To(HaveLen(1))
		Expect(float64(conn.sendTimes[0])).
			To(BeNumerically(">=", 10e-9))
	})

	It("should acknowledge a write", func() {
		req := messaging.MemReqBuilder{}.
			WithSrc("Host.ToFabric").
			WithDst(dev.ToFabric.AsRemote()).
			WithAddress(0x2000).
			WithAccessBytes(64).
			BuildWrite()
		Expect(dev.ToFabric.Deliver(req)).To(BeNil())

		Expect(engine.Run()).To(Succeed())

		ack := dev.ToFabric.RetrieveOutgoing().(*messaging.MemWriteAck)
		Expect(ack.RspTo).To(Equal(req.ID))
		Expect(dev.NumWrites()).To(Equal(1))
	})

	It("should answer pipelined reads in order", func() {
		req1 := deliverRead(0x0)
		req2 := deliverRead(0x40)

		Expect(engine.Run()).To(Succeed())

		rsp1 := dev.ToFabric.RetrieveOutgoing().(*messaging.MemReadRsp)
		rsp2 := dev.ToFabric.RetrieveOutgoing().(*messaging.MemReadRsp)
		Expect(rsp1.RspTo).To(Equal(req1.ID))
		Expect(rsp2.RspTo).To(Equal(req2.ID))
	})
})
