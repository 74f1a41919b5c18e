package host

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fabriclab/cxlfabric/fabric/messaging"
	"github.com/fabriclab/cxlfabric/sim"
	"github.com/fabriclab/cxlfabric/workload"
)

type sliceSource struct {
	injections []workload.Injection
	pos        int
}

func (s *sliceSource) Next() (workload.Injection, bool) {
	if s.pos >= len(s.injections) {
		return workload.Injection{}, false
	}

	injection := s.injections[s.pos]
	s.pos++

	return injection, true
}

type fakeConn struct {
	sim.HookableBase
}

func (f *fakeConn) Name() string               { return "FakeConn" }
func (f *fakeConn) PlugIn(port sim.Port)       { port.SetConnection(f) }
func (f *fakeConn) Unplug(_ sim.Port)          {}
func (f *fakeConn) NotifyAvailable(_ sim.Port) {}
func (f *fakeConn) NotifySend()                {}

var _ = Describe("Host", func() {
	var (
		engine *sim.SerialEngine
		conn   *fakeConn
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		conn = &fakeConn{}
	})

	buildHost := func(src workload.Source, window int) *Comp {
		h := MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithSource(src).
			WithDevices([]sim.RemotePort{"Dev0.Port"}).
			WithMaxOutstanding(window).
			Build("Host")
		conn.PlugIn(h.ToFabric)

		return h
	}

	It("should issue requests for due injections", func() {
		src := &sliceSource{injections: []workload.Injection{
			{Time: 0, Device: 0, Address: 0x40, Bytes: 64, IsRead: true,
				Class: messaging.ClassMedium},
			{Time: 0, Device: 0, Address: 0x80, Bytes: 64, IsRead: false,
				Class: messaging.ClassHigh},
		}}
		h := buildHost(src, 16)

		Expect(engine.Run()).To(Succeed())

		Expect(h.NumIssued()).To(Equal(2))
		Expect(h.NumOutstanding()).To(Equal(2))

		read := h.ToFabric.RetrieveOutgoing().(*messaging.MemReadReq)
		Expect(read.Address).To(Equal(uint64(0x40)))
		Expect(read.FlowID).To(Equal("Host"))
		Expect(read.Class).To(Equal(messaging.ClassMedium))
		Expect(read.Dst).To(Equal(sim.RemotePort("Dev0.Port")))

		write := h.ToFabric.RetrieveOutgoing().(*messaging.MemWriteReq)
		Expect(write.Address).To(Equal(uint64(0x80)))
		Expect(write.Class).To(Equal(messaging.ClassHigh))
	})

	It("should respect the outstanding-request window", func() {
		src := &sliceSource{injections: []workload.Injection{
			{Time: 0, Bytes: 64, IsRead: true},
			{Time: 0, Bytes: 64, IsRead: true},
			{Time: 0, Bytes: 64, IsRead: true},
		}}
		h := buildHost(src, 2)

		Expect(engine.Run()).To(Succeed())
		Expect(h.NumIssued()).To(Equal(2))

		req := h.ToFabric.RetrieveOutgoing()
		rsp := messaging.RspBuilder{}.
			WithSrc("Dev0.Port").
			WithDst(h.ToFabric.AsRemote()).
			WithReq(req).
			WithTrafficBytes(64).
			BuildReadRsp()
		Expect(h.ToFabric.Deliver(rsp)).To(BeNil())

		Expect(engine.Run()).To(Succeed())

		Expect(h.NumCompleted()).To(Equal(1))
		Expect(h.NumIssued()).To(Equal(3))
	})

	It("should hold future injections until their time", func() {
		src := &sliceSource{injections: []workload.Injection{
			{Time: 100e-9, Bytes: 64, IsRead: true},
		}}
		h := buildHost(src, 16)

		Expect(engine.Run()).To(Succeed())

		Expect(h.NumIssued()).To(Equal(1))
		req := h.ToFabric.RetrieveOutgoing()
		Expect(float64(req.Meta().CreationTime)).
			To(BeNumerically(">=", 100e-9))
	})

	It("should reject a source that runs backward in time", func() {
		src := &sliceSource{injections: []workload.Injection{
			{Time: 100e-9, Bytes: 64, IsRead: true},
			{Time: 50e-9, Bytes: 64, IsRead: true},
		}}
		buildHost(src, 16)

		Expect(func() { _ = engine.Run() }).To(PanicWith(
			BeAssignableToTypeOf(&sim.CausalityViolationError{})))
	})

	It("should retire a write with its ack", func() {
		src := &sliceSource{injections: []workload.Injection{
			{Time: 0, Bytes: 64, IsRead: false},
		}}
		h := buildHost(src, 16)

		Expect(engine.Run()).To(Succeed())

		req := h.ToFabric.RetrieveOutgoing()
		ack := messaging.RspBuilder{}.
			WithSrc("Dev0.Port").
			WithDst(h.ToFabric.AsRemote()).
			WithReq(req).
			WithTrafficBytes(8).
			BuildWriteAck()
		Expect(h.ToFabric.Deliver(ack)).To(BeNil())
		Expect(engine.Run()).To(Succeed())

		Expect(h.NumCompleted()).To(Equal(1))
		Expect(h.NumOutstanding()).To(Equal(0))
	})
})
