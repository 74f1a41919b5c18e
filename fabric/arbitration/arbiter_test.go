package arbitration

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fabriclab/cxlfabric/fabric/messaging"
	"github.com/fabriclab/cxlfabric/sim"
)

func newFlit(
	flowID string,
	class, bytes int,
	egress sim.RemotePort,
) *messaging.Flit {
	req := messaging.MemReqBuilder{}.
		WithSrc("Src.Port").
		WithDst("Dst.Port").
		WithFlowID(flowID).
		WithClass(class).
		WithAccessBytes(bytes).
		BuildRead()

	flit := messaging.FlitBuilder{}.
		WithSrc("Src.Port").
		WithDst("Dst.Port").
		WithMsg(req).
		WithNumFlitInMsg(1).
		WithTrafficBytes(bytes).
		Build()
	flit.OutputPort = egress

	return flit
}

// vc is one backlogged virtual channel that refills its head after a win.
type vc struct {
	buf    sim.Buffer
	flowID string
	class  int
	bytes  int
	egress sim.RemotePort
}

func newVC(
	name, flowID string,
	class, bytes int,
	ingress sim.RemotePort,
	egress sim.RemotePort,
	arb Arbiter,
) *vc {
	v := &vc{
		buf:    sim.NewBuffer(name, 4),
		flowID: flowID,
		class:  class,
		bytes:  bytes,
		egress: egress,
	}
	v.buf.Push(newFlit(flowID, class, bytes, egress))

	arb.AddContender(Contender{
		Buffer:  v.buf,
		Ingress: ingress,
		Class:   class,
	})

	return v
}

func (v *vc) refillAfterWin(winners []Candidate) bool {
	for _, w := range winners {
		if w.Flit.FlowID == v.flowID {
			v.buf.Pop()
			v.buf.Push(newFlit(v.flowID, v.class, v.bytes, v.egress))

			return true
		}
	}

	return false
}

var _ = Describe("XBarArbiter", func() {
	It("should grant two disjoint pairs in one slot", func() {
		arb := NewXBarArbiter(NewStrictPriorityPolicy, nil)
		newVC("VC0", "A", 1, 64, "In0", "Out0", arb)
		newVC("VC1", "B", 1, 64, "In1", "Out1", arb)

		winners := arb.Arbitrate()

		Expect(winners).To(HaveLen(2))
	})

	It("should serve each egress at most once per slot", func() {
		arb := NewXBarArbiter(NewStrictPriorityPolicy, nil)
		newVC("VC0", "A", 1, 64, "In0", "Out0", arb)
		newVC("VC1", "B", 1, 64, "In1", "Out0", arb)

		winners := arb.Arbitrate()

		Expect(winners).To(HaveLen(1))
	})

	It("should let each ingress transmit at most once per slot", func() {
		arb := NewXBarArbiter(NewStrictPriorityPolicy, nil)
		newVC("VC0", "A", 1, 64, "In0", "Out0", arb)
		newVC("VC1", "B", 2, 64, "In0", "Out1", arb)

		winners := arb.Arbitrate()

		Expect(winners).To(HaveLen(1))
	})

	It("should skip candidates whose egress has no credit", func() {
		noCredit := func(_ sim.RemotePort, _ int) bool { return false }
		arb := NewXBarArbiter(NewStrictPriorityPolicy, noCredit)
		newVC("VC0", "A", 1, 64, "In0", "Out0", arb)

		winners := arb.Arbitrate()

		Expect(winners).To(BeEmpty())
	})

	It("should return nothing when all buffers are empty", func() {
		arb := NewXBarArbiter(NewStrictPriorityPolicy, nil)
		v := newVC("VC0", "A", 1, 64, "In0", "Out0", arb)
		v.buf.Pop()

		Expect(arb.Arbitrate()).To(BeEmpty())
	})

	It("should not starve a flow that shares an egress", func() {
		arb := NewXBarArbiter(NewStrictPriorityPolicy, nil)
		vcs := []*vc{
			newVC("VC0", "A", 1, 64, "In0", "Out0", arb),
			newVC("VC1", "B", 1, 64, "In1", "Out0", arb),
		}

		wins := map[string]int{}
		for slot := 0; slot < 100; slot++ {
			winners := arb.Arbitrate()
			Expect(winners).To(HaveLen(1))

			wins[winners[0].Flit.FlowID]++
			for _, v := range vcs {
				v.refillAfterWin(winners)
			}
		}

		Expect(wins["A"]).To(BeNumerically(">", 0))
		Expect(wins["B"]).To(BeNumerically(">", 0))
	})
})

var _ = Describe("StrictPriorityPolicy", func() {
	It("should always serve the highest backlogged class", func() {
		arb := NewXBarArbiter(NewStrictPriorityPolicy, nil)
		high := newVC("VCHigh", "H", messaging.ClassHigh, 64,
			"In0", "Out0", arb)
		low := newVC("VCLow", "L", messaging.ClassLow, 64,
			"In1", "Out0", arb)

		for slot := 0; slot < 50; slot++ {
			winners := arb.Arbitrate()
			Expect(winners).To(HaveLen(1))
			Expect(winners[0].Flit.FlowID).To(Equal("H"))

			high.refillAfterWin(winners)
		}

		Expect(low.buf.Size()).To(Equal(1))
	})

	It("should serve the lower class once the higher drains", func() {
		arb := NewXBarArbiter(NewStrictPriorityPolicy, nil)
		newVC("VCHigh", "H", messaging.ClassHigh, 64, "In0", "Out0", arb)
		newVC("VCLow", "L", messaging.ClassLow, 64, "In1", "Out0", arb)

		winners := arb.Arbitrate()
		Expect(winners[0].Flit.FlowID).To(Equal("H"))
		winners[0].Contender.Buffer.Pop()

		winners = arb.Arbitrate()
		Expect(winners).To(HaveLen(1))
		Expect(winners[0].Flit.FlowID).To(Equal("L"))
	})
})
