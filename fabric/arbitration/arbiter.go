// Package arbitration provides the crossbar arbiter and the QoS policies
// that decide which queued flit advances each slot.
package arbitration

import (
	"hash/fnv"
	"sort"

	"github.com/fabriclab/cxlfabric/fabric/messaging"
	"github.com/fabriclab/cxlfabric/sim"
)

// A Contender is one virtual-channel buffer competing for crossbar
// bandwidth. The head of the buffer, if any, is a *messaging.Flit whose
// OutputPort has already been assigned by the routing stage.
type Contender struct {
	Buffer  sim.Buffer
	Ingress sim.RemotePort
	Class   int
}

// A Candidate is a contender with a non-empty buffer, paired with its head
// flit, as presented to a policy.
type Candidate struct {
	Contender Contender
	Flit      *messaging.Flit
}

// CreditChecker reports whether the egress port holds at least one credit
// for the given class. The arbiter never selects a candidate whose egress
// has no credit.
type CreditChecker func(egress sim.RemotePort, class int) bool

// An Arbiter selects, for each allocation slot, a set of
// (ingress VC, egress port) winners such that each egress services at most
// one ingress and each ingress port transmits at most one flit.
type Arbiter interface {
	AddContender(c Contender)
	Arbitrate() []Candidate
}

// NewXBarArbiter creates a crossbar arbiter that runs iterative round-robin
// matching. Each egress port gets its own policy instance from the factory.
func NewXBarArbiter(
	policyFactory func() Policy,
	creditChecker CreditChecker,
) *XBarArbiter {
	return &XBarArbiter{
		policyFactory: policyFactory,
		creditChecker: creditChecker,
		policies:      make(map[sim.RemotePort]Policy),
	}
}

// XBarArbiter matches ingress virtual channels to egress ports with
// iterative round-robin matching: in each round, every unmatched egress
// proposes to its policy-preferred unmatched ingress; each ingress grants at
// most one proposal; rounds repeat until no new matches form. This trades
// exact maximum matching for cost linear in the number of ports per slot.
type XBarArbiter struct {
	policyFactory func() Policy
	creditChecker CreditChecker
	policies      map[sim.RemotePort]Policy

	contenders []Contender
	slot       uint64
}

// AddContender registers a virtual channel with the arbiter.
func (a *XBarArbiter) AddContender(c Contender) {
	a.contenders = append(a.contenders, c)
}

// Arbitrate computes the winners of the current allocation slot.
func (a *XBarArbiter) Arbitrate() []Candidate {
	byEgress := a.collectCandidates()
	if len(byEgress) == 0 {
		a.slot++
		return nil
	}

	egresses := sortedEgresses(byEgress)
	rotate(egresses, int(a.slot)%len(egresses))

	matchedIngress := make(map[sim.RemotePort]bool)
	matchedEgress := make(map[sim.RemotePort]bool)
	var winners []Candidate

	for {
		proposals := a.proposalRound(
			egresses, byEgress, matchedIngress, matchedEgress)
		if len(proposals) == 0 {
			break
		}

		for _, p := range proposals {
			ingress := p.candidate.Contender.Ingress
			if matchedIngress[ingress] {
				continue
			}

			matchedIngress[ingress] = true
			matchedEgress[p.egress] = true
			a.policyFor(p.egress).Grant(p.candidate)
			winners = append(winners, p.candidate)
		}
	}

	a.slot++

	return winners
}

type proposal struct {
	egress    sim.RemotePort
	candidate Candidate
}

// proposalRound lets every unmatched egress pick its preferred unmatched
// ingress. An ingress may receive several proposals; the grant loop above
// keeps the first in rotated egress order.
func (a *XBarArbiter) proposalRound(
	egresses []sim.RemotePort,
	byEgress map[sim.RemotePort][]Candidate,
	matchedIngress, matchedEgress map[sim.RemotePort]bool,
) []proposal {
	var proposals []proposal

	for _, egress := range egresses {
		if matchedEgress[egress] {
			continue
		}

		var eligible []Candidate
		for _, c := range byEgress[egress] {
			if matchedIngress[c.Contender.Ingress] {
				continue
			}
			eligible = append(eligible, c)
		}

		if len(eligible) == 0 {
			continue
		}

		sortCandidates(eligible, a.slot)

		idx := a.policyFor(egress).Select(eligible)
		if idx < 0 {
			continue
		}

		proposals = append(proposals, proposal{
			egress:    egress,
			candidate: eligible[idx],
		})
	}

	return proposals
}

func (a *XBarArbiter) collectCandidates() map[sim.RemotePort][]Candidate {
	byEgress := make(map[sim.RemotePort][]Candidate)

	for _, c := range a.contenders {
		item := c.Buffer.Peek()
		if item == nil {
			continue
		}

		flit := item.(*messaging.Flit)
		egress := flit.OutputPort

		if a.creditChecker != nil && !a.creditChecker(egress, c.Class) {
			continue
		}

		byEgress[egress] = append(byEgress[egress], Candidate{
			Contender: c,
			Flit:      flit,
		})
	}

	return byEgress
}

func (a *XBarArbiter) policyFor(egress sim.RemotePort) Policy {
	p, found := a.policies[egress]
	if !found {
		p = a.policyFactory()
		a.policies[egress] = p
	}

	return p
}

func sortedEgresses(
	byEgress map[sim.RemotePort][]Candidate,
) []sim.RemotePort {
	egresses := make([]sim.RemotePort, 0, len(byEgress))
	for egress := range byEgress {
		egresses = append(egresses, egress)
	}

	sort.Slice(egresses, func(i, j int) bool {
		return egresses[i] < egresses[j]
	})

	return egresses
}

func rotate(ports []sim.RemotePort, n int) {
	if len(ports) == 0 {
		return
	}

	n %= len(ports)
	rotated := append(ports[n:len(ports):len(ports)], ports[:n]...)
	copy(ports, rotated)
}

// sortCandidates establishes the deterministic order policies see. Within
// equal priority, the flow-id hash rotated by the slot number breaks ties so
// that no flow starves on hash collisions.
func sortCandidates(candidates []Candidate, slot uint64) {
	n := uint64(len(candidates))
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.Contender.Class != cj.Contender.Class {
			return ci.Contender.Class > cj.Contender.Class
		}

		hi := (flowHash(ci.Flit.FlowID) + slot) % n
		hj := (flowHash(cj.Flit.FlowID) + slot) % n
		if hi != hj {
			return hi < hj
		}

		return ci.Contender.Ingress < cj.Contender.Ingress
	})
}

func flowHash(flowID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(flowID))
	return h.Sum64()
}
