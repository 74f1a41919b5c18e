package arbitration

// NewDRRPolicy creates a deficit round robin policy. The flows form a ring
// swept by a service pointer; every visit banks quantum bytes for the
// visited flow, and a flow is served only once its bank covers its head
// flit, so unfairness stays bounded by one maximum packet size. A quantum
// below the flit size still works: the sweep just takes more laps before
// the flow is served.
func NewDRRPolicy(quantum int) Policy {
	if quantum <= 0 {
		quantum = 1
	}

	return &drr{
		quantum: quantum,
		deficit: make(map[string]int),
	}
}

type drr struct {
	quantum int

	ring    []string
	ringPos int
	inRing  map[string]bool
	deficit map[string]int

	// Visits staged by Select and committed by Grant. Select never touches
	// the deficits, so the arbiter can re-propose within a slot without
	// flows earning extra quanta.
	stagedVisits map[string]int
}

// Select runs the sweep for this slot. A parked flow whose banked deficit
// still covers its head flit keeps the grant without anyone accruing;
// otherwise the pointer sweeps the ring, banking one quantum per visit,
// until a visited flow's bank covers its head.
func (p *drr) Select(candidates []Candidate) int {
	p.admitFlows(candidates)
	p.stagedVisits = nil

	byFlow := indexByFlow(candidates)
	if len(byFlow) == 0 || len(p.ring) == 0 {
		return -1
	}

	holder := p.ring[p.ringPos]
	if idx, contending := byFlow[holder]; contending &&
		p.deficit[holder] >= candidates[idx].Flit.TrafficBytes {
		return idx
	}

	staged := make(map[string]int)
	for step := 1; ; step++ {
		flowID := p.ring[(p.ringPos+step)%len(p.ring)]

		idx, contending := byFlow[flowID]
		if !contending {
			continue
		}

		staged[flowID]++

		banked := p.deficit[flowID] + staged[flowID]*p.quantum
		if banked >= candidates[idx].Flit.TrafficBytes {
			p.stagedVisits = staged
			return idx
		}
	}
}

// Grant commits the visits staged by the matching Select, charges the
// winner, and parks the pointer at it so a remaining bank is spent before
// the sweep moves on.
func (p *drr) Grant(c Candidate) {
	for flowID, visits := range p.stagedVisits {
		p.deficit[flowID] += visits * p.quantum
	}
	p.stagedVisits = nil

	flowID := c.Flit.FlowID
	p.deficit[flowID] -= c.Flit.TrafficBytes

	for i, f := range p.ring {
		if f == flowID {
			p.ringPos = i
			break
		}
	}
}

func (p *drr) admitFlows(candidates []Candidate) {
	if p.inRing == nil {
		p.inRing = make(map[string]bool)
	}

	for _, c := range candidates {
		flowID := c.Flit.FlowID
		if !p.inRing[flowID] {
			p.inRing[flowID] = true
			p.ring = append(p.ring, flowID)
		}
	}
}

func indexByFlow(candidates []Candidate) map[string]int {
	byFlow := make(map[string]int, len(candidates))
	for i, c := range candidates {
		if _, found := byFlow[c.Flit.FlowID]; !found {
			byFlow[c.Flit.FlowID] = i
		}
	}

	return byFlow
}
