package arbitration

// NewWFQPolicy creates a weighted fair queueing policy. Each flow has a
// weight; flows absent from the map use defaultWeight. The long-run byte
// share of an active flow converges to weight over the sum of active
// weights, with burstiness bounded by one maximum packet size.
//
// The virtual clock is self-clocked: it advances to the finish tag of the
// flit in service, which avoids tracking the active flow set explicitly.
func NewWFQPolicy(weights map[string]float64, defaultWeight float64) Policy {
	if defaultWeight <= 0 {
		defaultWeight = 1
	}

	return &wfq{
		weights:       weights,
		defaultWeight: defaultWeight,
		lastFinish:    make(map[string]float64),
	}
}

type wfq struct {
	weights       map[string]float64
	defaultWeight float64

	virtualTime float64
	lastFinish  map[string]float64
}

func (p *wfq) Select(candidates []Candidate) int {
	best := -1
	bestFinish := 0.0

	for i, c := range candidates {
		finish := p.finishTag(c)
		if best == -1 || finish < bestFinish {
			best = i
			bestFinish = finish
		}
	}

	return best
}

func (p *wfq) Grant(c Candidate) {
	finish := p.finishTag(c)
	p.lastFinish[c.Flit.FlowID] = finish
	p.virtualTime = finish
}

// finishTag computes the virtual finish time of the candidate's head flit:
// max(flow's previous finish, current virtual time) + size/weight.
func (p *wfq) finishTag(c Candidate) float64 {
	flowID := c.Flit.FlowID

	start := p.virtualTime
	if last, ok := p.lastFinish[flowID]; ok && last > start {
		start = last
	}

	return start + float64(c.Flit.TrafficBytes)/p.weightOf(flowID)
}

func (p *wfq) weightOf(flowID string) float64 {
	if w, ok := p.weights[flowID]; ok && w > 0 {
		return w
	}

	return p.defaultWeight
}
