package arbitration

// A Policy picks, among the contending virtual channels at one egress port,
// the winner of the current allocation slot. Select must be side-effect
// free; the arbiter calls Grant once a proposal actually wins, which is when
// the policy commits its bookkeeping. Switches hold one policy instance per
// egress port, selected at configuration time.
type Policy interface {
	// Select returns the index of the preferred candidate, or -1 if the
	// policy declines to serve any candidate this slot.
	Select(candidates []Candidate) int

	// Grant commits the state updates for a winning candidate.
	Grant(c Candidate)
}

// NewStrictPriorityPolicy creates a policy that always serves the highest
// priority class with a non-empty buffer. Lower classes starve under
// sustained high-class load; that is the documented trade-off of this
// policy.
func NewStrictPriorityPolicy() Policy {
	return &strictPriority{}
}

type strictPriority struct{}

// Select picks the first candidate. Candidates arrive sorted by class (high
// first) with rotated-hash tie-breaking, so the head is the winner.
func (p *strictPriority) Select(candidates []Candidate) int {
	if len(candidates) == 0 {
		return -1
	}

	return 0
}

func (p *strictPriority) Grant(_ Candidate) {}
