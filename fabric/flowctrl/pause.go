package flowctrl

// PauseState tracks, per priority class, whether the downstream neighbor on
// a port has asked the sender to hold off. Credits stay the source of truth
// for whether a flit may leave; pause is the coarser early-warning signal,
// so a sender stops on pause even while credits remain.
type PauseState struct {
	paused []bool
}

// NewPauseState creates a PauseState covering numClasses classes.
func NewPauseState(numClasses int) *PauseState {
	return &PauseState{paused: make([]bool, numClasses)}
}

// Pause marks a class as paused.
func (s *PauseState) Pause(class int) {
	s.paused[class] = true
}

// Resume lifts the pause on a class.
func (s *PauseState) Resume(class int) {
	s.paused[class] = false
}

// IsPaused reports whether the class is currently paused.
func (s *PauseState) IsPaused(class int) bool {
	return s.paused[class]
}
