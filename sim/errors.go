package sim

import "fmt"

// A CausalityViolationError reports an event scheduled or injected in the
// past. It always indicates a modeling bug, so the engine treats it as fatal.
type CausalityViolationError struct {
	Now       VTimeInSec
	EventTime VTimeInSec
	Component string
}

func (e *CausalityViolationError) Error() string {
	return fmt.Sprintf(
		"causality violation at %s, time %.10f: event scheduled at %.10f",
		e.Component, e.Now, e.EventTime)
}

// A CreditUnderflowError reports a credit counter driven negative. It is an
// internal invariant violation and always a core bug.
type CreditUnderflowError struct {
	Now       VTimeInSec
	Component string
	Class     int
}

func (e *CreditUnderflowError) Error() string {
	return fmt.Sprintf(
		"credit underflow at %s, time %.10f, class %d",
		e.Component, e.Now, e.Class)
}

// An UnconfiguredArbiterError reports a switch that has no arbitration policy
// configured. It is detected by run-start validation, before the first event
// is processed.
type UnconfiguredArbiterError struct {
	Component string
}

func (e *UnconfiguredArbiterError) Error() string {
	return fmt.Sprintf("no arbitration policy configured on %s", e.Component)
}

// A NoRouteError reports a destination for which a routing table lookup
// returned nothing. It is detected by run-start validation.
type NoRouteError struct {
	Component   string
	Destination string
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("%s has no route toward %s",
		e.Component, e.Destination)
}

// A BufferOverflowError reports an enqueue beyond a buffer's capacity. It is
// not fatal; the configured drop policy resolves it and the drop is recorded.
type BufferOverflowError struct {
	Now    VTimeInSec
	Buffer string
}

func (e *BufferOverflowError) Error() string {
	return fmt.Sprintf("buffer %s overflow at time %.10f", e.Buffer, e.Now)
}
