// Package flowctrl provides credit-based flow control and the hop-local
// backpressure signals layered on top of it.
package flowctrl

import (
	"github.com/fabriclab/cxlfabric/sim"
)

// A CreditCounter tracks, per priority class, the buffer space one sender
// has reserved at one downstream receiver. A sender may transmit a flit only
// while credits remain for the flit's class. Credits are consumed on send
// and returned when the receiver drains its credited buffer; the return is a
// scheduled message, never instantaneous.
type CreditCounter struct {
	name       string
	timeTeller sim.TimeTeller

	available []int
	issued    []uint64
	consumed  []uint64
	returned  []uint64
}

// NewCreditCounter creates a counter with perClass initial credits for each
// of numClasses classes.
func NewCreditCounter(
	name string,
	timeTeller sim.TimeTeller,
	numClasses, perClass int,
) *CreditCounter {
	c := &CreditCounter{
		name:       name,
		timeTeller: timeTeller,
		available:  make([]int, numClasses),
		issued:     make([]uint64, numClasses),
		consumed:   make([]uint64, numClasses),
		returned:   make([]uint64, numClasses),
	}

	for class := range c.available {
		c.available[class] = perClass
		c.issued[class] = uint64(perClass)
	}

	return c
}

// Available returns the number of credits left for a class.
func (c *CreditCounter) Available(class int) int {
	return c.available[class]
}

// Consume spends one credit for a class. Driving the counter negative is an
// internal invariant violation and panics with a CreditUnderflowError.
func (c *CreditCounter) Consume(class int) {
	if c.available[class] <= 0 {
		now := sim.VTimeInSec(0)
		if c.timeTeller != nil {
			now = c.timeTeller.CurrentTime()
		}

		panic(&sim.CreditUnderflowError{
			Now:       now,
			Component: c.name,
			Class:     class,
		})
	}

	c.available[class]--
	c.consumed[class]++
}

// Return gives back count credits for a class.
func (c *CreditCounter) Return(class, count int) {
	c.available[class] += count
	c.returned[class] += uint64(count)
}

// Conserved checks the credit conservation invariant for a class:
// issued - consumed + returned equals the credits currently available.
func (c *CreditCounter) Conserved(class int) bool {
	balance := int64(c.issued[class]) -
		int64(c.consumed[class]) +
		int64(c.returned[class])

	return balance == int64(c.available[class])
}
