package workload

import (
	"github.com/iti/rngstream"

	"github.com/fabriclab/cxlfabric/sim"
)

// PacedSource spaces requests evenly over time with a small jitter, the
// steady-state load generator.
type PacedSource struct {
	rng *rngstream.RngStream

	pattern      Pattern
	interval     sim.VTimeInSec
	jitter       float64
	numRequests  int
	accessBytes  int
	class        int
	readFraction float64

	issued int
}

// Next returns the next injection of the source.
func (s *PacedSource) Next() (Injection, bool) {
	if s.issued >= s.numRequests {
		return Injection{}, false
	}

	base := sim.VTimeInSec(s.issued) * s.interval
	time := base + s.interval*sim.VTimeInSec(s.rng.RandU01()*s.jitter)

	device, address := s.pattern.Pick()

	injection := Injection{
		Time:    time,
		Device:  device,
		Address: address,
		Bytes:   s.accessBytes,
		IsRead:  s.rng.RandU01() < s.readFraction,
		Class:   s.class,
	}

	s.issued++

	return injection, true
}

// BurstySource emits requests in tight bursts separated by idle periods,
// modeling batch jobs and synchronized applications.
type BurstySource struct {
	rng *rngstream.RngStream

	pattern       Pattern
	burstSize     int
	burstInterval sim.VTimeInSec
	intraBurstGap sim.VTimeInSec
	numRequests   int
	accessBytes   int
	class         int
	readFraction  float64

	issued int
}

// Next returns the next injection of the source.
func (s *BurstySource) Next() (Injection, bool) {
	if s.issued >= s.numRequests {
		return Injection{}, false
	}

	burst := s.issued / s.burstSize
	posInBurst := s.issued % s.burstSize
	time := sim.VTimeInSec(burst)*s.burstInterval +
		sim.VTimeInSec(posInBurst)*s.intraBurstGap

	device, address := s.pattern.Pick()

	injection := Injection{
		Time:    time,
		Device:  device,
		Address: address,
		Bytes:   s.accessBytes,
		IsRead:  s.rng.RandU01() < s.readFraction,
		Class:   s.class,
	}

	s.issued++

	return injection, true
}

// Builder can help building workload sources.
type Builder struct {
	pattern       Pattern
	interval      sim.VTimeInSec
	jitter        float64
	numRequests   int
	accessBytes   int
	class         int
	readFraction  float64
	burstSize     int
	burstInterval sim.VTimeInSec
	intraBurstGap sim.VTimeInSec
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		jitter:        0.1,
		numRequests:   1000,
		accessBytes:   64,
		class:         1,
		readFraction:  1.0,
		burstSize:     10,
		intraBurstGap: 10e-9,
	}
}

// WithPattern sets the destination pattern of the source to build.
func (b Builder) WithPattern(p Pattern) Builder {
	b.pattern = p
	return b
}

// WithInterval sets the mean time between requests.
func (b Builder) WithInterval(interval sim.VTimeInSec) Builder {
	b.interval = interval
	return b
}

// WithJitter sets the jitter as a fraction of the interval.
func (b Builder) WithJitter(jitter float64) Builder {
	b.jitter = jitter
	return b
}

// WithNumRequests sets the total number of requests the source emits.
func (b Builder) WithNumRequests(n int) Builder {
	b.numRequests = n
	return b
}

// WithAccessBytes sets the payload size of each request.
func (b Builder) WithAccessBytes(bytes int) Builder {
	b.accessBytes = bytes
	return b
}

// WithClass sets the priority class of the generated requests.
func (b Builder) WithClass(class int) Builder {
	b.class = class
	return b
}

// WithReadFraction sets the fraction of requests that are reads.
func (b Builder) WithReadFraction(f float64) Builder {
	b.readFraction = f
	return b
}

// WithBurst configures burst emission for BuildBursty.
func (b Builder) WithBurst(
	size int,
	interval sim.VTimeInSec,
) Builder {
	b.burstSize = size
	b.burstInterval = interval
	return b
}

// WithIntraBurstGap sets the spacing of requests inside one burst.
func (b Builder) WithIntraBurstGap(gap sim.VTimeInSec) Builder {
	b.intraBurstGap = gap
	return b
}

// Build creates a paced source. The name seeds the random stream.
func (b Builder) Build(name string) *PacedSource {
	b.patternMustBeGiven()
	b.intervalMustBePositive()
	b.jitterMustKeepOrder()

	return &PacedSource{
		rng:          rngstream.New(name),
		pattern:      b.pattern,
		interval:     b.interval,
		jitter:       b.jitter,
		numRequests:  b.numRequests,
		accessBytes:  b.accessBytes,
		class:        b.class,
		readFraction: b.readFraction,
	}
}

// BuildBursty creates a bursty source. The name seeds the random stream.
func (b Builder) BuildBursty(name string) *BurstySource {
	b.patternMustBeGiven()

	if b.burstInterval <= 0 {
		panic("burst interval must be positive")
	}

	return &BurstySource{
		rng:           rngstream.New(name),
		pattern:       b.pattern,
		burstSize:     b.burstSize,
		burstInterval: b.burstInterval,
		intraBurstGap: b.intraBurstGap,
		numRequests:   b.numRequests,
		accessBytes:   b.accessBytes,
		class:         b.class,
		readFraction:  b.readFraction,
	}
}

func (b Builder) patternMustBeGiven() {
	if b.pattern == nil {
		panic("workload source requires a pattern")
	}
}

func (b Builder) intervalMustBePositive() {
	if b.interval <= 0 {
		panic("workload interval must be positive")
	}
}

// A jitter of one interval or more could push an injection past its
// successor, breaking the non-decreasing timestamp contract.
func (b Builder) jitterMustKeepOrder() {
	if b.jitter < 0 || b.jitter >= 1 {
		panic("workload jitter must be in [0, 1)")
	}
}
