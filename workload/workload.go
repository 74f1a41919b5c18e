// Package workload generates synthetic CXL memory traffic. A Source tells a
// host what requests to issue and when; a Pattern decides where each request
// goes.
package workload

import (
	"github.com/fabriclab/cxlfabric/sim"
)

// AddressSpace is the size of the addressable memory on each device.
const AddressSpace uint64 = 1 << 30

// An Injection describes one memory request a host should issue.
type Injection struct {
	Time    sim.VTimeInSec
	Device  int
	Address uint64
	Bytes   int
	IsRead  bool
	Class   int
}

// A Source produces the injections of one host. Next returns false when the
// source is exhausted. Injection times are non-decreasing.
type Source interface {
	Next() (Injection, bool)
}

// A Pattern selects the destination device and the address of each request.
type Pattern interface {
	Pick() (device int, address uint64)
}
