// Package routing provides the static routing tables the fabric follows.
//
// The core never computes paths. Tables are produced by an external
// collaborator (see the topology package) before a run starts and are
// read-only afterward.
package routing

import "github.com/fabriclab/cxlfabric/sim"

// Table is a routing table that can find the next-hop egress port according
// to the final destination.
type Table interface {
	// FindPort returns the local egress port toward the final destination,
	// or nil if no route is known.
	FindPort(dst sim.RemotePort) sim.Port

	DefineRoute(finalDst sim.RemotePort, outputPort sim.Port)
	DefineDefaultRoute(outputPort sim.Port)

	// Destinations lists all explicitly routed destinations, for run-start
	// validation.
	Destinations() []sim.RemotePort
}

// NewTable creates a new Table.
func NewTable() Table {
	t := &table{}
	t.t = make(map[sim.RemotePort]sim.Port)

	return t
}

type table struct {
	t           map[sim.RemotePort]sim.Port
	order       []sim.RemotePort
	defaultPort sim.Port
}

func (t *table) FindPort(dst sim.RemotePort) sim.Port {
	out, found := t.t[dst]
	if found {
		return out
	}

	return t.defaultPort
}

func (t *table) DefineRoute(finalDst sim.RemotePort, outputPort sim.Port) {
	if _, found := t.t[finalDst]; !found {
		t.order = append(t.order, finalDst)
	}

	t.t[finalDst] = outputPort
}

func (t *table) DefineDefaultRoute(outputPort sim.Port) {
	t.defaultPort = outputPort
}

func (t *table) Destinations() []sim.RemotePort {
	return t.order
}
