// Package topology wires endpoints, switches, and links into a fabric and
// computes the routing tables.
package topology

import (
	"fmt"

	"github.com/fabriclab/cxlfabric/fabric/arbitration"
	"github.com/fabriclab/cxlfabric/fabric/flowctrl"
	"github.com/fabriclab/cxlfabric/fabric/links"
	"github.com/fabriclab/cxlfabric/fabric/messaging"
	"github.com/fabriclab/cxlfabric/fabric/routing"
	"github.com/fabriclab/cxlfabric/fabric/switching/endpoint"
	"github.com/fabriclab/cxlfabric/fabric/switching/switches"
	"github.com/fabriclab/cxlfabric/sim"
)

// An edge is one attachment point of a node: the local port and the node on
// the other side of the link.
type edge struct {
	localPort sim.Port
	peer      int
}

// A node is a switch or an endpoint in the connectivity graph. Edges keep
// their creation order, which makes route computation deterministic.
type node struct {
	sw    *switches.Comp
	ep    *endpoint.Comp
	edges []edge
}

// A Connector builds a fabric piece by piece: add switches, connect
// endpoints and switches with links, then establish the routes.
type Connector struct {
	engine sim.Engine
	freq   sim.Freq

	flitByteSize      int
	vcCapacity        int
	pauseWatermark    int
	resumeWatermark   int
	linkDelay         sim.VTimeInSec
	linkBytesPerCycle int

	policyFactory      func() arbitration.Policy
	useCredits         bool
	dropPolicyFactory  func(name string) flowctrl.DropPolicy
	dropObserver       switches.DropObserver
	completionObserver endpoint.CompletionObserver

	networkName string
	nodes       []*node
	switchNodes []int
	endpoints   []*endpoint.Comp
	links       []*links.Comp
}

// MakeConnector creates a connector with default parameters.
func MakeConnector() Connector {
	return Connector{
		flitByteSize:      64,
		vcCapacity:        4,
		linkBytesPerCycle: 64,
		useCredits:        true,
		policyFactory:     arbitration.NewStrictPriorityPolicy,
	}
}

// WithEngine sets the engine that drives the fabric.
func (c Connector) WithEngine(engine sim.Engine) Connector {
	c.engine = engine
	return c
}

// WithFreq sets the frequency of the switches, links, and endpoints.
func (c Connector) WithFreq(freq sim.Freq) Connector {
	c.freq = freq
	return c
}

// WithFlitByteSize sets the flit size used by all endpoints.
func (c Connector) WithFlitByteSize(n int) Connector {
	c.flitByteSize = n
	return c
}

// WithVCCapacity sets the per-class buffer capacity, in flits, used on every
// ingress. Credit pools are sized to match.
func (c Connector) WithVCCapacity(n int) Connector {
	c.vcCapacity = n
	return c
}

// WithWatermarks enables pause/resume backpressure on all ingress buffers.
func (c Connector) WithWatermarks(pause, resume int) Connector {
	c.pauseWatermark = pause
	c.resumeWatermark = resume
	return c
}

// WithLinkDelay sets the propagation delay of every link.
func (c Connector) WithLinkDelay(delay sim.VTimeInSec) Connector {
	c.linkDelay = delay
	return c
}

// WithLinkBytesPerCycle sets the bandwidth of every link.
func (c Connector) WithLinkBytesPerCycle(bytes int) Connector {
	c.linkBytesPerCycle = bytes
	return c
}

// WithArbitrationPolicy sets the factory that creates one QoS policy per
// egress port.
func (c Connector) WithArbitrationPolicy(
	factory func() arbitration.Policy,
) Connector {
	c.policyFactory = factory
	return c
}

// WithCreditFlowControl selects credit-based flow control (the default).
func (c Connector) WithCreditFlowControl() Connector {
	c.useCredits = true
	c.dropPolicyFactory = nil
	return c
}

// WithDropPolicyFactory disables credits and resolves overflow by dropping.
// The factory is called once per switch with the switch name.
func (c Connector) WithDropPolicyFactory(
	factory func(name string) flowctrl.DropPolicy,
) Connector {
	c.useCredits = false
	c.dropPolicyFactory = factory
	return c
}

// WithDropObserver sets the observer notified of dropped flits.
func (c Connector) WithDropObserver(o switches.DropObserver) Connector {
	c.dropObserver = o
	return c
}

// WithCompletionObserver sets the observer notified of completed messages.
func (c Connector) WithCompletionObserver(
	o endpoint.CompletionObserver,
) Connector {
	c.completionObserver = o
	return c
}

// NewNetwork names the fabric under construction. Component names are
// prefixed with it.
func (c *Connector) NewNetwork(name string) {
	c.networkName = name
}

// AddSwitch creates a switch and returns its ID.
func (c *Connector) AddSwitch() int {
	name := fmt.Sprintf("%s.Switch%d", c.networkName, len(c.switchNodes))

	builder := switches.MakeBuilder().
		WithEngine(c.engine).
		WithFreq(c.freq).
		WithRoutingTable(routing.NewTable()).
		WithArbitrationPolicy(c.policyFactory).
		WithDropObserver(c.dropObserver)

	if c.useCredits {
		builder = builder.WithCreditFlowControl()
	} else {
		builder = builder.WithDropPolicy(c.dropPolicyFactory(name))
	}

	sw := builder.Build(name)

	c.nodes = append(c.nodes, &node{sw: sw})
	c.switchNodes = append(c.switchNodes, len(c.nodes)-1)

	return len(c.nodes) - 1
}

// ConnectEndpoint creates an endpoint for the given device ports and links
// it to a switch. It returns the endpoint.
func (c *Connector) ConnectEndpoint(
	switchID int,
	name string,
	devicePorts []sim.Port,
) *endpoint.Comp {
	epBuilder := endpoint.MakeBuilder().
		WithEngine(c.engine).
		WithFreq(c.freq).
		WithFlitByteSize(c.flitByteSize).
		WithRecvBufCapacity(c.vcCapacity * messaging.NumClasses).
		WithCreditPerClass(c.vcCapacity).
		WithCompletionObserver(c.completionObserver)

	if !c.useCredits {
		epBuilder = epBuilder.WithoutCreditFlowControl()
	}

	ep := epBuilder.Build(name)
	for _, port := range devicePorts {
		ep.PlugIn(port)
	}

	c.nodes = append(c.nodes, &node{ep: ep})
	epNode := len(c.nodes) - 1
	c.endpoints = append(c.endpoints, ep)

	swPort := c.addSwitchPort(switchID, ep.NetworkPort.AsRemote())
	c.linkPorts(switchID, swPort, epNode, ep.NetworkPort)

	return ep
}

// ConnectSwitches links two switches.
func (c *Connector) ConnectSwitches(a, b int) {
	aName := c.nodes[a].sw.Name()
	bName := c.nodes[b].sw.Name()

	aPortName := fmt.Sprintf("%s.To.%s", aName, bName)
	bPortName := fmt.Sprintf("%s.To.%s", bName, aName)

	aPort := c.newSwitchPort(a, aPortName, sim.RemotePort(bPortName))
	bPort := c.newSwitchPort(b, bPortName, sim.RemotePort(aPortName))

	c.linkPorts(a, aPort, b, bPort)
}

// addSwitchPort equips a switch with a port facing the given remote.
func (c *Connector) addSwitchPort(
	switchID int,
	remote sim.RemotePort,
) sim.Port {
	sw := c.nodes[switchID].sw
	name := fmt.Sprintf("%s.Port%d", sw.Name(), len(sw.Ports()))

	return c.newSwitchPort(switchID, name, remote)
}

func (c *Connector) newSwitchPort(
	switchID int,
	name string,
	remote sim.RemotePort,
) sim.Port {
	sw := c.nodes[switchID].sw
	port := sim.NewPort(sw, 4, 4, name)

	adder := switches.MakeSwitchPortAdder(sw).
		WithPorts(port, remote).
		WithVCCapacity(c.vcCapacity).
		WithCreditPerClass(c.vcCapacity)

	if c.pauseWatermark > 0 {
		adder = adder.WithWatermarks(c.pauseWatermark, c.resumeWatermark)
	}

	adder.AddPort()

	return port
}

// linkPorts joins two ports with a link and records the edge in the graph.
func (c *Connector) linkPorts(
	nodeA int, portA sim.Port,
	nodeB int, portB sim.Port,
) {
	name := fmt.Sprintf("%s.Link%d", c.networkName, len(c.links))

	link := links.MakeBuilder().
		WithEngine(c.engine).
		WithFreq(c.freq).
		WithDelay(c.linkDelay).
		WithBytesPerCycle(c.linkBytesPerCycle).
		Build(name)
	link.PlugIn(portA)
	link.PlugIn(portB)

	c.links = append(c.links, link)

	c.nodes[nodeA].edges = append(c.nodes[nodeA].edges,
		edge{localPort: portA, peer: nodeB})
	c.nodes[nodeB].edges = append(c.nodes[nodeB].edges,
		edge{localPort: portB, peer: nodeA})
}

// EstablishRoute fills the routing table of every switch with the first
// shortest path toward every device port, found by breadth-first search
// from each destination endpoint. Every switch is also required to route
// toward every device port, so an unreachable endpoint fails run-start
// validation instead of panicking mid-run.
func (c *Connector) EstablishRoute() {
	for i, n := range c.nodes {
		if n.ep == nil {
			continue
		}

		dist := c.bfsFrom(i)

		for _, swNode := range c.switchNodes {
			sw := c.nodes[swNode].sw

			for _, devPort := range n.ep.DevicePorts {
				sw.RequireRoutesTo(devPort.AsRemote())
			}

			next := c.nextHopToward(swNode, dist)
			if next == nil {
				continue
			}

			table := sw.GetRoutingTable()
			for _, devPort := range n.ep.DevicePorts {
				table.DefineRoute(devPort.AsRemote(), next)
			}
		}
	}
}

// Endpoints returns the endpoints in creation order.
func (c *Connector) Endpoints() []*endpoint.Comp {
	return c.endpoints
}

// Switches returns the switches in creation order.
func (c *Connector) Switches() []*switches.Comp {
	sws := make([]*switches.Comp, 0, len(c.switchNodes))
	for _, i := range c.switchNodes {
		sws = append(sws, c.nodes[i].sw)
	}

	return sws
}

// Links returns the links in creation order.
func (c *Connector) Links() []*links.Comp {
	return c.links
}

// bfsFrom returns the hop distance of every node from the start node, or -1
// for unreachable nodes.
func (c *Connector) bfsFrom(start int) []int {
	dist := make([]int, len(c.nodes))
	for i := range dist {
		dist[i] = -1
	}
	dist[start] = 0

	queue := []int{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, e := range c.nodes[current].edges {
			if dist[e.peer] >= 0 {
				continue
			}

			dist[e.peer] = dist[current] + 1
			queue = append(queue, e.peer)
		}
	}

	return dist
}

// nextHopToward returns the switch-local port on the first shortest path
// toward the BFS origin, or nil if the origin is unreachable.
func (c *Connector) nextHopToward(swNode int, dist []int) sim.Port {
	own := dist[swNode]
	if own < 0 {
		return nil
	}

	for _, e := range c.nodes[swNode].edges {
		if dist[e.peer] == own-1 {
			return e.localPort
		}
	}

	return nil
}
