package topology

import (
	"fmt"

	"github.com/fabriclab/cxlfabric/sim"
)

// SpineLeafBuilder builds the two-tier fabric: every leaf switch connects
// to every spine switch, hosts attach to the host leaves and devices to the
// remaining leaves.
type SpineLeafBuilder struct {
	connector     Connector
	numSpines     int
	numLeaves     int
	numHostLeaves int
	hostPorts     []sim.Port
	devicePorts   []sim.Port
}

// MakeSpineLeafBuilder creates a new builder with default parameters.
func MakeSpineLeafBuilder() SpineLeafBuilder {
	return SpineLeafBuilder{
		connector: MakeConnector(),
		numSpines: 2,
		numLeaves: 3,
	}
}

// WithConnector sets the connector that carries the fabric parameters.
func (b SpineLeafBuilder) WithConnector(c Connector) SpineLeafBuilder {
	b.connector = c
	return b
}

// WithNumSpines sets the number of spine switches.
func (b SpineLeafBuilder) WithNumSpines(n int) SpineLeafBuilder {
	b.numSpines = n
	return b
}

// WithNumLeaves sets the number of leaf switches.
func (b SpineLeafBuilder) WithNumLeaves(n int) SpineLeafBuilder {
	b.numLeaves = n
	return b
}

// WithNumHostLeaves sets how many leaves carry hosts; the rest carry
// devices. Zero keeps the default split of half the leaves, rounded up.
func (b SpineLeafBuilder) WithNumHostLeaves(n int) SpineLeafBuilder {
	b.numHostLeaves = n
	return b
}

// WithHostPorts sets the device ports of the hosts. Hosts are spread
// round-robin over the host leaves.
func (b SpineLeafBuilder) WithHostPorts(ports []sim.Port) SpineLeafBuilder {
	b.hostPorts = ports
	return b
}

// WithDevicePorts sets the device ports of the memory devices. Devices are
// spread round-robin over the device leaves.
func (b SpineLeafBuilder) WithDevicePorts(ports []sim.Port) SpineLeafBuilder {
	b.devicePorts = ports
	return b
}

// Build creates the fabric.
func (b SpineLeafBuilder) Build(name string) *Fabric {
	b.mustBeValid()

	numHostLeaves := b.numHostLeaves
	if numHostLeaves == 0 {
		numHostLeaves = (b.numLeaves + 1) / 2
	}

	c := b.connector
	c.NewNetwork(name)

	spines := make([]int, b.numSpines)
	for i := range spines {
		spines[i] = c.AddSwitch()
	}

	leaves := make([]int, b.numLeaves)
	for i := range leaves {
		leaves[i] = c.AddSwitch()
	}

	// Full mesh between the tiers.
	for _, spine := range spines {
		for _, leaf := range leaves {
			c.ConnectSwitches(spine, leaf)
		}
	}

	f := &Fabric{}
	for i, port := range b.hostPorts {
		leaf := leaves[i%numHostLeaves]
		epName := fmt.Sprintf("%s.HostEP%d", name, i)
		ep := c.ConnectEndpoint(leaf, epName, []sim.Port{port})
		f.HostEndpoints = append(f.HostEndpoints, ep)
	}

	numDeviceLeaves := b.numLeaves - numHostLeaves
	for i, port := range b.devicePorts {
		leaf := leaves[numHostLeaves+i%numDeviceLeaves]
		epName := fmt.Sprintf("%s.DevEP%d", name, i)
		ep := c.ConnectEndpoint(leaf, epName, []sim.Port{port})
		f.DeviceEndpoints = append(f.DeviceEndpoints, ep)
	}

	c.EstablishRoute()
	f.Switches = c.Switches()

	return f
}

func (b SpineLeafBuilder) mustBeValid() {
	if b.numSpines < 1 {
		panic("spine-leaf fabric requires at least one spine")
	}

	if b.numLeaves < 2 {
		panic("spine-leaf fabric requires at least two leaves")
	}

	numHostLeaves := b.numHostLeaves
	if numHostLeaves == 0 {
		numHostLeaves = (b.numLeaves + 1) / 2
	}

	if numHostLeaves >= b.numLeaves {
		panic("spine-leaf fabric requires at least one device leaf")
	}

	if len(b.hostPorts) == 0 || len(b.devicePorts) == 0 {
		panic("spine-leaf fabric requires host ports and device ports")
	}
}
