package topology

import (
	"fmt"

	"github.com/fabriclab/cxlfabric/fabric/switching/endpoint"
	"github.com/fabriclab/cxlfabric/fabric/switching/switches"
	"github.com/fabriclab/cxlfabric/sim"
)

// A Fabric is a fully wired network: every switch has its routing table
// established and every endpoint is linked in.
type Fabric struct {
	Switches        []*switches.Comp
	HostEndpoints   []*endpoint.Comp
	DeviceEndpoints []*endpoint.Comp
}

// SingleTierBuilder builds the fabric in which one switch connects all
// hosts and all devices.
type SingleTierBuilder struct {
	connector   Connector
	hostPorts   []sim.Port
	devicePorts []sim.Port
}

// MakeSingleTierBuilder creates a new builder.
func MakeSingleTierBuilder() SingleTierBuilder {
	return SingleTierBuilder{connector: MakeConnector()}
}

// WithConnector sets the connector that carries the fabric parameters.
func (b SingleTierBuilder) WithConnector(c Connector) SingleTierBuilder {
	b.connector = c
	return b
}

// WithHostPorts sets the device ports of the hosts, one host per port.
func (b SingleTierBuilder) WithHostPorts(ports []sim.Port) SingleTierBuilder {
	b.hostPorts = ports
	return b
}

// WithDevicePorts sets the device ports of the memory devices.
func (b SingleTierBuilder) WithDevicePorts(
	ports []sim.Port,
) SingleTierBuilder {
	b.devicePorts = ports
	return b
}

// Build creates the fabric.
func (b SingleTierBuilder) Build(name string) *Fabric {
	b.portsMustBeGiven()

	c := b.connector
	c.NewNetwork(name)

	swID := c.AddSwitch()

	f := &Fabric{}
	for i, port := range b.hostPorts {
		epName := fmt.Sprintf("%s.HostEP%d", name, i)
		ep := c.ConnectEndpoint(swID, epName, []sim.Port{port})
		f.HostEndpoints = append(f.HostEndpoints, ep)
	}

	for i, port := range b.devicePorts {
		epName := fmt.Sprintf("%s.DevEP%d", name, i)
		ep := c.ConnectEndpoint(swID, epName, []sim.Port{port})
		f.DeviceEndpoints = append(f.DeviceEndpoints, ep)
	}

	c.EstablishRoute()
	f.Switches = c.Switches()

	return f
}

func (b SingleTierBuilder) portsMustBeGiven() {
	if len(b.hostPorts) == 0 || len(b.devicePorts) == 0 {
		panic("single-tier fabric requires host ports and device ports")
	}
}
