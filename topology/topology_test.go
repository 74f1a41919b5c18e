package topology

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fabriclab/cxlfabric/fabric/switching/switches"
	"github.com/fabriclab/cxlfabric/sim"
)

type stubComp struct {
	*sim.ComponentBase
}

func newStubComp(name string) *stubComp {
	return &stubComp{ComponentBase: sim.NewComponentBase(name)}
}

func (c *stubComp) Handle(_ sim.Event) error  { return nil }
func (c *stubComp) NotifyRecv(_ sim.Port)     {}
func (c *stubComp) NotifyPortFree(_ sim.Port) {}

func makePorts(prefix string, n int) []sim.Port {
	ports := make([]sim.Port, n)
	for i := range ports {
		comp := newStubComp(fmt.Sprintf("%s%d", prefix, i))
		ports[i] = sim.NewPort(comp, 4, 4,
			fmt.Sprintf("%s%d.ToFabric", prefix, i))
	}

	return ports
}

func routedDestinations(sw *switches.Comp) map[sim.RemotePort]string {
	routes := make(map[sim.RemotePort]string)
	table := sw.GetRoutingTable()
	for _, dst := range table.Destinations() {
		routes[dst] = table.FindPort(dst).Name()
	}

	return routes
}

var _ = Describe("SingleTier", func() {
	var (
		engine    *sim.SerialEngine
		hostPorts []sim.Port
		devPorts  []sim.Port
		fabric    *Fabric
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		hostPorts = makePorts("Host", 2)
		devPorts = makePorts("Dev", 2)

		fabric = MakeSingleTierBuilder().
			WithConnector(MakeConnector().
				WithEngine(engine).
				WithFreq(1 * sim.GHz)).
			WithHostPorts(hostPorts).
			WithDevicePorts(devPorts).
			Build("Fabric")
	})

	It("should create one switch and one endpoint per node", func() {
		Expect(fabric.Switches).To(HaveLen(1))
		Expect(fabric.HostEndpoints).To(HaveLen(2))
		Expect(fabric.DeviceEndpoints).To(HaveLen(2))
	})

	It("should route every node port on the switch", func() {
		routes := routedDestinations(fabric.Switches[0])

		Expect(routes).To(HaveLen(4))
		for _, port := range append(hostPorts, devPorts...) {
			Expect(routes).To(HaveKey(port.AsRemote()))
		}
	})

	It("should pass validation", func() {
		Expect(fabric.Switches[0].Validate()).To(Succeed())
	})
})

var _ = Describe("Connector", func() {
	It("should fail validation when a switch cannot reach an endpoint",
		func() {
			conn := MakeConnector().
				WithEngine(sim.NewSerialEngine()).
				WithFreq(1 * sim.GHz)
			conn.NewNetwork("Fabric")

			wired := conn.AddSwitch()
			conn.AddSwitch() // never linked to the rest of the fabric

			devPort := makePorts("Dev", 1)[0]
			conn.ConnectEndpoint(wired, "Fabric.DevEP0",
				[]sim.Port{devPort})
			conn.EstablishRoute()

			Expect(conn.Switches()[0].Validate()).To(Succeed())

			err := conn.Switches()[1].Validate()
			var noRoute *sim.NoRouteError
			Expect(errors.As(err, &noRoute)).To(BeTrue())
			Expect(noRoute.Destination).To(Equal(string(devPort.AsRemote())))
		})
})

var _ = Describe("SpineLeaf", func() {
	build := func(engine sim.Engine) (*Fabric, []sim.Port, []sim.Port) {
		hostPorts := makePorts("Host", 4)
		devPorts := makePorts("Dev", 2)

		fabric := MakeSpineLeafBuilder().
			WithConnector(MakeConnector().
				WithEngine(engine).
				WithFreq(1 * sim.GHz)).
			WithNumSpines(2).
			WithNumLeaves(3).
			WithHostPorts(hostPorts).
			WithDevicePorts(devPorts).
			Build("Fabric")

		return fabric, hostPorts, devPorts
	}

	It("should create the two tiers", func() {
		fabric, _, _ := build(sim.NewSerialEngine())

		Expect(fabric.Switches).To(HaveLen(5))
		Expect(fabric.HostEndpoints).To(HaveLen(4))
		Expect(fabric.DeviceEndpoints).To(HaveLen(2))
	})

	It("should give every switch a route to every node", func() {
		fabric, hostPorts, devPorts := build(sim.NewSerialEngine())

		for _, sw := range fabric.Switches {
			table := sw.GetRoutingTable()
			for _, port := range append(hostPorts, devPorts...) {
				Expect(table.FindPort(port.AsRemote())).NotTo(BeNil(),
					"%s should know a route to %s",
					sw.Name(), port.Name())
			}
		}
	})

	It("should compute the same routes on every build", func() {
		fabricA, _, _ := build(sim.NewSerialEngine())
		fabricB, _, _ := build(sim.NewSerialEngine())

		for i := range fabricA.Switches {
			routesA := routedDestinations(fabricA.Switches[i])
			routesB := routedDestinations(fabricB.Switches[i])

			Expect(routesA).To(Equal(routesB))
		}
	})
})
