// Sends random traffic between six agents spread over a two-spine,
// three-leaf fabric and verifies that every message arrives exactly once.
package main

import (
	"flag"
	"fmt"

	"github.com/iti/rngstream"
	"github.com/tebeka/atexit"

	"github.com/fabriclab/cxlfabric/fabric/acceptance"
	"github.com/fabriclab/cxlfabric/fabric/arbitration"
	"github.com/fabriclab/cxlfabric/sim"
	"github.com/fabriclab/cxlfabric/topology"
)

const (
	numSpines = 2
	numLeaves = 3
)

func main() {
	flag.Parse()
	rngstream.SetRngStreamMasterSeed(1)
	sim.UseSequentialIDGenerator()

	engine := sim.NewSerialEngine()
	t := acceptance.NewTest("spine_leaf")

	createNetwork(engine, t)
	t.GenerateMsgs(2000)

	if err := engine.Run(); err != nil {
		panic(err)
	}

	t.MustHaveReceivedAllMsgs()
	t.ReportBandwidthAchieved(engine.CurrentTime())
	atexit.Exit(0)
}

func createNetwork(engine sim.Engine, test *acceptance.Test) {
	freq := 1.0 * sim.GHz

	connector := topology.MakeConnector().
		WithEngine(engine).
		WithFreq(freq).
		WithFlitByteSize(64).
		WithVCCapacity(4).
		WithLinkDelay(2e-9).
		WithLinkBytesPerCycle(64).
		WithArbitrationPolicy(arbitration.NewStrictPriorityPolicy)

	connector.NewNetwork("Fabric")

	spines := make([]int, numSpines)
	for i := range spines {
		spines[i] = connector.AddSwitch()
	}

	leaves := make([]int, numLeaves)
	for i := range leaves {
		leaves[i] = connector.AddSwitch()
		for _, spine := range spines {
			connector.ConnectSwitches(spine, leaves[i])
		}
	}

	for i := 0; i < 2*numLeaves; i++ {
		agent := acceptance.NewAgent(
			engine, freq, fmt.Sprintf("Agent%d", i), 2, test)
		agent.TickLater()
		test.RegisterAgent(agent)

		connector.ConnectEndpoint(
			leaves[i%numLeaves],
			fmt.Sprintf("Fabric.EP%d", i),
			agent.AgentPorts)
	}

	connector.EstablishRoute()
}
