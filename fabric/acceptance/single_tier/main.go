// Sends random traffic between four agents attached to one switch and
// verifies that every message arrives exactly once.
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

func main() {
	flag.Parse()
	rngstream.SetRngStreamMasterSeed(1)
	sim.UseSequentialIDGenerator()

	engine := sim.NewSerialEngine()
	t := acceptance.NewTest("single_tier")

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

	var agents []*acceptance.Agent
	for i := 0; i < 4; i++ {
		agent := acceptance.NewAgent(
			engine, freq, fmt.Sprintf("Agent%d", i), 3, test)
		agent.TickLater()
		agents = append(agents, agent)
		test.RegisterAgent(agent)
	}

	connector := topology.MakeConnector().
		WithEngine(engine).
		WithFreq(freq).
		WithFlitByteSize(64).
		WithVCCapacity(4).
		WithLinkDelay(2e-9).
		WithLinkBytesPerCycle(64).
		WithArbitrationPolicy(arbitration.NewStrictPriorityPolicy)

	connector.NewNetwork("Fabric")
	switchID := connector.AddSwitch()

	for i, agent := range agents {
		connector.ConnectEndpoint(
			switchID, fmt.Sprintf("Fabric.EP%d", i), agent.AgentPorts)
	}

	connector.EstablishRoute()
}
