// Package runner assembles a complete simulation from a run configuration
// and executes it.
package runner

import (
	"fmt"
	"io"
	"os"

	"github.com/iti/rngstream"
	"github.com/sirupsen/logrus"

	"github.com/fabriclab/cxlfabric/config"
	"github.com/fabriclab/cxlfabric/fabric/arbitration"
	"github.com/fabriclab/cxlfabric/fabric/device"
	"github.com/fabriclab/cxlfabric/fabric/flowctrl"
	"github.com/fabriclab/cxlfabric/fabric/host"
	"github.com/fabriclab/cxlfabric/metrics"
	"github.com/fabriclab/cxlfabric/recording"
	"github.com/fabriclab/cxlfabric/sim"
	"github.com/fabriclab/cxlfabric/topology"
	"github.com/fabriclab/cxlfabric/workload"
)

// A Runner owns every component of one simulation run.
type Runner struct {
	cfg *config.Config

	engine     *sim.SerialEngine
	simulation *sim.Simulation
	collector  *metrics.Collector

	hosts   []*host.Comp
	devices []*device.Comp
	fabric  *topology.Fabric
}

// New builds a run from a validated configuration.
func New(cfg *config.Config) *Runner {
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	rngstream.SetRngStreamMasterSeed(seed)
	sim.UseSequentialIDGenerator()

	r := &Runner{
		cfg:       cfg,
		engine:    sim.NewSerialEngine(),
		collector: metrics.NewCollector(),
	}
	r.simulation = sim.NewSimulation(r.engine)

	freq := sim.Freq(cfg.FreqGHz) * sim.GHz

	r.buildDevices(freq)
	r.buildHosts(freq)
	r.buildFabric(freq)
	r.registerComponents()

	return r
}

func (r *Runner) buildDevices(freq sim.Freq) {
	for i := 0; i < r.cfg.Topology.NumDevices; i++ {
		dev := device.MakeBuilder().
			WithEngine(r.engine).
			WithFreq(freq).
			WithLatency(r.cfg.Device.LatencyCycles).
			Build(fmt.Sprintf("Dev%d", i))

		r.devices = append(r.devices, dev)
	}
}

func (r *Runner) buildHosts(freq sim.Freq) {
	deviceRemotes := make([]sim.RemotePort, len(r.devices))
	for i, dev := range r.devices {
		deviceRemotes[i] = dev.ToFabric.AsRemote()
	}

	for i := 0; i < r.cfg.Topology.NumHosts; i++ {
		name := fmt.Sprintf("Host%d", i)

		h := host.MakeBuilder().
			WithEngine(r.engine).
			WithFreq(freq).
			WithSource(r.buildSource(name, i)).
			WithDevices(deviceRemotes).
			WithMaxOutstanding(r.cfg.Host.MaxOutstanding).
			Build(name)

		r.hosts = append(r.hosts, h)
	}
}

func (r *Runner) buildSource(hostName string, hostIndex int) workload.Source {
	w := r.cfg.Workload

	var pattern workload.Pattern
	switch w.Pattern {
	case "uniform":
		pattern = workload.NewUniformPattern(
			hostName+".pattern", r.cfg.Topology.NumDevices)
	case "hotspot":
		pattern = workload.NewHotspotPattern(
			hostName+".pattern", r.cfg.Topology.NumDevices,
			w.HotDevice, w.HotFraction)
	case "zipfian":
		pattern = workload.NewZipfianPattern(
			hostName+".pattern", r.cfg.Topology.NumDevices, w.Alpha)
	case "sequential":
		pattern = workload.NewSequentialPattern(
			hostIndex%r.cfg.Topology.NumDevices, w.StrideBytes)
	default:
		panic("unknown workload pattern " + w.Pattern)
	}

	class := w.Class
	if len(w.ClassPerHost) > 0 {
		class = w.ClassPerHost[hostIndex]
	}

	builder := workload.MakeBuilder().
		WithPattern(pattern).
		WithNumRequests(w.NumRequests).
		WithAccessBytes(w.AccessBytes).
		WithClass(class).
		WithReadFraction(w.ReadFraction)

	if w.Arrival == "bursty" {
		return builder.
			WithBurst(w.BurstSize, sim.VTimeInSec(w.BurstIntervalNs*1e-9)).
			BuildBursty(hostName + ".source")
	}

	return builder.
		WithInterval(sim.VTimeInSec(w.IntervalNs * 1e-9)).
		WithJitter(w.Jitter).
		Build(hostName + ".source")
}

func (r *Runner) buildFabric(freq sim.Freq) {
	connector := topology.MakeConnector().
		WithEngine(r.engine).
		WithFreq(freq).
		WithFlitByteSize(r.cfg.Fabric.FlitBytes).
		WithVCCapacity(r.cfg.Fabric.VCCapacity).
		WithLinkDelay(sim.VTimeInSec(r.cfg.Fabric.LinkDelayNs * 1e-9)).
		WithLinkBytesPerCycle(r.cfg.Fabric.LinkBytesPerCycle).
		WithArbitrationPolicy(r.policyFactory()).
		WithCompletionObserver(r.collector).
		WithDropObserver(r.collector)

	fc := r.cfg.FlowControl
	if fc.Mode == "credit" {
		connector = connector.WithCreditFlowControl()
		if fc.PauseWatermark > 0 {
			connector = connector.WithWatermarks(
				fc.PauseWatermark, fc.ResumeWatermark)
		}
	} else {
		connector = connector.WithDropPolicyFactory(r.dropPolicyFactory())
	}

	hostPorts := make([]sim.Port, len(r.hosts))
	for i, h := range r.hosts {
		hostPorts[i] = h.ToFabric
	}

	devicePorts := make([]sim.Port, len(r.devices))
	for i, dev := range r.devices {
		devicePorts[i] = dev.ToFabric
	}

	t := r.cfg.Topology
	if t.Kind == "spine_leaf" {
		r.fabric = topology.MakeSpineLeafBuilder().
			WithConnector(connector).
			WithNumSpines(t.NumSpines).
			WithNumLeaves(t.NumLeaves).
			WithNumHostLeaves(t.NumHostLeaves).
			WithHostPorts(hostPorts).
			WithDevicePorts(devicePorts).
			Build(r.cfg.Name)
	} else {
		r.fabric = topology.MakeSingleTierBuilder().
			WithConnector(connector).
			WithHostPorts(hostPorts).
			WithDevicePorts(devicePorts).
			Build(r.cfg.Name)
	}
}

func (r *Runner) policyFactory() func() arbitration.Policy {
	a := r.cfg.Arbitration

	switch a.Policy {
	case "wfq":
		return func() arbitration.Policy {
			return arbitration.NewWFQPolicy(a.Weights, a.DefaultWeight)
		}
	case "drr":
		return func() arbitration.Policy {
			return arbitration.NewDRRPolicy(a.QuantumBytes)
		}
	default:
		return arbitration.NewStrictPriorityPolicy
	}
}

func (r *Runner) dropPolicyFactory() func(string) flowctrl.DropPolicy {
	fc := r.cfg.FlowControl

	if fc.DropPolicy == "red" {
		return func(name string) flowctrl.DropPolicy {
			return flowctrl.NewRandomEarlyDrop(
				name+".red", fc.RedMinOccupancy, fc.RedMaxProb)
		}
	}

	return func(string) flowctrl.DropPolicy {
		return flowctrl.NewTailDrop()
	}
}

func (r *Runner) registerComponents() {
	for _, h := range r.hosts {
		r.simulation.RegisterComponent(h)
	}
	for _, dev := range r.devices {
		r.simulation.RegisterComponent(dev)
	}
	for _, sw := range r.fabric.Switches {
		r.simulation.RegisterComponent(sw)
	}
	for _, ep := range r.fabric.HostEndpoints {
		r.simulation.RegisterComponent(ep)
	}
	for _, ep := range r.fabric.DeviceEndpoints {
		r.simulation.RegisterComponent(ep)
	}
}

// Run validates the configuration, executes the simulation, and writes the
// configured outputs.
func (r *Runner) Run() error {
	if err := r.simulation.Validate(); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"run":      r.cfg.Name,
		"hosts":    len(r.hosts),
		"devices":  len(r.devices),
		"switches": len(r.fabric.Switches),
	}).Info("run starting")

	var err error
	if r.cfg.EndTimeNs > 0 {
		err = r.engine.RunUntil(sim.VTimeInSec(r.cfg.EndTimeNs * 1e-9))
	} else {
		err = r.engine.Run()
	}
	if err != nil {
		return err
	}

	r.engine.Finished()

	if err := r.writeOutputs(); err != nil {
		return err
	}

	s := r.collector.Summarize()
	logrus.WithFields(logrus.Fields{
		"run":       r.cfg.Name,
		"completed": s.NumCompleted,
		"dropped":   s.NumDropped,
		"mean_lat":  s.MeanLatency,
		"p99_lat":   s.P99Latency,
		"fairness":  s.JainFairness,
	}).Info("run finished")

	return nil
}

func (r *Runner) writeOutputs() error {
	out := r.cfg.Output

	if out.CompletionsCSV != "" {
		if err := r.writeCSV(out.CompletionsCSV,
			r.collector.WriteCompletionsCSV); err != nil {
			return err
		}
	}

	if out.DropsCSV != "" {
		if err := r.writeCSV(out.DropsCSV,
			r.collector.WriteDropsCSV); err != nil {
			return err
		}
	}

	if out.SQLitePath != "" {
		r.collector.DumpTo(recording.New(out.SQLitePath))
	}

	return nil
}

func (r *Runner) writeCSV(
	path string,
	write func(w io.Writer) error,
) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return write(f)
}

// Collector returns the metrics collector of the run.
func (r *Runner) Collector() *metrics.Collector {
	return r.collector
}

// Summary returns the summary statistics of the run.
func (r *Runner) Summary() metrics.Summary {
	return r.collector.Summarize()
}

// Hosts returns the hosts of the run.
func (r *Runner) Hosts() []*host.Comp {
	return r.hosts
}

// Devices returns the devices of the run.
func (r *Runner) Devices() []*device.Comp {
	return r.devices
}

// CurrentTime returns the virtual time the run has reached.
func (r *Runner) CurrentTime() sim.VTimeInSec {
	return r.engine.CurrentTime()
}
