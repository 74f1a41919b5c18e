// Package config defines the YAML run configuration and its validation.
// Every parameter is explicit: a config that omits a required field is
// rejected rather than silently defaulted.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TopologyConfig selects and sizes the fabric topology.
type TopologyConfig struct {
	Kind       string `yaml:"kind"` // "single_tier" or "spine_leaf"
	NumHosts   int    `yaml:"num_hosts"`
	NumDevices int    `yaml:"num_devices"`

	// Spine-leaf only.
	NumSpines     int `yaml:"num_spines"`
	NumLeaves     int `yaml:"num_leaves"`
	NumHostLeaves int `yaml:"num_host_leaves"`
}

// WorkloadConfig describes the traffic every host injects.
type WorkloadConfig struct {
	Pattern     string  `yaml:"pattern"` // uniform, hotspot, zipfian, sequential
	HotDevice   int     `yaml:"hot_device"`
	HotFraction float64 `yaml:"hot_fraction"`
	Alpha       float64 `yaml:"alpha"`
	StrideBytes uint64  `yaml:"stride_bytes"`

	Arrival         string  `yaml:"arrival"` // "paced" or "bursty"
	IntervalNs      float64 `yaml:"interval_ns"`
	Jitter          float64 `yaml:"jitter"`
	BurstSize       int     `yaml:"burst_size"`
	BurstIntervalNs float64 `yaml:"burst_interval_ns"`

	NumRequests  int     `yaml:"num_requests"`
	AccessBytes  int     `yaml:"access_bytes"`
	Class        int     `yaml:"class"`
	ReadFraction float64 `yaml:"read_fraction"`

	// ClassPerHost overrides Class per host, in host index order. Leave
	// empty to give every host the same class.
	ClassPerHost []int `yaml:"class_per_host"`
}

// ArbitrationConfig selects the QoS policy of every switch egress.
type ArbitrationConfig struct {
	Policy string `yaml:"policy"` // strict_priority, wfq, drr

	// WFQ only. Weights are keyed by flow ID (the host name).
	Weights       map[string]float64 `yaml:"weights"`
	DefaultWeight float64            `yaml:"default_weight"`

	// DRR only.
	QuantumBytes int `yaml:"quantum_bytes"`
}

// FlowControlConfig selects how the fabric resolves contention.
type FlowControlConfig struct {
	Mode string `yaml:"mode"` // "credit" or "drop"

	// Credit mode: pause/resume watermarks on the ingress buffers. Zero
	// disables backpressure signaling.
	PauseWatermark  int `yaml:"pause_watermark"`
	ResumeWatermark int `yaml:"resume_watermark"`

	// Drop mode.
	DropPolicy      string  `yaml:"drop_policy"` // "tail" or "red"
	RedMinOccupancy int     `yaml:"red_min_occupancy"`
	RedMaxProb      float64 `yaml:"red_max_prob"`
}

// FabricConfig sizes the switches and links.
type FabricConfig struct {
	FlitBytes         int     `yaml:"flit_bytes"`
	VCCapacity        int     `yaml:"vc_capacity"`
	LinkDelayNs       float64 `yaml:"link_delay_ns"`
	LinkBytesPerCycle int     `yaml:"link_bytes_per_cycle"`
}

// HostConfig sizes the hosts.
type HostConfig struct {
	MaxOutstanding int `yaml:"max_outstanding"`
}

// DeviceConfig sizes the memory devices.
type DeviceConfig struct {
	LatencyCycles int `yaml:"latency_cycles"`
}

// OutputConfig selects where results go. Empty fields disable the writer.
type OutputConfig struct {
	CompletionsCSV string `yaml:"completions_csv"`
	DropsCSV       string `yaml:"drops_csv"`
	SQLitePath     string `yaml:"sqlite_path"`
}

// Config is the complete run configuration.
type Config struct {
	Name    string  `yaml:"name"`
	Seed    uint64  `yaml:"seed"`
	FreqGHz float64 `yaml:"freq_ghz"`

	// EndTimeNs stops the run at that virtual time. Zero runs until the
	// workload drains.
	EndTimeNs float64 `yaml:"end_time_ns"`

	Topology    TopologyConfig    `yaml:"topology"`
	Workload    WorkloadConfig    `yaml:"workload"`
	Arbitration ArbitrationConfig `yaml:"arbitration"`
	FlowControl FlowControlConfig `yaml:"flow_control"`
	Fabric      FabricConfig      `yaml:"fabric"`
	Host        HostConfig        `yaml:"host"`
	Device      DeviceConfig      `yaml:"device"`
	Output      OutputConfig      `yaml:"output"`
}

// Load reads and validates a config file. Unknown fields are an error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)

	cfg := &Config{}
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the config for completeness and consistency.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}

	if c.FreqGHz <= 0 {
		return fmt.Errorf("freq_ghz must be positive")
	}

	if err := c.validateTopology(); err != nil {
		return err
	}

	if err := c.validateWorkload(); err != nil {
		return err
	}

	if err := c.validateArbitration(); err != nil {
		return err
	}

	if err := c.validateFlowControl(); err != nil {
		return err
	}

	if err := c.validateFabric(); err != nil {
		return err
	}

	if c.Host.MaxOutstanding <= 0 {
		return fmt.Errorf("host.max_outstanding must be positive")
	}

	if c.Device.LatencyCycles <= 0 {
		return fmt.Errorf("device.latency_cycles must be positive")
	}

	return nil
}

func (c *Config) validateTopology() error {
	t := c.Topology

	if t.NumHosts <= 0 || t.NumDevices <= 0 {
		return fmt.Errorf(
			"topology.num_hosts and topology.num_devices must be positive")
	}

	switch t.Kind {
	case "single_tier":
	case "spine_leaf":
		if t.NumSpines < 1 || t.NumLeaves < 2 {
			return fmt.Errorf(
				"spine_leaf requires num_spines >= 1 and num_leaves >= 2")
		}
	default:
		return fmt.Errorf("unknown topology.kind %q", t.Kind)
	}

	return nil
}

func (c *Config) validateWorkload() error {
	w := c.Workload

	switch w.Pattern {
	case "uniform":
	case "sequential":
		if w.StrideBytes == 0 {
			return fmt.Errorf("workload.stride_bytes must be positive")
		}
	case "hotspot":
		if w.HotFraction <= 0 || w.HotFraction > 1 {
			return fmt.Errorf(
				"workload.hot_fraction must be in (0, 1]")
		}
		if w.HotDevice < 0 || w.HotDevice >= c.Topology.NumDevices {
			return fmt.Errorf("workload.hot_device out of range")
		}
	case "zipfian":
		if w.Alpha <= 0 {
			return fmt.Errorf("workload.alpha must be positive")
		}
	default:
		return fmt.Errorf("unknown workload.pattern %q", w.Pattern)
	}

	switch w.Arrival {
	case "paced":
		if w.IntervalNs <= 0 {
			return fmt.Errorf("workload.interval_ns must be positive")
		}
		// A jitter of one interval or more can reorder injection times.
		if w.Jitter < 0 || w.Jitter >= 1 {
			return fmt.Errorf("workload.jitter must be in [0, 1)")
		}
	case "bursty":
		if w.BurstSize <= 0 || w.BurstIntervalNs <= 0 {
			return fmt.Errorf(
				"bursty arrival requires burst_size and burst_interval_ns")
		}
	default:
		return fmt.Errorf("unknown workload.arrival %q", w.Arrival)
	}

	if w.NumRequests <= 0 {
		return fmt.Errorf("workload.num_requests must be positive")
	}

	if w.AccessBytes <= 0 {
		return fmt.Errorf("workload.access_bytes must be positive")
	}

	if w.Class < 0 || w.Class > 3 {
		return fmt.Errorf("workload.class must be in [0, 3]")
	}

	if len(w.ClassPerHost) > 0 {
		if len(w.ClassPerHost) != c.Topology.NumHosts {
			return fmt.Errorf(
				"workload.class_per_host must list one class per host")
		}
		for _, class := range w.ClassPerHost {
			if class < 0 || class > 3 {
				return fmt.Errorf(
					"workload.class_per_host entries must be in [0, 3]")
			}
		}
	}

	if w.ReadFraction < 0 || w.ReadFraction > 1 {
		return fmt.Errorf("workload.read_fraction must be in [0, 1]")
	}

	return nil
}

func (c *Config) validateArbitration() error {
	a := c.Arbitration

	switch a.Policy {
	case "strict_priority":
	case "wfq":
		if a.DefaultWeight <= 0 {
			return fmt.Errorf("wfq requires a positive default_weight")
		}
		for flow, w := range a.Weights {
			if w <= 0 {
				return fmt.Errorf(
					"wfq weight of flow %q must be positive", flow)
			}
		}
	case "drr":
		if a.QuantumBytes <= 0 {
			return fmt.Errorf("drr requires a positive quantum_bytes")
		}
	default:
		return fmt.Errorf("unknown arbitration.policy %q", a.Policy)
	}

	return nil
}

func (c *Config) validateFlowControl() error {
	fc := c.FlowControl

	switch fc.Mode {
	case "credit":
		if fc.PauseWatermark < 0 || fc.ResumeWatermark < 0 {
			return fmt.Errorf("watermarks must not be negative")
		}
		if fc.PauseWatermark > 0 &&
			fc.ResumeWatermark >= fc.PauseWatermark {
			return fmt.Errorf(
				"resume_watermark must be below pause_watermark")
		}
	case "drop":
		switch fc.DropPolicy {
		case "tail":
		case "red":
			if fc.RedMinOccupancy < 0 {
				return fmt.Errorf("red_min_occupancy must not be negative")
			}
			if fc.RedMaxProb <= 0 || fc.RedMaxProb > 1 {
				return fmt.Errorf("red_max_prob must be in (0, 1]")
			}
		default:
			return fmt.Errorf("unknown drop_policy %q", fc.DropPolicy)
		}
	default:
		return fmt.Errorf("unknown flow_control.mode %q", fc.Mode)
	}

	return nil
}

func (c *Config) validateFabric() error {
	f := c.Fabric

	if f.FlitBytes <= 0 {
		return fmt.Errorf("fabric.flit_bytes must be positive")
	}

	if f.VCCapacity <= 0 {
		return fmt.Errorf("fabric.vc_capacity must be positive")
	}

	if f.LinkDelayNs < 0 {
		return fmt.Errorf("fabric.link_delay_ns must not be negative")
	}

	if f.LinkBytesPerCycle <= 0 {
		return fmt.Errorf("fabric.link_bytes_per_cycle must be positive")
	}

	if f.FlitBytes > f.LinkBytesPerCycle {
		return fmt.Errorf(
			"fabric.flit_bytes must not exceed fabric.link_bytes_per_cycle")
	}

	if c.FlowControl.Mode == "credit" &&
		c.FlowControl.PauseWatermark >= f.VCCapacity {
		return fmt.Errorf(
			"pause_watermark must be below fabric.vc_capacity")
	}

	return nil
}
