package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabriclab/cxlfabric/config"
	"github.com/fabriclab/cxlfabric/runner"
)

var configPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one simulation run",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		r := runner.New(cfg)
		if err := r.Run(); err != nil {
			return err
		}

		printSummary(cmd, r)

		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a run configuration without executing it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := config.Load(configPath); err != nil {
			return err
		}

		cmd.Println("configuration is valid")

		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVar(&configPath, "config", "",
			"path to the run configuration file")
		_ = c.MarkFlagRequired("config")
	}

	rootCmd.AddCommand(runCmd, validateCmd)
}

func printSummary(cmd *cobra.Command, r *runner.Runner) {
	s := r.Summary()

	cmd.Println("run summary:")
	cmd.Printf("  completed:   %d\n", s.NumCompleted)
	cmd.Printf("  dropped:     %d (%.2f%%)\n",
		s.NumDropped, s.DropRate*100)
	cmd.Printf("  latency:     mean %s, p50 %s, p95 %s, p99 %s\n",
		formatSeconds(s.MeanLatency), formatSeconds(s.P50Latency),
		formatSeconds(s.P95Latency), formatSeconds(s.P99Latency))
	cmd.Printf("  throughput:  %.2f GB/s\n", s.ThroughputBytes/1e9)
	cmd.Printf("  fairness:    %.3f\n", s.JainFairness)
}

func formatSeconds(t float64) string {
	return fmt.Sprintf("%.1fns", t*1e9)
}
