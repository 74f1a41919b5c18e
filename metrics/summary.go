package metrics

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// A Summary condenses the records of one run.
type Summary struct {
	NumCompleted int
	NumDropped   int
	DropRate     float64

	MeanLatency float64
	P50Latency  float64
	P95Latency  float64
	P99Latency  float64

	// ThroughputBytes is the total completed payload divided by the span
	// between the first injection and the last completion.
	ThroughputBytes float64

	// JainFairness is Jain's index over per-flow completion counts. It is
	// 1.0 when every flow completed the same number of packets and
	// approaches 1/n as one flow starves the others.
	JainFairness float64

	PerFlowCompleted map[string]int
}

// Summarize computes the summary of the records collected so far.
func (c *Collector) Summarize() Summary {
	s := Summary{
		NumCompleted:     len(c.completions),
		NumDropped:       len(c.drops),
		PerFlowCompleted: make(map[string]int),
	}

	total := s.NumCompleted + s.NumDropped
	if total > 0 {
		s.DropRate = float64(s.NumDropped) / float64(total)
	}

	if s.NumCompleted == 0 {
		return s
	}

	latencies := make([]float64, 0, s.NumCompleted)
	totalBytes := 0
	firstCreation := c.completions[0].CreationTime
	lastCompletion := c.completions[0].CompletionTime

	for _, r := range c.completions {
		latencies = append(latencies, r.Latency)
		totalBytes += r.Bytes
		s.PerFlowCompleted[r.FlowID]++

		if r.CreationTime < firstCreation {
			firstCreation = r.CreationTime
		}
		if r.CompletionTime > lastCompletion {
			lastCompletion = r.CompletionTime
		}
	}

	sort.Float64s(latencies)
	s.MeanLatency = stat.Mean(latencies, nil)
	s.P50Latency = stat.Quantile(0.50, stat.Empirical, latencies, nil)
	s.P95Latency = stat.Quantile(0.95, stat.Empirical, latencies, nil)
	s.P99Latency = stat.Quantile(0.99, stat.Empirical, latencies, nil)

	if span := lastCompletion - firstCreation; span > 0 {
		s.ThroughputBytes = float64(totalBytes) / span
	}

	s.JainFairness = jainIndex(s.PerFlowCompleted)

	return s
}

func jainIndex(perFlow map[string]int) float64 {
	if len(perFlow) == 0 {
		return 0
	}

	sum := 0.0
	sumSq := 0.0
	for _, count := range perFlow {
		x := float64(count)
		sum += x
		sumSq += x * x
	}

	if sumSq == 0 {
		return 0
	}

	return sum * sum / (float64(len(perFlow)) * sumSq)
}
