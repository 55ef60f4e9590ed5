// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bench

import (
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the measured latencies of one pair.
type Summary struct {
	// Iters is how many measured iterations ran.
	Iters int

	// Mean, Median and P95 of the per-iteration wall times.
	Mean, Median, P95 time.Duration

	// Bandwidth is the effective memory traffic in bytes/second at the
	// median latency: the case's ideal bytes moved divided by the time.
	Bandwidth float64
}

// Summarize computes the latency statistics of the measurement. Skipped and
// failed pairs have no latencies and summarize to the zero value.
func (m *Measurement) Summarize() Summary {
	if len(m.Latencies) == 0 {
		return Summary{}
	}
	seconds := make([]float64, len(m.Latencies))
	for i, d := range m.Latencies {
		seconds[i] = d.Seconds()
	}
	slices.Sort(seconds)
	median := stat.Quantile(0.5, stat.Empirical, seconds, nil)
	s := Summary{
		Iters:  len(seconds),
		Mean:   secondsToDuration(stat.Mean(seconds, nil)),
		Median: secondsToDuration(median),
		P95:    secondsToDuration(stat.Quantile(0.95, stat.Empirical, seconds, nil)),
	}
	if median > 0 {
		s.Bandwidth = float64(m.Case.TotalBytes()) / median
	}
	return s
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
