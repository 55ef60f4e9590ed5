// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package bench drives registered attention backends over the decoding sweep
// and aggregates per-(case, backend) wall times.
//
// Backends that statically decline a case are recorded as skipped; backends
// whose forward call returns an error or panics are recorded as failed. The
// sweep always continues, so one broken backend never costs the rest of the
// run.
package bench

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/gomlx/attnbench/backends"
	"github.com/gomlx/attnbench/decoding"
	"github.com/gomlx/attnbench/types/tensors"
)

// Options control one sweep run. Fields are YAML-loadable from the same
// config file as the grid policy.
type Options struct {
	// WarmupIters is how many unmeasured forward calls run before timing,
	// per (case, backend) pair.
	WarmupIters int `yaml:"warmup_iters"`

	// MinRunTime keeps the timing loop going until this much measured time
	// accumulated. At least one iteration always runs.
	MinRunTime time.Duration `yaml:"min_run_time"`

	// Seed feeds case construction. Every case of a run uses the same
	// seed, so reruns time bit-identical inputs.
	Seed int64 `yaml:"seed"`

	// Progress draws a progress bar on stderr while the sweep runs.
	Progress bool `yaml:"-"`
}

// DefaultOptions returns the standard sweep settings: a few warmup calls and
// half a second of measurement per pair.
func DefaultOptions() Options {
	return Options{
		WarmupIters: 3,
		MinRunTime:  500 * time.Millisecond,
		Seed:        10,
	}
}

// UnmarshalYAML loads options from a config mapping, leaving fields the file
// does not mention at their previous values. min_run_time takes a Go
// duration string such as "500ms" or "2s".
func (o *Options) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		WarmupIters *int    `yaml:"warmup_iters"`
		MinRunTime  *string `yaml:"min_run_time"`
		Seed        *int64  `yaml:"seed"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.WarmupIters != nil {
		o.WarmupIters = *raw.WarmupIters
	}
	if raw.MinRunTime != nil {
		d, err := time.ParseDuration(*raw.MinRunTime)
		if err != nil {
			return errors.Wrapf(err, "min_run_time %q", *raw.MinRunTime)
		}
		o.MinRunTime = d
	}
	if raw.Seed != nil {
		o.Seed = *raw.Seed
	}
	return nil
}

// Measurement is the outcome of one (case, backend) pair.
type Measurement struct {
	Case    backends.ShapeConfig
	Backend string

	// Skipped carries the static not-supported reasons when the backend
	// declined the case. No timing was attempted.
	Skipped *backends.NotSupportedError

	// Err is a runtime failure: the forward call returned an error or
	// panicked, and the pair has no result.
	Err error

	// Latencies are the per-iteration wall times, in timing order.
	Latencies []time.Duration
}

// Baselines names the adapters that exist to sanity-check the others rather
// than to compete; Select drops them when asked.
var Baselines = map[string]bool{"reference": true}

// Select picks the adapters to run from the registry, preserving
// registration order. filter, when non-empty, is a regular expression on
// backend names; omitBaselines drops the entries named in Baselines.
func Select(reg *backends.Registry, filter string, omitBaselines bool) ([]backends.Adapter, error) {
	var re *regexp.Regexp
	if filter != "" {
		var err error
		re, err = regexp.Compile(filter)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid backend filter %q", filter)
		}
	}
	var selected []backends.Adapter
	for _, adapter := range reg.Adapters() {
		if omitBaselines && Baselines[adapter.Name()] {
			continue
		}
		if re != nil && !re.MatchString(adapter.Name()) {
			continue
		}
		selected = append(selected, adapter)
	}
	return selected, nil
}

// ProgressbarStyle to use. Defaults to the ASCII version, which needs no
// graphical symbol support.
var ProgressbarStyle = progressbar.ThemeASCII

// Run times every adapter on every case. Results come back case-major, in
// the adapter order given, one Measurement per pair. Inputs are built once
// per case and shared by all adapters, so every backend times the same
// tensors.
func Run(adapters []backends.Adapter, cases []backends.ShapeConfig, opts Options) ([]Measurement, error) {
	if opts.MinRunTime <= 0 {
		opts.MinRunTime = DefaultOptions().MinRunTime
	}
	if opts.WarmupIters < 0 {
		opts.WarmupIters = 0
	}
	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.NewOptions(len(cases)*len(adapters),
			progressbar.OptionSetDescription("benchmarking"),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("runs"),
			progressbar.OptionSetTheme(ProgressbarStyle),
			progressbar.OptionSetWriter(os.Stderr),
		)
	}

	results := make([]Measurement, 0, len(cases)*len(adapters))
	for _, cfg := range cases {
		in, err := decoding.NewCase(cfg, opts.Seed)
		if err != nil {
			return nil, err
		}
		for _, adapter := range adapters {
			m := Measurement{Case: cfg, Backend: adapter.Name()}
			var notSupported *backends.NotSupportedError
			if err := backends.CheckSupport(adapter, in); errors.As(err, &notSupported) {
				m.Skipped = notSupported
				klog.V(1).Infof("%s skipped %q: %v", adapter.Name(), cfg.Label(), err)
			} else if err != nil {
				m.Err = err
				klog.Errorf("%s rejected %q: %v", adapter.Name(), cfg.Label(), err)
			} else {
				m.Latencies, m.Err = timeForward(adapter, in, opts)
				if m.Err != nil {
					klog.Errorf("%s failed on %q: %v", adapter.Name(), cfg.Label(), m.Err)
				}
			}
			results = append(results, m)
			if bar != nil {
				_ = bar.Add(1)
			}
		}
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	return results, nil
}

// timeForward runs the warmup calls, then measures iterations until
// MinRunTime of wall time accumulated.
func timeForward(adapter backends.Adapter, in *backends.Inputs, opts Options) ([]time.Duration, error) {
	for range opts.WarmupIters {
		if _, err := safeForward(adapter, in); err != nil {
			return nil, err
		}
	}
	var latencies []time.Duration
	var total time.Duration
	for total < opts.MinRunTime || len(latencies) == 0 {
		start := time.Now()
		_, err := safeForward(adapter, in)
		elapsed := time.Since(start)
		if err != nil {
			return nil, err
		}
		latencies = append(latencies, elapsed)
		total += elapsed
	}
	return latencies, nil
}

// safeForward converts a panicking backend into an error so the sweep
// survives kernels that blow up at runtime.
func safeForward(adapter backends.Adapter, in *backends.Inputs) (out *tensors.Tensor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("backend %s panicked: %v", adapter.Name(), r)
		}
	}()
	return adapter.Forward(in)
}
