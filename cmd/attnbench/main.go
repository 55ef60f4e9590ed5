// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// attnbench times attention decoding backends over a grid of KV lengths.
//
// Each grid point is one case: a batch of padded variable-length KV blocks
// decoded by single-token queries (see the decoding package). Every backend
// registered for this host runs every case it supports; the report shows the
// median latency and the effective memory bandwidth per pair.
//
// A YAML file passed with -config overrides the default grid and run
// options; explicit flags override the file. Optional accelerated backends
// register themselves when their module is linked in, e.g. the highway
// submodule.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/gomlx/attnbench/backends"
	"github.com/gomlx/attnbench/bench"
	"github.com/gomlx/attnbench/decoding"
	"github.com/gomlx/attnbench/internal/workerspool"
)

var (
	flagConfig = flag.String("config", "", "YAML file overriding the default sweep grid and run options.")
	flagDType  = flag.String("dtype", "float32", "Element type of the cases: float16, bfloat16, float32 or float64.")
	flagList   = flag.Bool("list", false, "Print the host capabilities and the backends they enable, then exit.")

	flagFilter        = flag.String("filter", "", "Regular expression selecting the backend names to run.")
	flagOmitBaselines = flag.Bool("omit-baselines", false, "Leave the slow reference baseline out of the run.")

	flagMinRunTime = flag.Duration("min-run-time", bench.DefaultOptions().MinRunTime,
		"Measured time to accumulate per (case, backend) pair.")
	flagWarmup = flag.Int("warmup", bench.DefaultOptions().WarmupIters,
		"Unmeasured forward calls before timing each pair.")
	flagSeed = flag.Int64("seed", bench.DefaultOptions().Seed, "Seed for case construction.")

	flagDetails  = flag.Bool("details", false, "Also print the full latency statistics per pair.")
	flagProgress = flag.Bool("progress", true, "Draw a progress bar while the sweep runs.")
)

// sweepConfig is the layout of -config files.
type sweepConfig struct {
	Grid decoding.GridPolicy `yaml:"grid"`
	Run  bench.Options       `yaml:"run"`
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if flag.NArg() > 0 {
		klog.Errorf("Unexpected arguments %q. See 'attnbench -help'.", flag.Args())
		os.Exit(1)
	}
	err := exceptions.TryCatch[error](run)
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

func run() {
	caps := backends.HostCapabilities()
	reg := backends.NewRegistry()
	backends.RegisterDefaults(reg, caps, workerspool.New())
	if *flagList {
		fused := "not linked"
		if caps.FusedKernels() != nil {
			fused = "linked"
		}
		fmt.Printf("%s %s/%s avx2=%v neon=%v fused kernels %s\n\n",
			runtime.Version(), runtime.GOOS, runtime.GOARCH, caps.HasAVX2(), caps.HasNEON(), fused)
		for _, adapter := range reg.Adapters() {
			fmt.Printf("%-16s %s\n", adapter.Name(), adapter.Description())
		}
		return
	}

	cfg := sweepConfig{Grid: decoding.DefaultGrid(), Run: bench.DefaultOptions()}
	if *flagConfig != "" {
		data := must.M1(os.ReadFile(*flagConfig))
		must.M(errors.Wrapf(yaml.Unmarshal(data, &cfg), "parsing config %q", *flagConfig))
	}
	// Explicitly set flags override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-run-time":
			cfg.Run.MinRunTime = *flagMinRunTime
		case "warmup":
			cfg.Run.WarmupIters = *flagWarmup
		case "seed":
			cfg.Run.Seed = *flagSeed
		}
	})
	cfg.Run.Progress = *flagProgress

	dtype := must.M1(dtypes.DTypeString(*flagDType))
	cases := must.M1(cfg.Grid.Cases(dtype))
	adapters := must.M1(bench.Select(reg, *flagFilter, *flagOmitBaselines))
	if len(adapters) == 0 {
		exceptions.Panicf("no backends selected: filter %q over %v", *flagFilter, reg.Names())
	}

	names := make([]string, len(adapters))
	for i, adapter := range adapters {
		names[i] = adapter.Name()
	}
	klog.V(1).Infof("running %d cases on backends %v", len(cases), names)
	start := time.Now()
	results := must.M1(bench.Run(adapters, cases, cfg.Run))
	klog.V(1).Infof("sweep took %s", time.Since(start))

	bench.Report(os.Stdout, results)
	if *flagDetails {
		bench.ReportDetails(os.Stdout, results)
	}
}
