// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package highway provides a SIMD-accelerated attention backend using
// go-highway. This package requires Go 1.26+ due to its dependency on
// go-highway.
//
// To enable the backend, import this package for its side effects:
//
//	import _ "github.com/gomlx/attnbench/highway"
package highway

import (
	"runtime/debug"

	"github.com/ajroetker/go-highway/hwy/contrib/nn"
	"github.com/ajroetker/go-highway/hwy/contrib/workerpool"

	"github.com/gomlx/attnbench/backends"
)

// hwyPool is the shared go-highway worker pool for intra-attention
// parallelism. 0 means GOMAXPROCS workers.
var hwyPool *workerpool.Pool

func init() {
	backends.RegisterFusedKernels(impl{version: libraryVersion()})
	hwyPool = workerpool.New(0)
}

// libraryVersion reports the go-highway module version linked into the
// binary; the backend name advertises it.
func libraryVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == "github.com/ajroetker/go-highway" {
				if dep.Replace != nil {
					return dep.Replace.Version
				}
				return dep.Version
			}
		}
	}
	return "unknown"
}

// impl implements backends.FusedKernels over the strided multi-head SDPA
// kernel.
type impl struct{ version string }

func (i impl) Version() string { return i.version }

func (impl) ForwardFloat32(p backends.FusedParams, q, k, v, mask, out []float32) {
	forward(p, q, k, v, mask, out)
}

func (impl) ForwardFloat64(p backends.FusedParams, q, k, v, mask, out []float64) {
	forward(p, q, k, v, mask, out)
}

// forward hands the token-major case to go-highway. Tensors are dense BSHD,
// with one key/value row per KV head (grouped queries are resolved by the
// kernel). The mask carries one additive row of KVLen entries per
// (sequence, query), shared across heads, and already encodes the causal
// alignment to the block ends, so the kernel's own causal masking stays off.
func forward[T float32 | float64](p backends.FusedParams, q, k, v, mask, out []T) {
	nn.MultiHeadSDPAStridedAuto(hwyPool, q, k, v, mask, out,
		p.BatchSize, p.NumHeads, p.NumKVHeads, p.SeqLen, p.KVLen, p.HeadDim,
		p.SeqLen*p.NumHeads*p.HeadDim, p.HeadDim, p.NumHeads*p.HeadDim,
		p.KVLen*p.NumKVHeads*p.HeadDim, p.HeadDim, p.NumKVHeads*p.HeadDim,
		p.SeqLen*p.KVLen, 0,
		T(p.Scale), false)
}
