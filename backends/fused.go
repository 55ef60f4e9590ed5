// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"sync"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/attnbench/attnbias"
	"github.com/gomlx/attnbench/types/tensors"
)

// FusedKernels is the hook for the optional SIMD attention implementation
// built as a separate module (it needs a newer toolchain than this module
// requires). Importing the submodule for side effects registers it:
//
//	import _ "github.com/gomlx/attnbench/highway"
type FusedKernels interface {
	// Version identifies the implementation build; the adapter name in
	// reports is "highway@" + Version().
	Version() string

	// ForwardFloat32 runs fused attention over dense token-major tensors.
	// mask holds one additive row of KVLen entries per (sequence, query),
	// shared across heads.
	ForwardFloat32(p FusedParams, q, k, v, mask, out []float32)

	// ForwardFloat64 is ForwardFloat32 for float64.
	ForwardFloat64(p FusedParams, q, k, v, mask, out []float64)
}

// FusedParams is the geometry handed to a FusedKernels implementation.
type FusedParams struct {
	BatchSize  int // number of sequences
	NumHeads   int // query heads
	NumKVHeads int // key/value heads; divides NumHeads
	SeqLen     int // queries per sequence
	KVLen      int // padded keys per sequence
	HeadDim    int
	Scale      float64
}

// fusedImpl is the registered implementation. nil means no submodule was
// imported, and RegisterDefaults leaves the fused adapter out.
var fusedImpl FusedKernels

// RegisterFusedKernels installs the fused implementation. The submodule
// calls it from an init function, before any registry is built.
func RegisterFusedKernels(impl FusedKernels) { fusedImpl = impl }

// NewFused wraps a FusedKernels implementation as the "highway@<version>"
// adapter.
func NewFused(impl FusedKernels) Adapter {
	return &fusedAdapter{impl: impl}
}

type fusedAdapter struct {
	impl FusedKernels

	// The additive mask rows depend only on the bias object, which the
	// timing loop hands back call after call; a single-entry cache keeps
	// the materialization out of the timed region after the first call.
	mu      sync.Mutex
	maskFor *attnbias.BlockDiagonalCausalPaddedKeys
	maskF32 []float32
	maskF64 []float64
}

func (f *fusedAdapter) Name() string { return "highway@" + f.impl.Version() }

func (f *fusedAdapter) Description() string {
	return "go-highway fused SIMD attention (float32/float64)"
}

func (f *fusedAdapter) NotSupportedReasons(in *Inputs) []string {
	reasons := blockBiasReasons(in)
	switch in.Config.DType {
	case dtypes.Float32, dtypes.Float64:
	default:
		reasons = append(reasons, dtypeReason(in.Config.DType, "float32 or float64"))
	}
	return reasons
}

func (f *fusedAdapter) Forward(in *Inputs) (*tensors.Tensor, error) {
	args, err := in.KernelArgs()
	if err != nil {
		return nil, err
	}
	p := FusedParams{
		BatchSize:  args.NumSeqs(),
		NumHeads:   in.Config.Hq,
		NumKVHeads: in.Config.Hkv,
		SeqLen:     args.QLen(),
		KVLen:      args.KVPadding(),
		HeadDim:    in.Config.HeadDim,
		Scale:      in.Config.Scale(),
	}
	out := tensors.FromShape(in.Query.Tensor.Shape())
	switch in.Config.DType {
	case dtypes.Float32:
		f.impl.ForwardFloat32(p,
			tensors.FlatAs[float32](in.Query.Tensor),
			tensors.FlatAs[float32](in.Key.Tensor),
			tensors.FlatAs[float32](in.Value.Tensor),
			f.maskFloat32(args.Mask, p),
			tensors.FlatAs[float32](out))
	case dtypes.Float64:
		f.impl.ForwardFloat64(p,
			tensors.FlatAs[float64](in.Query.Tensor),
			tensors.FlatAs[float64](in.Key.Tensor),
			tensors.FlatAs[float64](in.Value.Tensor),
			f.maskFloat64(args.Mask, p),
			tensors.FlatAs[float64](out))
	default:
		return nil, errors.Wrapf(ErrNotImplemented, "%s on dtype %s", f.Name(), in.Config.DType)
	}
	return out, nil
}

func (f *fusedAdapter) maskFloat32(mask *attnbias.BlockDiagonalCausalPaddedKeys, p FusedParams) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.maskFor != mask {
		f.maskFor, f.maskF32, f.maskF64 = mask, nil, nil
	}
	if f.maskF32 == nil {
		f.maskF32 = make([]float32, p.BatchSize*p.SeqLen*p.KVLen)
		fillAdditiveRows(mask, f.maskF32)
	}
	return f.maskF32
}

func (f *fusedAdapter) maskFloat64(mask *attnbias.BlockDiagonalCausalPaddedKeys, p FusedParams) []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.maskFor != mask {
		f.maskFor, f.maskF32, f.maskF64 = mask, nil, nil
	}
	if f.maskF64 == nil {
		f.maskF64 = make([]float64, p.BatchSize*p.SeqLen*p.KVLen)
		fillAdditiveRows(mask, f.maskF64)
	}
	return f.maskF64
}

// fillAdditiveRows writes the dense additive form of mask: one row of
// KVPadding entries per (sequence, query), 0 on visible keys and -Inf on
// masked ones.
func fillAdditiveRows[T float32 | float64](mask *attnbias.BlockDiagonalCausalPaddedKeys, rows []T) {
	kvLen := mask.KVPadding
	for seq := range mask.NumSequences() {
		for qi := range mask.QSeqLen {
			row := rows[(seq*mask.QSeqLen+qi)*kvLen:][:kvLen]
			attnbias.AdditiveRowInto(mask, seq, qi, row)
		}
	}
}
