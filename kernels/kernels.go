// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kernels implements the pure-Go attention-decoding forward passes
// the benchmark backends time.
//
// All kernels share one geometry, described by Args. Tensors are flat slices
// in token-major layout:
//
//   - query/output: element (t, h, d) at (t*NumHeads+h)*HeadDim + d, where
//     t = seq*QLen + qi indexes the flattened query tokens;
//   - key/value: element (t, kvHead, d) at (t*NumKVHeads+kvHead)*HeadDim + d,
//     where t = seq*KVPadding + j indexes the flattened padded key tokens.
//
// Grouped-query attention maps query head h to key/value head
// h / (NumHeads/NumKVHeads); the kernels never materialize the broadcast.
// Masking comes from the case's block-diagonal structure: kernels consult
// the per-sequence valid-key counts rather than a materialized mask, except
// for Reference, which builds additive rows the way a naive implementation
// would.
package kernels

import (
	"github.com/gomlx/attnbench/attnbias"
	"github.com/pkg/errors"
)

// Float are the element types the generic kernels compute on directly.
// Half-precision floats go through the explicit *Float16/*BFloat16 variants.
type Float interface {
	float32 | float64
}

// Args bundles the decode-attention geometry shared by every kernel.
type Args struct {
	// Mask carries the block structure: number of sequences, queries per
	// sequence, padded and valid key counts.
	Mask *attnbias.BlockDiagonalCausalPaddedKeys

	// NumHeads is the query-head count; NumKVHeads the key/value-head
	// count. NumKVHeads must divide NumHeads.
	NumHeads   int
	NumKVHeads int

	// HeadDim is the per-head embedding size.
	HeadDim int

	// Scale multiplies the query-key dots before the softmax,
	// usually 1/sqrt(HeadDim).
	Scale float64
}

// Validate checks the geometry invariants. Adapters call it outside the
// timed region; the kernels themselves trust their arguments.
func (a Args) Validate() error {
	if a.Mask == nil {
		return errors.New("kernels: nil mask")
	}
	if err := a.Mask.Validate(); err != nil {
		return errors.WithMessage(err, "kernels: invalid mask")
	}
	if a.NumHeads < 1 || a.NumKVHeads < 1 {
		return errors.Errorf("kernels: head counts must be >= 1, got NumHeads=%d, NumKVHeads=%d", a.NumHeads, a.NumKVHeads)
	}
	if a.NumHeads%a.NumKVHeads != 0 {
		return errors.Errorf("kernels: NumKVHeads=%d must divide NumHeads=%d", a.NumKVHeads, a.NumHeads)
	}
	if a.HeadDim < 1 {
		return errors.Errorf("kernels: HeadDim must be >= 1, got %d", a.HeadDim)
	}
	if a.Scale == 0 {
		return errors.New("kernels: zero scale")
	}
	return nil
}

// NumSeqs returns the number of packed sequences.
func (a Args) NumSeqs() int { return a.Mask.NumSequences() }

// QLen returns the queries per sequence.
func (a Args) QLen() int { return a.Mask.QSeqLen }

// KVPadding returns the padded keys per sequence.
func (a Args) KVPadding() int { return a.Mask.KVPadding }

// GroupSize returns how many query heads share one key/value head.
func (a Args) GroupSize() int { return a.NumHeads / a.NumKVHeads }

// QuerySize returns the flat element count of the query (and output).
func (a Args) QuerySize() int { return a.Mask.TotalQueries() * a.NumHeads * a.HeadDim }

// KVSize returns the flat element count of the key (and value) storage.
func (a Args) KVSize() int { return a.Mask.TotalPaddedKeys() * a.NumKVHeads * a.HeadDim }
