// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/attnbench/attnbias"
	"github.com/gomlx/attnbench/kernels"
	"github.com/gomlx/attnbench/types/tensors"
)

// ShapeConfig fully determines the geometry and element type of one
// benchmark case.
type ShapeConfig struct {
	// B is the number of independent sequences in the batch.
	B int

	// Mq is the number of queries per sequence; decoding sweeps use 1.
	Mq int

	// Mkv is the padded key/value length per sequence.
	Mkv int

	// Hq is the number of query heads and Hkv the number of key/value
	// heads. Hkv must divide Hq; when Hkv < Hq each key/value head
	// serves a group of Hq/Hkv query heads.
	Hq, Hkv int

	// HeadDim is the per-head embedding size.
	HeadDim int

	// DType is the element type of the query, key, value and output.
	DType dtypes.DType
}

// Validate checks the configuration invariants.
func (c ShapeConfig) Validate() error {
	if c.B < 1 || c.Mq < 1 || c.Mkv < 1 || c.HeadDim < 1 {
		return errors.Errorf("case dimensions must be >= 1, got B=%d, Mq=%d, Mkv=%d, K=%d",
			c.B, c.Mq, c.Mkv, c.HeadDim)
	}
	if c.Mq > c.Mkv {
		return errors.Errorf("case has more queries (%d) than padded keys (%d) per sequence", c.Mq, c.Mkv)
	}
	if c.Hq < 1 || c.Hkv < 1 {
		return errors.Errorf("head counts must be >= 1, got Hq=%d, Hkv=%d", c.Hq, c.Hkv)
	}
	if c.Hq%c.Hkv != 0 {
		return errors.Errorf("Hkv=%d must divide Hq=%d", c.Hkv, c.Hq)
	}
	switch c.DType {
	case dtypes.Float16, dtypes.BFloat16, dtypes.Float32, dtypes.Float64:
	default:
		return errors.Errorf("dtype %s is not a benchmarkable float type", c.DType)
	}
	return nil
}

// GroupSize returns how many query heads share one key/value head.
func (c ShapeConfig) GroupSize() int { return c.Hq / c.Hkv }

// Scale returns the softmax scale, 1/sqrt(HeadDim).
func (c ShapeConfig) Scale() float64 { return 1 / math.Sqrt(float64(c.HeadDim)) }

// Label is the case's row label in reports: the geometry followed by the
// ideal memory traffic of one forward pass.
func (c ShapeConfig) Label() string {
	return fmt.Sprintf("B=%d Mq=%d Mkv=%d Hq=%d Hkv=%d K=%d TotalBytes=%d",
		c.B, c.Mq, c.Mkv, c.Hq, c.Hkv, c.HeadDim, c.TotalBytes())
}

// TotalBytes returns the memory traffic of one ideal forward pass: key and
// value read once, query read and output written once. Dividing it by the
// measured time gives the effective bandwidth reports show.
func (c ShapeConfig) TotalBytes() uint64 {
	kv := uint64(c.B) * uint64(c.Mkv) * uint64(c.Hkv) * uint64(c.HeadDim) * 2
	qo := uint64(c.B) * uint64(c.Mq) * uint64(c.Hq) * uint64(c.HeadDim) * 2
	return (kv + qo) * uint64(c.DType.Size())
}

// Inputs is one prepared case, handed to an Adapter's Forward.
//
// The query tensor is dense with logical shape (B, Mq, Hkv, G, K), G being
// the group size. Key and value store one row per key/value head, logical
// shape (B, Mkv, Hkv, 1, K), and the views broadcast the singleton group
// axis with stride 0 when G > 1 -- Forward must never write through them.
// The case builder squeezes trivial axes and flattens the batch according
// to the bias, so the views' ranks vary; the flat token-major storage
// underneath does not.
type Inputs struct {
	// Config is the case geometry.
	Config ShapeConfig

	// Query, Key, Value are views over the case tensors.
	Query, Key, Value tensors.View

	// Bias is the attention mask of the case. The decoding sweep always
	// uses *attnbias.BlockDiagonalCausalPaddedKeys.
	Bias attnbias.Bias
}

// KernelArgs translates the case to the kernels package geometry.
// It fails when the bias is not the block-diagonal decoding mask.
func (in *Inputs) KernelArgs() (kernels.Args, error) {
	mask, ok := in.Bias.(*attnbias.BlockDiagonalCausalPaddedKeys)
	if !ok {
		return kernels.Args{}, errors.Errorf("backends: unsupported bias %T", in.Bias)
	}
	args := kernels.Args{
		Mask:       mask,
		NumHeads:   in.Config.Hq,
		NumKVHeads: in.Config.Hkv,
		HeadDim:    in.Config.HeadDim,
		Scale:      in.Config.Scale(),
	}
	if err := args.Validate(); err != nil {
		return kernels.Args{}, err
	}
	return args, nil
}
