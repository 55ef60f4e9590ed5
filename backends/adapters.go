// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"

	"github.com/gomlx/attnbench/attnbias"
	"github.com/gomlx/attnbench/types/tensors"
)

// Helpers shared by the kernel-backed adapters.

// caseFlats returns the flat storage of the three case tensors and of the
// output. The kernels consume the dense token-major layout directly; the
// views only add broadcast and squeeze metadata on top of it.
func caseFlats[T float16.Float16 | bfloat16.BFloat16 | float32 | float64](
	in *Inputs, out *tensors.Tensor) (q, k, v, o []T) {
	return tensors.FlatAs[T](in.Query.Tensor),
		tensors.FlatAs[T](in.Key.Tensor),
		tensors.FlatAs[T](in.Value.Tensor),
		tensors.FlatAs[T](out)
}

// blockBiasReasons returns a reason when the bias is not the block-diagonal
// decoding mask the kernels consume.
func blockBiasReasons(in *Inputs) []string {
	if _, ok := in.Bias.(*attnbias.BlockDiagonalCausalPaddedKeys); !ok {
		return []string{fmt.Sprintf("bias %T not supported", in.Bias)}
	}
	return nil
}

// dtypeReason formats the standard unsupported-dtype reason.
func dtypeReason(dtype dtypes.DType, wants string) string {
	return fmt.Sprintf("dtype %s not supported, wants %s", dtype, wants)
}
