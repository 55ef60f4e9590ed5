// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/attnbench/kernels"
	"github.com/gomlx/attnbench/types/tensors"
)

// NewReference returns the baseline adapter. It is always registered:
// every host can run it, and every other backend is measured against it.
func NewReference() Adapter { return referenceAdapter{} }

type referenceAdapter struct{}

func (referenceAdapter) Name() string { return "reference" }

func (referenceAdapter) Description() string {
	return "unfused baseline over the full padded keys (all dtypes)"
}

func (referenceAdapter) Forward(in *Inputs) (*tensors.Tensor, error) {
	args, err := in.KernelArgs()
	if err != nil {
		return nil, err
	}
	out := tensors.FromShape(in.Query.Tensor.Shape())
	switch in.Config.DType {
	case dtypes.Float16:
		q, k, v, o := caseFlats[float16.Float16](in, out)
		kernels.ReferenceFloat16(args, q, k, v, o)
	case dtypes.BFloat16:
		q, k, v, o := caseFlats[bfloat16.BFloat16](in, out)
		kernels.ReferenceBFloat16(args, q, k, v, o)
	case dtypes.Float32:
		q, k, v, o := caseFlats[float32](in, out)
		kernels.Reference(args, q, k, v, o)
	case dtypes.Float64:
		q, k, v, o := caseFlats[float64](in, out)
		kernels.Reference(args, q, k, v, o)
	default:
		return nil, errors.Wrapf(ErrNotImplemented, "reference on dtype %s", in.Config.DType)
	}
	return out, nil
}
