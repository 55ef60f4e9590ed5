// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/gomlx/attnbench/kernels"
	"github.com/gomlx/attnbench/types/tensors"
)

// NewDecoder returns the decode-specialized adapter under the given name.
// RegisterDefaults registers it as "decoder" on x86-64 hosts and
// "neon-decoder" on arm64 ones.
func NewDecoder(name string) Adapter { return decoderAdapter{name: name} }

type decoderAdapter struct{ name string }

func (d decoderAdapter) Name() string { return d.name }

func (decoderAdapter) Description() string {
	return "strided walk over valid keys only (float16/float32/float64)"
}

func (d decoderAdapter) NotSupportedReasons(in *Inputs) []string {
	reasons := blockBiasReasons(in)
	switch in.Config.DType {
	case dtypes.Float16, dtypes.Float32, dtypes.Float64:
	default:
		reasons = append(reasons, dtypeReason(in.Config.DType, "float16, float32 or float64"))
	}
	return reasons
}

func (d decoderAdapter) Forward(in *Inputs) (*tensors.Tensor, error) {
	args, err := in.KernelArgs()
	if err != nil {
		return nil, err
	}
	out := tensors.FromShape(in.Query.Tensor.Shape())
	switch in.Config.DType {
	case dtypes.Float16:
		q, k, v, o := caseFlats[float16.Float16](in, out)
		kernels.DecodeFloat16(args, q, k, v, o)
	case dtypes.Float32:
		q, k, v, o := caseFlats[float32](in, out)
		kernels.Decode(args, q, k, v, o)
	case dtypes.Float64:
		q, k, v, o := caseFlats[float64](in, out)
		kernels.Decode(args, q, k, v, o)
	default:
		return nil, errors.Wrapf(ErrNotImplemented, "%s on dtype %s", d.name, in.Config.DType)
	}
	return out, nil
}
