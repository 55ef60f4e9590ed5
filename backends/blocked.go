// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/attnbench/kernels"
	"github.com/gomlx/attnbench/types/tensors"
)

// NewBlocked returns the tiled online-softmax adapter under the given name.
// RegisterDefaults registers it as "blocked" on x86-64 hosts and
// "neon-blocked" on arm64 ones.
func NewBlocked(name string) Adapter { return blockedAdapter{name: name} }

type blockedAdapter struct{ name string }

func (b blockedAdapter) Name() string { return b.name }

func (blockedAdapter) Description() string {
	return "online-softmax over fixed key tiles (float32/float64)"
}

func (b blockedAdapter) NotSupportedReasons(in *Inputs) []string {
	reasons := blockBiasReasons(in)
	switch in.Config.DType {
	case dtypes.Float32, dtypes.Float64:
	default:
		reasons = append(reasons, dtypeReason(in.Config.DType, "float32 or float64"))
	}
	return reasons
}

func (b blockedAdapter) Forward(in *Inputs) (*tensors.Tensor, error) {
	args, err := in.KernelArgs()
	if err != nil {
		return nil, err
	}
	out := tensors.FromShape(in.Query.Tensor.Shape())
	switch in.Config.DType {
	case dtypes.Float32:
		q, k, v, o := caseFlats[float32](in, out)
		kernels.DecodeBlocked(args, q, k, v, o)
	case dtypes.Float64:
		q, k, v, o := caseFlats[float64](in, out)
		kernels.DecodeBlocked(args, q, k, v, o)
	default:
		return nil, errors.Wrapf(ErrNotImplemented, "%s on dtype %s", b.name, in.Config.DType)
	}
	return out, nil
}
