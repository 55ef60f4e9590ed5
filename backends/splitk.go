// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/attnbench/internal/workerspool"
	"github.com/gomlx/attnbench/kernels"
	"github.com/gomlx/attnbench/types/tensors"
)

// NewSplitK returns the split-KV adapter under the given name, fanning the
// per-chunk softmax partials over pool. A nil pool gets the default
// parallelism.
func NewSplitK(name string, pool *workerspool.Pool) Adapter {
	if pool == nil {
		pool = workerspool.New()
	}
	return splitKAdapter{name: name, pool: pool}
}

type splitKAdapter struct {
	name string
	pool *workerspool.Pool
}

func (s splitKAdapter) Name() string { return s.name }

func (splitKAdapter) Description() string {
	return "parallel split-KV partials, merged per row (float32/float64, single-query)"
}

func (s splitKAdapter) NotSupportedReasons(in *Inputs) []string {
	reasons := blockBiasReasons(in)
	switch in.Config.DType {
	case dtypes.Float32, dtypes.Float64:
	default:
		reasons = append(reasons, dtypeReason(in.Config.DType, "float32 or float64"))
	}
	if in.Config.Mq != 1 {
		reasons = append(reasons, fmt.Sprintf("split-KV serves single-query decode only, got Mq=%d", in.Config.Mq))
	}
	return reasons
}

func (s splitKAdapter) Forward(in *Inputs) (*tensors.Tensor, error) {
	args, err := in.KernelArgs()
	if err != nil {
		return nil, err
	}
	out := tensors.FromShape(in.Query.Tensor.Shape())
	switch in.Config.DType {
	case dtypes.Float32:
		q, k, v, o := caseFlats[float32](in, out)
		kernels.DecodeSplitKV(args, s.pool, q, k, v, o)
	case dtypes.Float64:
		q, k, v, o := caseFlats[float64](in, out)
		kernels.DecodeSplitKV(args, s.pool, q, k, v, o)
	default:
		return nil, errors.Wrapf(ErrNotImplemented, "%s on dtype %s", s.name, in.Config.DType)
	}
	return out, nil
}
