// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package decoding

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/gomlx/attnbench/attnbias"
	"github.com/gomlx/attnbench/backends"
	"github.com/gomlx/attnbench/types/shapes"
	"github.com/gomlx/attnbench/types/tensors"
)

// NewCase materializes one benchmark case: normal-filled tensors, the views
// a grouped-query backend expects, and the block-diagonal decoding bias. The
// same seed reproduces the same case bit for bit.
//
// The query tensor is allocated dense as (B, Mq, Hkv, G, K), G = Hq/Hkv. Key
// and value store one row per KV head, (B, Mkv, Hkv, 1, K), and are
// broadcast to group size G with a zero-stride axis instead of copying.
// Trivial axes are then squeezed per an explicit table over (Hq == Hkv,
// Hkv == 1), so each rank a backend can receive corresponds to exactly one
// row. Finally the batch is folded into the token axis when the bias packs
// all sequences along one dimension.
func NewCase(cfg backends.ShapeConfig, seed int64) (*backends.Inputs, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "building case %q", cfg.Label())
	}
	rng := rand.New(rand.NewSource(seed))
	g := cfg.GroupSize()

	query := tensors.FromShape(shapes.Make(cfg.DType, cfg.B, cfg.Mq, cfg.Hkv, g, cfg.HeadDim))
	key := tensors.FromShape(shapes.Make(cfg.DType, cfg.B, cfg.Mkv, cfg.Hkv, 1, cfg.HeadDim))
	value := tensors.FromShape(shapes.Make(cfg.DType, cfg.B, cfg.Mkv, cfg.Hkv, 1, cfg.HeadDim))
	query.FillNormal(rng)
	key.FillNormal(rng)
	value.FillNormal(rng)

	q := query.View()
	k := key.View().Expand(3, g)
	v := value.View().Expand(3, g)
	switch noGroups, oneKVHead := cfg.Hq == cfg.Hkv, cfg.Hkv == 1; {
	case noGroups && oneKVHead:
		// Single head, (B, M, K): drop the group axis, then the KV-head axis.
		q, k, v = q.Squeeze(3).Squeeze(2), k.Squeeze(3).Squeeze(2), v.Squeeze(3).Squeeze(2)
	case noGroups:
		// One query head per KV head, (B, M, Hkv, K): drop the group axis.
		q, k, v = q.Squeeze(3), k.Squeeze(3), v.Squeeze(3)
	case oneKVHead:
		// One KV head serving every group, (B, M, G, K): drop the KV-head axis.
		q, k, v = q.Squeeze(2), k.Squeeze(2), v.Squeeze(2)
	default:
		// Grouped heads keep the full (B, M, Hkv, G, K) rank.
	}

	bias := attnbias.NewBlockDiagonalCausalPaddedKeys(rng, cfg.B, cfg.Mq, cfg.Mkv)
	if bias.RequiresFlattenedBatch() {
		q, k, v = q.FlattenLeading(), k.FlattenLeading(), v.FlattenLeading()
	}
	return &backends.Inputs{Config: cfg, Query: q, Key: k, Value: v, Bias: bias}, nil
}
