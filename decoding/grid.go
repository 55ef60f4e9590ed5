// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package decoding builds the benchmark cases of the attention decoding
// sweep: short queries attending over exponentially growing padded key/value
// blocks, with the batch shrinking to keep the total token budget constant.
//
// The sweep geometry comes from a GridPolicy (loadable from YAML); each grid
// point becomes a backends.ShapeConfig, and NewCase materializes the tensors,
// broadcast views and attention bias a backend consumes.
package decoding

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/attnbench/backends"
)

// GridPolicy defines the sweep over case geometries. The zero value is not
// usable; start from DefaultGrid and override fields, or unmarshal one from
// a YAML config.
type GridPolicy struct {
	// MinExp and MaxExp bound the KV-length exponents: the sweep visits
	// Mkv = 2^i for each i in the half-open range [MinExp, MaxExp).
	MinExp int `yaml:"min_exp"`
	MaxExp int `yaml:"max_exp"`

	// BatchBudgetExp fixes the per-case token budget: the batch size is
	// 2^(BatchBudgetExp-i), floored at 1, so B*Mkv holds at
	// 2^BatchBudgetExp until the KV length alone exceeds the budget.
	BatchBudgetExp int `yaml:"batch_budget_exp"`

	// QueryLen is the number of queries per sequence, 1 for decoding.
	QueryLen int `yaml:"query_len"`

	// QueryHeads is the number of query heads of every case.
	QueryHeads int `yaml:"query_heads"`

	// KVHeads lists the key/value head counts to sweep at each KV length;
	// each must divide QueryHeads.
	KVHeads []int `yaml:"kv_heads"`

	// HeadDim is the per-head embedding size of every case.
	HeadDim int `yaml:"head_dim"`
}

// DefaultGrid reproduces the standard decoding sweep: KV lengths from 256 to
// 128Ki doubling each step, a 64Ki-token budget, single-token queries, 16
// query heads over 1 or 2 key/value heads, head dimension 128.
func DefaultGrid() GridPolicy {
	return GridPolicy{
		MinExp:         8,
		MaxExp:         18,
		BatchBudgetExp: 16,
		QueryLen:       1,
		QueryHeads:     16,
		KVHeads:        []int{1, 2},
		HeadDim:        128,
	}
}

// Validate checks the policy invariants.
func (p GridPolicy) Validate() error {
	if p.MinExp < 0 || p.MaxExp <= p.MinExp {
		return errors.Errorf("grid exponents must satisfy 0 <= min < max, got [%d, %d)", p.MinExp, p.MaxExp)
	}
	if p.MaxExp > 30 {
		return errors.Errorf("grid KV lengths up to 2^%d would overflow case sizes", p.MaxExp)
	}
	if p.BatchBudgetExp < 0 || p.BatchBudgetExp > 30 {
		return errors.Errorf("batch budget exponent %d out of range [0, 30]", p.BatchBudgetExp)
	}
	if p.QueryLen < 1 {
		return errors.Errorf("query length must be >= 1, got %d", p.QueryLen)
	}
	if p.QueryHeads < 1 || p.HeadDim < 1 {
		return errors.Errorf("head geometry must be >= 1, got Hq=%d, K=%d", p.QueryHeads, p.HeadDim)
	}
	if len(p.KVHeads) == 0 {
		return errors.New("grid sweeps no key/value head counts")
	}
	for _, hkv := range p.KVHeads {
		if hkv < 1 || p.QueryHeads%hkv != 0 {
			return errors.Errorf("key/value head count %d must divide the %d query heads", hkv, p.QueryHeads)
		}
	}
	if p.QueryLen > 1<<p.MinExp {
		return errors.Errorf("query length %d exceeds the smallest padded KV length 2^%d", p.QueryLen, p.MinExp)
	}
	return nil
}

// Cases expands the grid into shape configurations with the given element
// type, ordered by KV length, then by KVHeads entry.
func (p GridPolicy) Cases(dtype dtypes.DType) ([]backends.ShapeConfig, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	configs := make([]backends.ShapeConfig, 0, (p.MaxExp-p.MinExp)*len(p.KVHeads))
	for i := p.MinExp; i < p.MaxExp; i++ {
		batch := 1
		if i < p.BatchBudgetExp {
			batch = 1 << (p.BatchBudgetExp - i)
		}
		for _, hkv := range p.KVHeads {
			cfg := backends.ShapeConfig{
				B:       batch,
				Mq:      p.QueryLen,
				Mkv:     1 << i,
				Hq:      p.QueryHeads,
				Hkv:     hkv,
				HeadDim: p.HeadDim,
				DType:   dtype,
			}
			if err := cfg.Validate(); err != nil {
				return nil, errors.WithMessagef(err, "grid point i=%d, Hkv=%d", i, hkv)
			}
			configs = append(configs, cfg)
		}
	}
	return configs, nil
}
