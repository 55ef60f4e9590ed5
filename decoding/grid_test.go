// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package decoding

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gomlx/attnbench/backends"
)

func TestDefaultGridCases(t *testing.T) {
	grid := DefaultGrid()
	require.NoError(t, grid.Validate())

	cases, err := grid.Cases(dtypes.Float32)
	require.NoError(t, err)
	require.Len(t, cases, 20)

	for _, cfg := range cases {
		assert.NoError(t, cfg.Validate())
		assert.Equal(t, 1, cfg.Mq, cfg.Label())
		assert.Equal(t, 16, cfg.Hq, cfg.Label())
		assert.Equal(t, 128, cfg.HeadDim, cfg.Label())
		assert.Equal(t, dtypes.Float32, cfg.DType, cfg.Label())
		// The token budget holds until the KV length alone exceeds it.
		if cfg.Mkv <= 1<<16 {
			assert.Equal(t, 1<<16, cfg.B*cfg.Mkv, cfg.Label())
		} else {
			assert.Equal(t, 1, cfg.B, cfg.Label())
		}
	}

	// KV length doubles every other entry, KV head counts alternate.
	first := backends.ShapeConfig{B: 256, Mq: 1, Mkv: 256, Hq: 16, Hkv: 1, HeadDim: 128, DType: dtypes.Float32}
	assert.Equal(t, first, cases[0])
	assert.Equal(t, 2, cases[1].Hkv)
	assert.Equal(t, cases[0].Mkv, cases[1].Mkv)
	assert.Equal(t, 2*cases[0].Mkv, cases[2].Mkv)
	last := backends.ShapeConfig{B: 1, Mq: 1, Mkv: 1 << 17, Hq: 16, Hkv: 2, HeadDim: 128, DType: dtypes.Float32}
	assert.Equal(t, last, cases[len(cases)-1])
}

func TestGridPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultGrid().Validate())

	for name, mutate := range map[string]func(*GridPolicy){
		"reversed exponents":          func(p *GridPolicy) { p.MinExp, p.MaxExp = 12, 10 },
		"negative min exponent":       func(p *GridPolicy) { p.MinExp = -1 },
		"oversized max exponent":      func(p *GridPolicy) { p.MaxExp = 40 },
		"negative batch budget":       func(p *GridPolicy) { p.BatchBudgetExp = -1 },
		"zero query length":           func(p *GridPolicy) { p.QueryLen = 0 },
		"zero query heads":            func(p *GridPolicy) { p.QueryHeads = 0 },
		"zero head dim":               func(p *GridPolicy) { p.HeadDim = 0 },
		"no kv heads":                 func(p *GridPolicy) { p.KVHeads = nil },
		"indivisible kv heads":        func(p *GridPolicy) { p.KVHeads = []int{1, 3} },
		"queries over smallest block": func(p *GridPolicy) { p.QueryLen = 1<<8 + 1 },
	} {
		t.Run(name, func(t *testing.T) {
			policy := DefaultGrid()
			mutate(&policy)
			assert.Error(t, policy.Validate())
		})
	}
}

func TestCasesRejectNonFloat(t *testing.T) {
	_, err := DefaultGrid().Cases(dtypes.Int32)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a benchmarkable float type")
}

func TestGridPolicyYAML(t *testing.T) {
	doc := `
min_exp: 9
max_exp: 11
batch_budget_exp: 12
query_len: 1
query_heads: 8
kv_heads: [1, 2, 4]
head_dim: 64
`
	var got GridPolicy
	require.NoError(t, yaml.Unmarshal([]byte(doc), &got))
	want := GridPolicy{
		MinExp:         9,
		MaxExp:         11,
		BatchBudgetExp: 12,
		QueryLen:       1,
		QueryHeads:     8,
		KVHeads:        []int{1, 2, 4},
		HeadDim:        64,
	}
	assert.Equal(t, want, got)

	cases, err := got.Cases(dtypes.Float64)
	require.NoError(t, err)
	require.Len(t, cases, 6)
	assert.Equal(t, 8, cases[0].B)
	assert.Equal(t, 512, cases[0].Mkv)
}
