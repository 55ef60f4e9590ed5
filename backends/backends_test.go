// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"math/rand"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/attnbench/attnbias"
	"github.com/gomlx/attnbench/types/shapes"
	"github.com/gomlx/attnbench/types/tensors"
)

// fakeAdapter accepts every case; pickyAdapter rejects with fixed reasons.
type fakeAdapter struct{ name string }

func (f fakeAdapter) Name() string { return f.name }

func (f fakeAdapter) Description() string { return "fake adapter for tests" }

func (f fakeAdapter) Forward(in *Inputs) (*tensors.Tensor, error) {
	return tensors.FromShape(in.Query.Tensor.Shape()), nil
}

type pickyAdapter struct {
	fakeAdapter
	reasons []string
}

func (p pickyAdapter) NotSupportedReasons(in *Inputs) []string { return p.reasons }

// newTestInputs builds one case the way the sweep does: dense 5D query,
// single-group key/value storage broadcast over the group axis.
func newTestInputs(t *testing.T, cfg ShapeConfig, seed int64) *Inputs {
	require.NoError(t, cfg.Validate())
	rng := rand.New(rand.NewSource(seed))
	g := cfg.GroupSize()
	query := tensors.FromShape(shapes.Make(cfg.DType, cfg.B, cfg.Mq, cfg.Hkv, g, cfg.HeadDim))
	key := tensors.FromShape(shapes.Make(cfg.DType, cfg.B, cfg.Mkv, cfg.Hkv, 1, cfg.HeadDim))
	value := tensors.FromShape(shapes.Make(cfg.DType, cfg.B, cfg.Mkv, cfg.Hkv, 1, cfg.HeadDim))
	query.FillNormal(rng)
	key.FillNormal(rng)
	value.FillNormal(rng)
	return &Inputs{
		Config: cfg,
		Query:  query.View(),
		Key:    key.View().Expand(3, g),
		Value:  value.View().Expand(3, g),
		Bias:   attnbias.NewBlockDiagonalCausalPaddedKeys(rng, cfg.B, cfg.Mq, cfg.Mkv),
	}
}

func testConfig(dtype dtypes.DType) ShapeConfig {
	return ShapeConfig{B: 3, Mq: 1, Mkv: 24, Hq: 8, Hkv: 2, HeadDim: 16, DType: dtype}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.Equal(t, 0, reg.Len())

	reg.Register(fakeAdapter{name: "one"})
	reg.Register(fakeAdapter{name: "two"})
	reg.Register(fakeAdapter{name: "three"})

	assert.Equal(t, []string{"one", "two", "three"}, reg.Names())
	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, "two", reg.Get("two").Name())
	assert.Nil(t, reg.Get("missing"))

	require.Panics(t, func() { reg.Register(fakeAdapter{name: "two"}) })
	// A failed registration must not disturb the order.
	assert.Equal(t, []string{"one", "two", "three"}, reg.Names())
}

func TestCheckSupport(t *testing.T) {
	in := newTestInputs(t, testConfig(dtypes.Float32), 10)

	// Adapters without a SupportChecker accept everything.
	require.NoError(t, CheckSupport(fakeAdapter{name: "plain"}, in))
	assert.Nil(t, NotSupportedReasons(fakeAdapter{name: "plain"}, in))

	picky := pickyAdapter{fakeAdapter{name: "picky"}, []string{"too big", "wrong phase of the moon"}}
	err := CheckSupport(picky, in)
	require.Error(t, err)

	var notSupported *NotSupportedError
	require.True(t, errors.As(err, &notSupported))
	assert.Equal(t, "picky", notSupported.Backend)
	assert.Equal(t, picky.reasons, notSupported.Reasons)
	assert.Contains(t, err.Error(), "too big; wrong phase of the moon")

	// An empty reason list means supported.
	require.NoError(t, CheckSupport(pickyAdapter{fakeAdapter{name: "ok"}, nil}, in))
}

func TestShapeConfig(t *testing.T) {
	cfg := testConfig(dtypes.Float32)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.GroupSize())
	assert.InDelta(t, 0.25, cfg.Scale(), 1e-15)
	// 2*(B*Mkv*Hkv*K) + 2*(B*Mq*Hq*K), 4 bytes per float32 element.
	wantBytes := uint64(2*(3*24*2*16)+2*(3*1*8*16)) * 4
	assert.Equal(t, wantBytes, cfg.TotalBytes())
	assert.Equal(t, "B=3 Mq=1 Mkv=24 Hq=8 Hkv=2 K=16 TotalBytes=21504", cfg.Label())

	for name, mutate := range map[string]func(*ShapeConfig){
		"zero batch":        func(c *ShapeConfig) { c.B = 0 },
		"zero queries":      func(c *ShapeConfig) { c.Mq = 0 },
		"queries over keys": func(c *ShapeConfig) { c.Mq = c.Mkv + 1 },
		"zero kv heads":     func(c *ShapeConfig) { c.Hkv = 0 },
		"indivisible heads": func(c *ShapeConfig) { c.Hkv = 3 },
		"zero head dim":     func(c *ShapeConfig) { c.HeadDim = 0 },
		"non-float dtype":   func(c *ShapeConfig) { c.DType = dtypes.Int32 },
	} {
		bad := cfg
		mutate(&bad)
		assert.Error(t, bad.Validate(), name)
	}
}

func TestGoMinor(t *testing.T) {
	for version, want := range map[string]int{
		"go1.24.5":      24,
		"go1.26rc2":     26,
		"go1.9":         9,
		"go1.30":        30,
		"devel +abc123": 0,
		"":              0,
		"go1.x":         0,
	} {
		assert.Equal(t, want, goMinor(version), "version %q", version)
	}
}
