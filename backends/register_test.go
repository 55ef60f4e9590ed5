// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gomlx/attnbench/internal/workerspool"
)

type fakeCaps struct {
	avx2, neon bool
	goMinor    int
	fused      FusedKernels
}

func (c fakeCaps) HasAVX2() bool { return c.avx2 }

func (c fakeCaps) HasNEON() bool { return c.neon }

func (c fakeCaps) GoMinor() int { return c.goMinor }

func (c fakeCaps) FusedKernels() FusedKernels { return c.fused }

func TestRegisterDefaults(t *testing.T) {
	pool := workerspool.New()
	tests := []struct {
		name string
		caps fakeCaps
		want []string
	}{
		{
			name: "bare host",
			caps: fakeCaps{},
			want: []string{"reference"},
		},
		{
			name: "old toolchain only",
			caps: fakeCaps{goMinor: 23},
			want: []string{"reference"},
		},
		{
			name: "x86-64",
			caps: fakeCaps{avx2: true, goMinor: 24},
			want: []string{"reference", "decoder", "blocked", "splitk"},
		},
		{
			name: "arm64",
			caps: fakeCaps{neon: true, goMinor: 26},
			want: []string{"reference", "neon-decoder", "neon-blocked", "neon-splitk", "splitk"},
		},
		{
			name: "fused only",
			caps: fakeCaps{fused: &recordingFused{}},
			want: []string{"reference", "highway@test"},
		},
		{
			name: "everything",
			caps: fakeCaps{avx2: true, neon: true, goMinor: 26, fused: &recordingFused{}},
			want: []string{
				"reference", "decoder", "blocked",
				"neon-decoder", "neon-blocked", "neon-splitk",
				"splitk", "highway@test",
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			reg := NewRegistry()
			RegisterDefaults(reg, test.caps, pool)
			assert.Equal(t, test.want, reg.Names())
		})
	}
}

// TestHostCapabilities only checks it answers; the actual bits depend on
// the machine running the tests.
func TestHostCapabilities(t *testing.T) {
	caps := HostCapabilities()
	assert.GreaterOrEqual(t, caps.GoMinor(), splitKMinGoMinor)
	_ = caps.HasAVX2()
	_ = caps.HasNEON()
	assert.Nil(t, caps.FusedKernels())
}
