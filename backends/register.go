// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"k8s.io/klog/v2"

	"github.com/gomlx/attnbench/internal/workerspool"
)

// splitKMinGoMinor is the toolchain floor of the split-KV adapter.
const splitKMinGoMinor = 24

// RegisterDefaults fills reg with every adapter caps allows, in the fixed
// report order: the reference baseline first, then the ISA-gated families,
// then the split-KV decoder, then the optional fused implementation.
//
// pool bounds the fan-out of the parallel kernels; workerspool.New() is the
// usual choice.
func RegisterDefaults(reg *Registry, caps Capabilities, pool *workerspool.Pool) {
	reg.Register(NewReference())

	if caps.HasAVX2() {
		reg.Register(NewDecoder("decoder"))
		reg.Register(NewBlocked("blocked"))
	} else {
		klog.V(1).Info("backends: no AVX2, skipping the decoder and blocked adapters")
	}

	if caps.HasNEON() {
		reg.Register(NewDecoder("neon-decoder"))
		reg.Register(NewBlocked("neon-blocked"))
		reg.Register(NewSplitK("neon-splitk", pool))
	} else {
		klog.V(1).Info("backends: no NEON, skipping the neon adapters")
	}

	if minor := caps.GoMinor(); minor >= splitKMinGoMinor {
		reg.Register(NewSplitK("splitk", pool))
	} else {
		klog.V(1).Infof("backends: split-KV adapter wants go1.%d+, toolchain reports go1.%d", splitKMinGoMinor, minor)
	}

	if fused := caps.FusedKernels(); fused != nil {
		reg.Register(NewFused(fused))
	} else {
		klog.V(1).Info("backends: no fused implementation registered, import the highway submodule to enable it")
	}
}
