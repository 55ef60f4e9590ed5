// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/cpu"
)

// Capabilities is what RegisterDefaults consults to decide which adapters
// the host can run. Production code uses HostCapabilities; tests substitute
// fixed values to pin down the resulting registry.
type Capabilities interface {
	// HasAVX2 reports x86-64 vector support, the requirement of the
	// "decoder" and "blocked" adapters.
	HasAVX2() bool

	// HasNEON reports arm64 Advanced SIMD support, the requirement of
	// the "neon-*" adapter family.
	HasNEON() bool

	// GoMinor returns the minor version of the running Go toolchain
	// (24 for go1.24.5), or 0 when it cannot be determined.
	GoMinor() int

	// FusedKernels returns the optional fused implementation installed
	// by RegisterFusedKernels, or nil.
	FusedKernels() FusedKernels
}

// HostCapabilities returns the capabilities of the current process.
func HostCapabilities() Capabilities { return hostCaps{} }

type hostCaps struct{}

func (hostCaps) HasAVX2() bool { return cpu.X86.HasAVX2 }

func (hostCaps) HasNEON() bool { return cpu.ARM64.HasASIMD }

func (hostCaps) GoMinor() int { return goMinor(runtime.Version()) }

func (hostCaps) FusedKernels() FusedKernels { return fusedImpl }

// goMinor parses the minor out of a runtime version: "go1.24.5" and
// "go1.26rc2" give 24 and 26. Development builds without a version prefix
// yield 0.
func goMinor(version string) int {
	version, ok := strings.CutPrefix(version, "go1.")
	if !ok {
		return 0
	}
	end := 0
	for end < len(version) && version[end] >= '0' && version[end] <= '9' {
		end++
	}
	minor, err := strconv.Atoi(version[:end])
	if err != nil {
		return 0
	}
	return minor
}
