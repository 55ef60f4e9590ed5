// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import "sync"

// Scratch buffers are pooled per element type so repeated timing iterations
// of the same case reuse the same allocations.

type scratchPool[T any] struct {
	pool sync.Pool
}

func (p *scratchPool[T]) get(n int) []T {
	s, _ := p.pool.Get().([]T)
	if cap(s) < n {
		s = make([]T, n)
	}
	return s[:n]
}

func (p *scratchPool[T]) put(s []T) {
	if s == nil {
		return
	}
	p.pool.Put(s[:0]) //nolint:staticcheck // slices of scalars, no pointer indirection worth boxing.
}

// The half-precision kernels widen to float32 on load, so only the two
// arithmetic element types need pools.
var (
	scratchFloat32 = &scratchPool[float32]{}
	scratchFloat64 = &scratchPool[float64]{}
)

// getScratch returns a pooled slice with len n for the generic kernels.
func getScratch[T Float](n int) []T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(scratchFloat32.get(n)).([]T)
	default:
		return any(scratchFloat64.get(n)).([]T)
	}
}

// putScratch returns a slice obtained from getScratch to its pool.
func putScratch[T Float](s []T) {
	switch s := any(s).(type) {
	case []float32:
		scratchFloat32.put(s)
	case []float64:
		scratchFloat64.put(s)
	}
}
