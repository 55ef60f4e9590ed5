// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements the dense host tensors the benchmark cases are
// built from, plus strided views over them.
//
// A Tensor owns a flat slice of its dtype ([]float16.Float16,
// []bfloat16.BFloat16, []float32 or []float64) in row-major order. A View
// reinterprets a Tensor's flat data through explicit dimensions and strides,
// which is how the grouped-query-attention broadcast is represented: the
// query-head group axis of key/value tensors gets dimension > 1 with stride
// 0, so no element is ever duplicated in memory.
package tensors

import (
	"math/rand"

	"github.com/gomlx/attnbench/types/shapes"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"
)

// Tensor holds a shape and the flat data for it.
//
// The flat slice is owned by the tensor. Cases are built, consumed by one
// backend and discarded, so there is no cross-goroutine sharing to guard.
type Tensor struct {
	shape shapes.Shape

	// flat is always a slice of the Go type corresponding to shape.DType.
	flat any
}

// FromShape creates a zero-initialized tensor with the given shape.
// It panics on dtypes the benchmark does not handle.
func FromShape(shape shapes.Shape) *Tensor {
	t := &Tensor{shape: shape}
	size := shape.Size()
	switch shape.DType {
	case dtypes.Float16:
		t.flat = make([]float16.Float16, size)
	case dtypes.BFloat16:
		t.flat = make([]bfloat16.BFloat16, size)
	case dtypes.Float32:
		t.flat = make([]float32, size)
	case dtypes.Float64:
		t.flat = make([]float64, size)
	default:
		exceptions.Panicf("tensors.FromShape: unsupported dtype %s (want Float16, BFloat16, Float32 or Float64)", shape.DType)
	}
	return t
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor elements.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Size returns the number of elements stored.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory returns the bytes used by the flat data.
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// Flat returns the underlying flat slice as an `any`. The concrete type is
// the slice of the tensor's dtype.
func (t *Tensor) Flat() any { return t.flat }

// FlatAs returns the flat data of t with its concrete type.
// It panics if T does not match the tensor's dtype.
func FlatAs[T float16.Float16 | bfloat16.BFloat16 | float32 | float64](t *Tensor) []T {
	flat, ok := t.flat.([]T)
	if !ok {
		exceptions.Panicf("tensors.FlatAs[%T]: tensor holds %s", flat, t.shape.DType)
	}
	return flat
}

// Equal reports whether both tensors have the same shape and bit-identical
// contents.
func (t *Tensor) Equal(o *Tensor) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !t.shape.Equal(o.shape) {
		return false
	}
	switch flat := t.flat.(type) {
	case []float16.Float16:
		return slicesEqual(flat, o.flat.([]float16.Float16))
	case []bfloat16.BFloat16:
		return slicesEqual(flat, o.flat.([]bfloat16.BFloat16))
	case []float32:
		return slicesEqual(flat, o.flat.([]float32))
	case []float64:
		return slicesEqual(flat, o.flat.([]float64))
	}
	return false
}

func slicesEqual[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

// FillNormal fills the tensor with samples from a standard normal
// distribution drawn from rng. Contents only need to be reproducible, they
// carry no meaning for timing.
func (t *Tensor) FillNormal(rng *rand.Rand) {
	switch flat := t.flat.(type) {
	case []float16.Float16:
		for i := range flat {
			flat[i] = float16.Fromfloat32(float32(rng.NormFloat64()))
		}
	case []bfloat16.BFloat16:
		for i := range flat {
			flat[i] = bfloat16.FromFloat32(float32(rng.NormFloat64()))
		}
	case []float32:
		for i := range flat {
			flat[i] = float32(rng.NormFloat64())
		}
	case []float64:
		for i := range flat {
			flat[i] = rng.NormFloat64()
		}
	}
}
