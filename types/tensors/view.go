// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// View reinterprets a Tensor's flat data through explicit dimensions and
// per-axis element strides.
//
// The element at indices (i0, i1, ..., in) lives at flat offset
// sum(ik*Strides[k]). A stride of 0 broadcasts that axis: every index reads
// the same storage, which is how key/value tensors are expanded across the
// query-head group dimension without copying.
//
// Views are cheap values; the slices are shared on copy, so use Clone before
// mutating dims of a view that escaped.
type View struct {
	Tensor  *Tensor
	Dims    []int
	Strides []int
}

// View returns the dense row-major view of the whole tensor.
func (t *Tensor) View() View {
	dims := t.shape.Dimensions
	strides := make([]int, len(dims))
	stride := 1
	for axis := len(dims) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= dims[axis]
	}
	return View{Tensor: t, Dims: slices.Clone(dims), Strides: strides}
}

// Rank returns the number of axes of the view.
func (v View) Rank() int { return len(v.Dims) }

// Size returns the number of addressable elements: the product of Dims.
// Broadcast axes count every logical position.
func (v View) Size() int {
	size := 1
	for _, d := range v.Dims {
		size *= d
	}
	return size
}

// DType of the viewed tensor.
func (v View) DType() dtypes.DType { return v.Tensor.DType() }

// Dim returns the dimension of the given axis; negative axes count from the
// end, as in shapes.Shape.Dim.
func (v View) Dim(axis int) int { return v.Dims[v.adjustAxis(axis)] }

// Stride returns the element stride of the given axis; negative axes count
// from the end.
func (v View) Stride(axis int) int { return v.Strides[v.adjustAxis(axis)] }

func (v View) adjustAxis(axis int) int {
	adjusted := axis
	if adjusted < 0 {
		adjusted += v.Rank()
	}
	if adjusted < 0 || adjusted >= v.Rank() {
		exceptions.Panicf("View axis %d out-of-bounds for rank %d (view=%s)", axis, v.Rank(), v)
	}
	return adjusted
}

// Offset returns the flat offset of the element at the given indices.
// len(indices) must equal the rank.
func (v View) Offset(indices ...int) int {
	if len(indices) != v.Rank() {
		exceptions.Panicf("View.Offset: got %d indices for rank %d (view=%s)", len(indices), v.Rank(), v)
	}
	offset := 0
	for axis, idx := range indices {
		if idx < 0 || idx >= v.Dims[axis] {
			exceptions.Panicf("View.Offset: index %d out-of-bounds for axis %d with dimension %d", idx, axis, v.Dims[axis])
		}
		offset += idx * v.Strides[axis]
	}
	return offset
}

// Clone returns a view with freshly copied Dims/Strides slices.
func (v View) Clone() View {
	return View{Tensor: v.Tensor, Dims: slices.Clone(v.Dims), Strides: slices.Clone(v.Strides)}
}

// Expand broadcasts the given axis (which must have dimension 1) to
// dimension n by setting its stride to 0. No data is copied.
func (v View) Expand(axis, n int) View {
	axis = v.adjustAxis(axis)
	if v.Dims[axis] != 1 {
		exceptions.Panicf("View.Expand: axis %d has dimension %d, only axes with dimension 1 can be broadcast (view=%s)", axis, v.Dims[axis], v)
	}
	if n < 1 {
		exceptions.Panicf("View.Expand: cannot broadcast to dimension %d", n)
	}
	out := v.Clone()
	out.Dims[axis] = n
	out.Strides[axis] = 0
	return out
}

// Squeeze removes the given axis, which must have dimension 1.
func (v View) Squeeze(axis int) View {
	axis = v.adjustAxis(axis)
	if v.Dims[axis] != 1 {
		exceptions.Panicf("View.Squeeze: axis %d has dimension %d != 1 (view=%s)", axis, v.Dims[axis], v)
	}
	out := View{Tensor: v.Tensor}
	out.Dims = append(slices.Clone(v.Dims[:axis]), v.Dims[axis+1:]...)
	out.Strides = append(slices.Clone(v.Strides[:axis]), v.Strides[axis+1:]...)
	return out
}

// FlattenLeading merges the two leading axes (d0, d1, rest...) into
// (1, d0*d1, rest...), keeping the rank. It requires the leading axis to nest
// densely over the second (stride0 == d1*stride1), which holds for every
// view built by the case builder: the batch axis is never broadcast.
func (v View) FlattenLeading() View {
	if v.Rank() < 2 {
		exceptions.Panicf("View.FlattenLeading: need rank >= 2, got %s", v)
	}
	d0, d1 := v.Dims[0], v.Dims[1]
	if d0 > 1 && v.Strides[0] != d1*v.Strides[1] {
		exceptions.Panicf("View.FlattenLeading: leading axis (stride %d) does not nest over axis 1 (dim %d, stride %d)",
			v.Strides[0], d1, v.Strides[1])
	}
	out := v.Clone()
	out.Dims[0] = 1
	out.Dims[1] = d0 * d1
	out.Strides[0] = out.Dims[1] * v.Strides[1]
	return out
}

// IsDense reports whether the view covers its tensor contiguously in
// row-major order (no broadcast axes, no gaps).
func (v View) IsDense() bool {
	stride := 1
	for axis := v.Rank() - 1; axis >= 0; axis-- {
		if v.Dims[axis] != 1 && v.Strides[axis] != stride {
			return false
		}
		stride *= v.Dims[axis]
	}
	return stride == v.Tensor.Size()
}

// String implements stringer.
func (v View) String() string {
	parts := make([]string, v.Rank())
	for axis := range v.Dims {
		parts[axis] = fmt.Sprintf("%d:%d", v.Dims[axis], v.Strides[axis])
	}
	return fmt.Sprintf("(%s)[%s]", v.DType(), strings.Join(parts, " "))
}
