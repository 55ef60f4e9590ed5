package tensors

import (
	"math/rand"
	"testing"

	"github.com/gomlx/attnbench/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestFromShape(t *testing.T) {
	for _, dtype := range []dtypes.DType{dtypes.Float16, dtypes.BFloat16, dtypes.Float32, dtypes.Float64} {
		tensor := FromShape(shapes.Make(dtype, 2, 3))
		require.Equal(t, dtype, tensor.DType())
		require.Equal(t, 6, tensor.Size())
	}
	require.Panics(t, func() { FromShape(shapes.Make(dtypes.Int32, 2)) })
}

func TestFlatAs(t *testing.T) {
	tensor := FromShape(shapes.Make(dtypes.Float32, 4))
	flat := FlatAs[float32](tensor)
	require.Len(t, flat, 4)
	flat[2] = 7
	require.Equal(t, float32(7), FlatAs[float32](tensor)[2])
	require.Panics(t, func() { FlatAs[float64](tensor) })
}

func TestFillNormalDeterminism(t *testing.T) {
	const seed = 10
	build := func() *Tensor {
		tensor := FromShape(shapes.Make(dtypes.Float16, 3, 5))
		tensor.FillNormal(rand.New(rand.NewSource(seed)))
		return tensor
	}
	a, b := build(), build()
	require.True(t, a.Equal(b))

	c := FromShape(shapes.Make(dtypes.Float16, 3, 5))
	c.FillNormal(rand.New(rand.NewSource(seed + 1)))
	assert.False(t, a.Equal(c))

	// Contents are real numbers, not zeros.
	flat := FlatAs[float16.Float16](a)
	nonZero := 0
	for _, v := range flat {
		if v.Float32() != 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, len(flat)/2)
}

func TestDenseView(t *testing.T) {
	tensor := FromShape(shapes.Make(dtypes.Float32, 2, 3, 4))
	v := tensor.View()
	require.Equal(t, []int{2, 3, 4}, v.Dims)
	require.Equal(t, []int{12, 4, 1}, v.Strides)
	require.True(t, v.IsDense())
	require.Equal(t, 24, v.Size())
	require.Equal(t, 1*12+2*4+3, v.Offset(1, 2, 3))
	require.Panics(t, func() { v.Offset(0, 0) })
	require.Panics(t, func() { v.Offset(0, 3, 0) })
}

func TestViewExpand(t *testing.T) {
	// Key layout [B=2, Mkv=3, Hkv=2, 1, K=4] broadcast to group size 8.
	tensor := FromShape(shapes.Make(dtypes.Float32, 2, 3, 2, 1, 4))
	v := tensor.View().Expand(3, 8)
	require.Equal(t, []int{2, 3, 2, 8, 4}, v.Dims)
	require.Equal(t, 0, v.Stride(3))
	require.False(t, v.IsDense())

	// All group positions alias the same storage.
	flat := FlatAs[float32](tensor)
	flat[v.Offset(1, 2, 1, 0, 3)] = 42
	for g := 0; g < 8; g++ {
		require.Equal(t, v.Offset(1, 2, 1, 0, 3), v.Offset(1, 2, 1, g, 3))
	}

	require.Panics(t, func() { tensor.View().Expand(2, 8) }) // dim != 1
	require.Panics(t, func() { tensor.View().Expand(3, 0) })
}

func TestViewSqueeze(t *testing.T) {
	tensor := FromShape(shapes.Make(dtypes.Float32, 2, 1, 3, 1, 4))
	v := tensor.View().Squeeze(1)
	require.Equal(t, []int{2, 3, 1, 4}, v.Dims)
	v = v.Squeeze(-2)
	require.Equal(t, []int{2, 3, 4}, v.Dims)
	require.Equal(t, []int{12, 4, 1}, v.Strides)
	require.True(t, v.IsDense())
	require.Panics(t, func() { v.Squeeze(1) }) // dim != 1
}

func TestViewFlattenLeading(t *testing.T) {
	tensor := FromShape(shapes.Make(dtypes.Float32, 4, 3, 2))
	v := tensor.View().FlattenLeading()
	require.Equal(t, []int{1, 12, 2}, v.Dims)
	require.Equal(t, 2, v.Stride(1))
	require.Equal(t, tensor.Size(), v.Size()) // no tokens dropped or duplicated

	// Token (b=2, m=1) maps to flattened position 2*3+1.
	dense := tensor.View()
	require.Equal(t, dense.Offset(2, 1, 0), v.Offset(0, 2*3+1, 0))

	// Flattening a broadcast view keeps the zero stride on the group axis.
	kv := FromShape(shapes.Make(dtypes.Float32, 4, 3, 1, 2)).View().Expand(2, 5)
	flat := kv.FlattenLeading()
	require.Equal(t, []int{1, 12, 5, 2}, flat.Dims)
	require.Equal(t, 0, flat.Stride(2))
}
