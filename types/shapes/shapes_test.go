package shapes

import (
	"testing"

	. "github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	invalidShape := Invalid()
	require.False(t, invalidShape.Ok())

	shape0 := Make(Float64)
	require.True(t, shape0.Ok())
	require.True(t, shape0.IsScalar())
	require.Equal(t, 0, shape0.Rank())
	require.Len(t, shape0.Dimensions, 0)
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))

	shape1 := Make(Float32, 4, 3, 2)
	require.True(t, shape1.Ok())
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Len(t, shape1.Dimensions, 3)
	require.Equal(t, 4*3*2, shape1.Size())
	require.Equal(t, 4*4*3*2, int(shape1.Memory()))

	// Half floats store in 2 bytes.
	shape2 := Make(Float16, 8, 128)
	require.Equal(t, 2*8*128, int(shape2.Memory()))

	require.Panics(t, func() { Make(Float32, 4, 0) })
	require.Panics(t, func() { Make(Float32, -1) })
}

func TestDim(t *testing.T) {
	shape := Make(Float32, 4, 3, 2)
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 3, shape.Dim(1))
	require.Equal(t, 2, shape.Dim(2))
	require.Equal(t, 4, shape.Dim(-3))
	require.Equal(t, 3, shape.Dim(-2))
	require.Equal(t, 2, shape.Dim(-1))
	require.Panics(t, func() { _ = shape.Dim(3) })
	require.Panics(t, func() { _ = shape.Dim(-4) })
}

func TestEqualAndClone(t *testing.T) {
	a := Make(Float32, 2, 1, 16, 128)
	b := Make(Float32, 2, 1, 16, 128)
	c := Make(Float16, 2, 1, 16, 128)
	d := Make(Float32, 2, 16, 128)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.True(t, a.EqualDimensions(c))
	require.False(t, a.Equal(d))

	clone := a.Clone()
	require.True(t, a.Equal(clone))
	clone.Dimensions[0] = 7
	require.Equal(t, 2, a.Dimensions[0])
}
