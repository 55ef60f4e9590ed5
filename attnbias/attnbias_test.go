package attnbias

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlockDiagonalCausalPaddedKeys(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	b := NewBlockDiagonalCausalPaddedKeys(rng, 8, 1, 256)
	require.NoError(t, b.Validate())
	require.Equal(t, 8, b.NumSequences())
	require.Equal(t, 8, b.TotalQueries())
	require.Equal(t, 8*256, b.TotalPaddedKeys())
	require.True(t, b.RequiresFlattenedBatch())

	for i, kvLen := range b.KVSeqLens {
		assert.GreaterOrEqual(t, kvLen, 1, "sequence %d", i)
		assert.LessOrEqual(t, kvLen, 256, "sequence %d", i)
	}
	// Worst-case row pinned.
	assert.Equal(t, 256, b.KVSeqLens[7])

	// Same seed, same lengths.
	b2 := NewBlockDiagonalCausalPaddedKeys(rand.New(rand.NewSource(10)), 8, 1, 256)
	assert.Equal(t, b.KVSeqLens, b2.KVSeqLens)

	// Multi-query sequences keep at least qSeqLen visible keys.
	multi := NewBlockDiagonalCausalPaddedKeys(rng, 4, 3, 8)
	require.NoError(t, multi.Validate())
	for i, kvLen := range multi.KVSeqLens {
		assert.GreaterOrEqual(t, kvLen, 3, "sequence %d", i)
	}

	require.Panics(t, func() { NewBlockDiagonalCausalPaddedKeys(rng, 0, 1, 8) })
	require.Panics(t, func() { NewBlockDiagonalCausalPaddedKeys(rng, 4, 9, 8) })
}

func TestValidate(t *testing.T) {
	valid := &BlockDiagonalCausalPaddedKeys{QSeqLen: 1, KVPadding: 4, KVSeqLens: []int{1, 4, 2}}
	require.NoError(t, valid.Validate())

	for name, b := range map[string]*BlockDiagonalCausalPaddedKeys{
		"zero queries":      {QSeqLen: 0, KVPadding: 4, KVSeqLens: []int{2}},
		"zero padding":      {QSeqLen: 1, KVPadding: 0, KVSeqLens: []int{1}},
		"no sequences":      {QSeqLen: 1, KVPadding: 4, KVSeqLens: nil},
		"length zero":       {QSeqLen: 1, KVPadding: 4, KVSeqLens: []int{0}},
		"length over pad":   {QSeqLen: 1, KVPadding: 4, KVSeqLens: []int{5}},
		"starved query row": {QSeqLen: 3, KVPadding: 4, KVSeqLens: []int{2}},
	} {
		assert.Error(t, b.Validate(), name)
	}
}

func TestAllowedKeysCausalOffset(t *testing.T) {
	// 3 queries at the end of a sequence with 5 valid keys out of 8.
	b := &BlockDiagonalCausalPaddedKeys{QSeqLen: 3, KVPadding: 8, KVSeqLens: []int{5}}
	require.NoError(t, b.Validate())
	assert.Equal(t, 3, b.AllowedKeys(0, 0))
	assert.Equal(t, 4, b.AllowedKeys(0, 1))
	assert.Equal(t, 5, b.AllowedKeys(0, 2)) // last query sees every valid key

	// Single-token decode: the query sees exactly the valid keys.
	decode := &BlockDiagonalCausalPaddedKeys{QSeqLen: 1, KVPadding: 8, KVSeqLens: []int{5, 8}}
	assert.Equal(t, 5, decode.AllowedKeys(0, 0))
	assert.Equal(t, 8, decode.AllowedKeys(1, 0))
}

func TestAdditiveRowInto(t *testing.T) {
	b := &BlockDiagonalCausalPaddedKeys{QSeqLen: 2, KVPadding: 6, KVSeqLens: []int{4}}
	row := make([]float32, 6)

	AdditiveRowInto(b, 0, 0, row)
	for j := 0; j < 3; j++ {
		assert.Equal(t, float32(0), row[j], "key %d", j)
	}
	for j := 3; j < 6; j++ {
		assert.True(t, math.IsInf(float64(row[j]), -1), "key %d", j)
	}

	row64 := make([]float64, 6)
	AdditiveRowInto(b, 0, 1, row64)
	for j := 0; j < 4; j++ {
		assert.Equal(t, float64(0), row64[j], "key %d", j)
	}
	for j := 4; j < 6; j++ {
		assert.True(t, math.IsInf(row64[j], -1), "key %d", j)
	}
}
