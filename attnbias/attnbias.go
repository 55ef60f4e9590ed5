// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package attnbias defines the attention bias (mask) objects consumed by the
// benchmark backends.
//
// The decoding sweep uses one mask family: a batch of independent
// variable-length sequences whose keys are packed into fixed-size padded
// blocks along a single flattened dimension, each sequence causal with its
// queries aligned to the end of its keys (the autoregressive decode
// position). Backends either consume the block structure directly
// (per-sequence key counts) or materialize additive rows of 0/-Inf.
package attnbias

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Bias describes valid attention positions for one benchmark case.
type Bias interface {
	// RequiresFlattenedBatch reports whether tensors must be reshaped from
	// (batch, seqLen, ...) to (1, batch*seqLen, ...) before the forward call.
	RequiresFlattenedBatch() bool

	fmt.Stringer
}

// BlockDiagonalCausalPaddedKeys masks a batch of sequences packed along one
// axis. Sequence i owns queries [i*QSeqLen, (i+1)*QSeqLen) and the key block
// [i*KVPadding, i*KVPadding+KVSeqLens[i]); the rest of its key block is
// padding. Within a sequence the mask is causal with queries aligned to the
// last KVSeqLens[i] positions, so the final query sees every valid key.
type BlockDiagonalCausalPaddedKeys struct {
	// QSeqLen is the number of queries per sequence.
	QSeqLen int

	// KVPadding is the fixed stride between consecutive sequences' key
	// blocks; every block stores this many key rows, valid or not.
	KVPadding int

	// KVSeqLens gives the number of valid keys per sequence,
	// each in [1, KVPadding].
	KVSeqLens []int
}

var _ Bias = &BlockDiagonalCausalPaddedKeys{}

// NewBlockDiagonalCausalPaddedKeys builds the mask for numSeqs sequences
// with lengths drawn uniformly from [qSeqLen, kvPadding] using rng -- the
// lower bound keeps every query at least one visible key. The last sequence
// is pinned to the full padding so the worst-case row is always present.
//
// It panics if the geometry is impossible (no sequences, no queries, or
// more queries than padded keys).
func NewBlockDiagonalCausalPaddedKeys(rng *rand.Rand, numSeqs, qSeqLen, kvPadding int) *BlockDiagonalCausalPaddedKeys {
	if numSeqs < 1 || qSeqLen < 1 || qSeqLen > kvPadding {
		exceptions.Panicf("attnbias: invalid mask geometry: numSeqs=%d, qSeqLen=%d, kvPadding=%d",
			numSeqs, qSeqLen, kvPadding)
	}
	b := &BlockDiagonalCausalPaddedKeys{
		QSeqLen:   qSeqLen,
		KVPadding: kvPadding,
		KVSeqLens: make([]int, numSeqs),
	}
	for i := range b.KVSeqLens {
		b.KVSeqLens[i] = qSeqLen + rng.Intn(kvPadding-qSeqLen+1)
	}
	b.KVSeqLens[numSeqs-1] = kvPadding
	return b
}

// RequiresFlattenedBatch implements Bias: all sequences share one flattened
// token axis.
func (b *BlockDiagonalCausalPaddedKeys) RequiresFlattenedBatch() bool { return true }

// NumSequences returns the number of packed sequences.
func (b *BlockDiagonalCausalPaddedKeys) NumSequences() int { return len(b.KVSeqLens) }

// TotalQueries returns the flattened query count, numSeqs*QSeqLen.
func (b *BlockDiagonalCausalPaddedKeys) TotalQueries() int { return len(b.KVSeqLens) * b.QSeqLen }

// TotalPaddedKeys returns the flattened key count including padding,
// numSeqs*KVPadding.
func (b *BlockDiagonalCausalPaddedKeys) TotalPaddedKeys() int { return len(b.KVSeqLens) * b.KVPadding }

// Validate checks the mask invariants.
func (b *BlockDiagonalCausalPaddedKeys) Validate() error {
	if b.QSeqLen < 1 {
		return errors.Errorf("mask has QSeqLen=%d, must be >= 1", b.QSeqLen)
	}
	if b.KVPadding < 1 {
		return errors.Errorf("mask has KVPadding=%d, must be >= 1", b.KVPadding)
	}
	if len(b.KVSeqLens) == 0 {
		return errors.New("mask has no sequences")
	}
	for i, kvLen := range b.KVSeqLens {
		if kvLen < 1 || kvLen > b.KVPadding {
			return errors.Errorf("sequence %d has %d valid keys, want within [1, %d]", i, kvLen, b.KVPadding)
		}
		if kvLen < b.QSeqLen {
			return errors.Errorf("sequence %d has %d valid keys for %d queries: every query needs at least one visible key", i, kvLen, b.QSeqLen)
		}
	}
	return nil
}

// AllowedKeys returns how many keys of sequence seq are visible to its
// query qi (0-based within the sequence). Queries sit at the end of the
// sequence, so query qi sees keys [0, kvLen-QSeqLen+qi].
func (b *BlockDiagonalCausalPaddedKeys) AllowedKeys(seq, qi int) int {
	allowed := b.KVSeqLens[seq] - b.QSeqLen + qi + 1
	if allowed < 0 {
		return 0
	}
	return allowed
}

// String implements fmt.Stringer.
func (b *BlockDiagonalCausalPaddedKeys) String() string {
	return fmt.Sprintf("BlockDiagonalCausalPaddedKeys(seqs=%d, q=%d, kvPadding=%d)",
		len(b.KVSeqLens), b.QSeqLen, b.KVPadding)
}

// AdditiveRowInto fills dst (length KVPadding) with the additive mask row
// for query qi of sequence seq: 0 on visible keys, -Inf elsewhere.
func AdditiveRowInto[T float32 | float64](b *BlockDiagonalCausalPaddedKeys, seq, qi int, dst []T) {
	negInf := T(math.Inf(-1))
	allowed := b.AllowedKeys(seq, qi)
	for j := range dst[:allowed] {
		dst[j] = 0
	}
	for j := allowed; j < len(dst); j++ {
		dst[j] = negInf
	}
}
