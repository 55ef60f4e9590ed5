// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"

	"github.com/gomlx/attnbench/internal/workerspool"
)

// splitChunk is one unit of parallel work: a contiguous run of valid keys
// for a single (sequence, head, query) row. partial indexes the row's
// reduction state inside the shared partials buffer.
type splitChunk struct {
	seq, head, qi int
	start, end    int
	partial       int
}

// partialStride entries per chunk: running max, exp-sum, then the
// weighted-value accumulator of HeadDim entries.
func partialStride(headDim int) int { return headDim + 2 }

// DecodeSplitKV splits the valid keys of every (sequence, head, query) row
// into chunks of at most splitKVMinChunkRows, computes a softmax partial
// (max, exp-sum, weighted values) per chunk on the workers pool, then merges
// the partials in order with the usual exp(oldMax-newMax) rescaling. Long KV
// sequences gain parallelism that the row loop alone cannot expose.
func DecodeSplitKV[T Float](a Args, pool *workerspool.Pool, q, k, v, out []T) {
	numSeqs, qLen, kvPadding := a.NumSeqs(), a.QLen(), a.KVPadding()
	numHeads, headDim := a.NumHeads, a.HeadDim
	groupSize := a.GroupSize()
	scale := T(a.Scale)
	qRowStride := numHeads * headDim
	kvRowStride := a.NumKVHeads * headDim
	stride := partialStride(headDim)

	chunks := make([]splitChunk, 0, numSeqs*numHeads*qLen)
	for seq := range numSeqs {
		for h := range numHeads {
			for qi := range qLen {
				allowed := a.Mask.AllowedKeys(seq, qi)
				for start := 0; start < allowed; start += splitKVMinChunkRows {
					end := min(start+splitKVMinChunkRows, allowed)
					chunks = append(chunks, splitChunk{
						seq: seq, head: h, qi: qi,
						start: start, end: end,
						partial: len(chunks) * stride,
					})
				}
			}
		}
	}

	partials := getScratch[T](len(chunks) * stride)
	defer putScratch(partials)

	pool.ParallelFor(len(chunks), func(i int) {
		c := chunks[i]
		n := c.end - c.start
		kvBase := c.seq * kvPadding * kvRowStride
		kvHeadOff := (c.head / groupSize) * headDim
		tok := c.seq*qLen + c.qi
		qOff := tok*qRowStride + c.head*headDim

		scores := getScratch[T](n)
		defer putScratch(scores)

		m := T(math.Inf(-1))
		for jj := range n {
			kOff := kvBase + (c.start+jj)*kvRowStride + kvHeadOff
			var dot T
			for d := range headDim {
				dot += q[qOff+d] * k[kOff+d]
			}
			s := dot * scale
			scores[jj] = s
			if s > m {
				m = s
			}
		}

		p := partials[c.partial : c.partial+stride]
		acc := p[2:]
		for d := range headDim {
			acc[d] = 0
		}
		var l T
		for jj := range n {
			w := T(math.Exp(float64(scores[jj] - m)))
			l += w
			vOff := kvBase + (c.start+jj)*kvRowStride + kvHeadOff
			for d := range headDim {
				acc[d] += w * v[vOff+d]
			}
		}
		p[0] = m
		p[1] = l
	})

	merged := getScratch[T](headDim)
	defer putScratch(merged)
	for i := 0; i < len(chunks); {
		c0 := chunks[i]
		p := partials[c0.partial : c0.partial+stride]
		m, l := p[0], p[1]
		copy(merged, p[2:2+headDim])

		j := i + 1
		for ; j < len(chunks); j++ {
			c := chunks[j]
			if c.seq != c0.seq || c.head != c0.head || c.qi != c0.qi {
				break
			}
			p = partials[c.partial : c.partial+stride]
			newM := max(m, p[0])
			r0 := T(math.Exp(float64(m - newM)))
			r1 := T(math.Exp(float64(p[0] - newM)))
			l = l*r0 + p[1]*r1
			for d := range headDim {
				merged[d] = merged[d]*r0 + p[2+d]*r1
			}
			m = newM
		}

		invL := 1.0 / l
		tok := c0.seq*qLen + c0.qi
		outOff := tok*qRowStride + c0.head*headDim
		for d := range headDim {
			out[outOff+d] = merged[d] * invL
		}
		i = j
	}
}
