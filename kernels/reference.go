// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"

	"github.com/gomlx/attnbench/attnbias"
)

// Reference is the unfused baseline: per sequence and head it gathers the
// full padded key/value block into contiguous scratch (the same block is
// copied once per query head of the group, so the grouped-query broadcast is
// paid in full), materializes the complete score row including masked
// padding, and runs a three-pass softmax.
//
// Every other kernel is validated against this one.
func Reference[T Float](a Args, q, k, v, out []T) {
	numSeqs, qLen, kvPadding := a.NumSeqs(), a.QLen(), a.KVPadding()
	numHeads, headDim := a.NumHeads, a.HeadDim
	groupSize := a.GroupSize()
	scale := T(a.Scale)
	qRowStride := numHeads * headDim
	kvRowStride := a.NumKVHeads * headDim

	kGather := getScratch[T](kvPadding * headDim)
	defer putScratch(kGather)
	vGather := getScratch[T](kvPadding * headDim)
	defer putScratch(vGather)
	scores := getScratch[T](kvPadding)
	defer putScratch(scores)
	maskRow := getScratch[T](kvPadding)
	defer putScratch(maskRow)

	for seq := range numSeqs {
		kvBase := seq * kvPadding * kvRowStride
		for h := range numHeads {
			kvHead := h / groupSize
			for j := range kvPadding {
				src := kvBase + j*kvRowStride + kvHead*headDim
				copy(kGather[j*headDim:(j+1)*headDim], k[src:src+headDim])
				copy(vGather[j*headDim:(j+1)*headDim], v[src:src+headDim])
			}

			for qi := range qLen {
				tok := seq*qLen + qi
				qOff := tok*qRowStride + h*headDim
				attnbias.AdditiveRowInto(a.Mask, seq, qi, maskRow)

				// scores[j] = sum_d(q[d] * k[j][d]) * scale + mask[j]
				rowMax := T(math.Inf(-1))
				for j := range kvPadding {
					var dot T
					for d := range headDim {
						dot += q[qOff+d] * kGather[j*headDim+d]
					}
					s := dot*scale + maskRow[j]
					scores[j] = s
					if s > rowMax {
						rowMax = s
					}
				}

				// Softmax: exp(scores - max) and sum.
				var sum T
				for j := range kvPadding {
					scores[j] = T(math.Exp(float64(scores[j] - rowMax)))
					sum += scores[j]
				}
				invSum := 1.0 / sum
				for j := range kvPadding {
					scores[j] *= invSum
				}

				// out[d] = sum_j(scores[j] * v[j][d])
				outOff := tok*qRowStride + h*headDim
				for d := range headDim {
					var acc T
					for j := range kvPadding {
						acc += scores[j] * vGather[j*headDim+d]
					}
					out[outOff+d] = acc
				}
			}
		}
	}
}
