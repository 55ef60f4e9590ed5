// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import "math"

// Decode is the decode-specialized kernel: it walks only the valid keys of
// each sequence directly in their strided storage (no gather, no padded
// positions, no broadcast copies) and accumulates the weighted values
// row-by-row.
func Decode[T Float](a Args, q, k, v, out []T) {
	numSeqs, qLen, kvPadding := a.NumSeqs(), a.QLen(), a.KVPadding()
	numHeads, headDim := a.NumHeads, a.HeadDim
	groupSize := a.GroupSize()
	scale := T(a.Scale)
	qRowStride := numHeads * headDim
	kvRowStride := a.NumKVHeads * headDim

	scores := getScratch[T](kvPadding)
	defer putScratch(scores)

	for seq := range numSeqs {
		kvBase := seq * kvPadding * kvRowStride
		for h := range numHeads {
			kvHeadOff := (h / groupSize) * headDim
			for qi := range qLen {
				allowed := a.Mask.AllowedKeys(seq, qi)
				tok := seq*qLen + qi
				qOff := tok*qRowStride + h*headDim

				rowMax := T(math.Inf(-1))
				for j := range allowed {
					kOff := kvBase + j*kvRowStride + kvHeadOff
					var dot T
					for d := range headDim {
						dot += q[qOff+d] * k[kOff+d]
					}
					s := dot * scale
					scores[j] = s
					if s > rowMax {
						rowMax = s
					}
				}

				var sum T
				for j := range allowed {
					scores[j] = T(math.Exp(float64(scores[j] - rowMax)))
					sum += scores[j]
				}
				invSum := 1.0 / sum

				outOff := tok*qRowStride + h*headDim
				outRow := out[outOff : outOff+headDim]
				for d := range outRow {
					outRow[d] = 0
				}
				for j := range allowed {
					w := scores[j] * invSum
					vOff := kvBase + j*kvRowStride + kvHeadOff
					for d := range outRow {
						outRow[d] += w * v[vOff+d]
					}
				}
			}
		}
	}
}
