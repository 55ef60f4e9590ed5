// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import "math"

// DecodeBlocked processes the valid keys in tiles of kvTileRows, carrying a
// running maximum and a running exp-sum across tiles (online softmax): when
// a tile raises the maximum, the accumulated weighted values and the exp-sum
// are rescaled by exp(oldMax-newMax) instead of being recomputed. Scores
// never materialize beyond one tile.
func DecodeBlocked[T Float](a Args, q, k, v, out []T) {
	numSeqs, qLen, kvPadding := a.NumSeqs(), a.QLen(), a.KVPadding()
	numHeads, headDim := a.NumHeads, a.HeadDim
	groupSize := a.GroupSize()
	scale := T(a.Scale)
	qRowStride := numHeads * headDim
	kvRowStride := a.NumKVHeads * headDim

	tileScores := getScratch[T](kvTileRows)
	defer putScratch(tileScores)
	acc := getScratch[T](headDim)
	defer putScratch(acc)

	for seq := range numSeqs {
		kvBase := seq * kvPadding * kvRowStride
		for h := range numHeads {
			kvHeadOff := (h / groupSize) * headDim
			for qi := range qLen {
				allowed := a.Mask.AllowedKeys(seq, qi)
				tok := seq*qLen + qi
				qOff := tok*qRowStride + h*headDim

				m := T(math.Inf(-1))
				var l T
				for d := range headDim {
					acc[d] = 0
				}

				for tileStart := 0; tileStart < allowed; tileStart += kvTileRows {
					tileEnd := min(tileStart+kvTileRows, allowed)
					n := tileEnd - tileStart

					tileMax := T(math.Inf(-1))
					for jj := range n {
						kOff := kvBase + (tileStart+jj)*kvRowStride + kvHeadOff
						var dot T
						for d := range headDim {
							dot += q[qOff+d] * k[kOff+d]
						}
						s := dot * scale
						tileScores[jj] = s
						if s > tileMax {
							tileMax = s
						}
					}

					newM := max(m, tileMax)
					// exp(-Inf-newM) == 0 zeroes the (empty) running state
					// on the first tile.
					rescale := T(math.Exp(float64(m - newM)))
					l *= rescale
					for d := range headDim {
						acc[d] *= rescale
					}
					for jj := range n {
						w := T(math.Exp(float64(tileScores[jj] - newM)))
						l += w
						vOff := kvBase + (tileStart+jj)*kvRowStride + kvHeadOff
						for d := range headDim {
							acc[d] += w * v[vOff+d]
						}
					}
					m = newM
				}

				invL := 1.0 / l
				outOff := tok*qRowStride + h*headDim
				for d := range headDim {
					out[outOff+d] = acc[d] * invL
				}
			}
		}
	}
}
