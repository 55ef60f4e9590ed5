// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

// 16-bit floating point implementations, separated from the generic kernels
// to keep files organized by dtype. Neither half type supports Go arithmetic
// directly, so values are widened to float32 on load, all score and softmax
// math runs in float32, and only the final output narrows back.

import (
	"math"

	"github.com/gomlx/attnbench/attnbias"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"
)

// ReferenceFloat16 mirrors Reference for float16 storage: it converts the
// gathered key/value block to float32 and keeps the padded three-pass
// softmax.
func ReferenceFloat16(a Args, q, k, v, out []float16.Float16) {
	numSeqs, qLen, kvPadding := a.NumSeqs(), a.QLen(), a.KVPadding()
	numHeads, headDim := a.NumHeads, a.HeadDim
	groupSize := a.GroupSize()
	scale := float32(a.Scale)
	qRowStride := numHeads * headDim
	kvRowStride := a.NumKVHeads * headDim

	kGather := getScratch[float32](kvPadding * headDim)
	defer putScratch(kGather)
	vGather := getScratch[float32](kvPadding * headDim)
	defer putScratch(vGather)
	scores := getScratch[float32](kvPadding)
	defer putScratch(scores)
	maskRow := getScratch[float32](kvPadding)
	defer putScratch(maskRow)
	qRow := getScratch[float32](headDim)
	defer putScratch(qRow)

	for seq := range numSeqs {
		kvBase := seq * kvPadding * kvRowStride
		for h := range numHeads {
			kvHead := h / groupSize
			for j := range kvPadding {
				src := kvBase + j*kvRowStride + kvHead*headDim
				for d := range headDim {
					kGather[j*headDim+d] = k[src+d].Float32()
					vGather[j*headDim+d] = v[src+d].Float32()
				}
			}

			for qi := range qLen {
				tok := seq*qLen + qi
				qOff := tok*qRowStride + h*headDim
				for d := range headDim {
					qRow[d] = q[qOff+d].Float32()
				}
				attnbias.AdditiveRowInto(a.Mask, seq, qi, maskRow)

				rowMax := float32(math.Inf(-1))
				for j := range kvPadding {
					var dot float32
					for d := range headDim {
						dot += qRow[d] * kGather[j*headDim+d]
					}
					s := dot*scale + maskRow[j]
					scores[j] = s
					if s > rowMax {
						rowMax = s
					}
				}

				var sum float32
				for j := range kvPadding {
					scores[j] = float32(math.Exp(float64(scores[j] - rowMax)))
					sum += scores[j]
				}
				invSum := 1.0 / sum
				for j := range kvPadding {
					scores[j] *= invSum
				}

				outOff := tok*qRowStride + h*headDim
				for d := range headDim {
					var acc float32
					for j := range kvPadding {
						acc += scores[j] * vGather[j*headDim+d]
					}
					out[outOff+d] = float16.Fromfloat32(acc)
				}
			}
		}
	}
}

// ReferenceBFloat16 mirrors Reference for bfloat16 storage.
func ReferenceBFloat16(a Args, q, k, v, out []bfloat16.BFloat16) {
	numSeqs, qLen, kvPadding := a.NumSeqs(), a.QLen(), a.KVPadding()
	numHeads, headDim := a.NumHeads, a.HeadDim
	groupSize := a.GroupSize()
	scale := float32(a.Scale)
	qRowStride := numHeads * headDim
	kvRowStride := a.NumKVHeads * headDim

	kGather := getScratch[float32](kvPadding * headDim)
	defer putScratch(kGather)
	vGather := getScratch[float32](kvPadding * headDim)
	defer putScratch(vGather)
	scores := getScratch[float32](kvPadding)
	defer putScratch(scores)
	maskRow := getScratch[float32](kvPadding)
	defer putScratch(maskRow)
	qRow := getScratch[float32](headDim)
	defer putScratch(qRow)

	for seq := range numSeqs {
		kvBase := seq * kvPadding * kvRowStride
		for h := range numHeads {
			kvHead := h / groupSize
			for j := range kvPadding {
				src := kvBase + j*kvRowStride + kvHead*headDim
				for d := range headDim {
					kGather[j*headDim+d] = k[src+d].Float32()
					vGather[j*headDim+d] = v[src+d].Float32()
				}
			}

			for qi := range qLen {
				tok := seq*qLen + qi
				qOff := tok*qRowStride + h*headDim
				for d := range headDim {
					qRow[d] = q[qOff+d].Float32()
				}
				attnbias.AdditiveRowInto(a.Mask, seq, qi, maskRow)

				rowMax := float32(math.Inf(-1))
				for j := range kvPadding {
					var dot float32
					for d := range headDim {
						dot += qRow[d] * kGather[j*headDim+d]
					}
					s := dot*scale + maskRow[j]
					scores[j] = s
					if s > rowMax {
						rowMax = s
					}
				}

				var sum float32
				for j := range kvPadding {
					scores[j] = float32(math.Exp(float64(scores[j] - rowMax)))
					sum += scores[j]
				}
				invSum := 1.0 / sum
				for j := range kvPadding {
					scores[j] *= invSum
				}

				outOff := tok*qRowStride + h*headDim
				for d := range headDim {
					var acc float32
					for j := range kvPadding {
						acc += scores[j] * vGather[j*headDim+d]
					}
					out[outOff+d] = bfloat16.FromFloat32(acc)
				}
			}
		}
	}
}

// DecodeFloat16 mirrors Decode for float16 storage: strided walk over valid
// keys only, widening each loaded element.
func DecodeFloat16(a Args, q, k, v, out []float16.Float16) {
	numSeqs, qLen, kvPadding := a.NumSeqs(), a.QLen(), a.KVPadding()
	numHeads, headDim := a.NumHeads, a.HeadDim
	groupSize := a.GroupSize()
	scale := float32(a.Scale)
	qRowStride := numHeads * headDim
	kvRowStride := a.NumKVHeads * headDim

	scores := getScratch[float32](kvPadding)
	defer putScratch(scores)
	qRow := getScratch[float32](headDim)
	defer putScratch(qRow)
	acc := getScratch[float32](headDim)
	defer putScratch(acc)

	for seq := range numSeqs {
		kvBase := seq * kvPadding * kvRowStride
		for h := range numHeads {
			kvHeadOff := (h / groupSize) * headDim
			for qi := range qLen {
				allowed := a.Mask.AllowedKeys(seq, qi)
				tok := seq*qLen + qi
				qOff := tok*qRowStride + h*headDim
				for d := range headDim {
					qRow[d] = q[qOff+d].Float32()
				}

				rowMax := float32(math.Inf(-1))
				for j := range allowed {
					kOff := kvBase + j*kvRowStride + kvHeadOff
					var dot float32
					for d := range headDim {
						dot += qRow[d] * k[kOff+d].Float32()
					}
					s := dot * scale
					scores[j] = s
					if s > rowMax {
						rowMax = s
					}
				}

				var sum float32
				for j := range allowed {
					scores[j] = float32(math.Exp(float64(scores[j] - rowMax)))
					sum += scores[j]
				}
				invSum := 1.0 / sum

				for d := range headDim {
					acc[d] = 0
				}
				for j := range allowed {
					w := scores[j] * invSum
					vOff := kvBase + j*kvRowStride + kvHeadOff
					for d := range headDim {
						acc[d] += w * v[vOff+d].Float32()
					}
				}

				outOff := tok*qRowStride + h*headDim
				for d := range headDim {
					out[outOff+d] = float16.Fromfloat32(acc[d])
				}
			}
		}
	}
}
