// Package half implements IEEE 754 binary16 storage for logit and gradient
// tensors. Decoding goes through a 64K lookup table; encoding rounds to
// nearest-even.
package half

import "math"

// Half is an IEEE 754 binary16 value in its raw bit representation.
type Half uint16

// table maps every possible binary16 bit-pattern to float32.
var table = func() [1 << 16]float32 {
	var tbl [1 << 16]float32
	for i := range tbl {
		tbl[i] = decode(uint16(i))
	}
	return tbl
}()

// Float32 widens h to float32.
func (h Half) Float32() float32 {
	return table[h]
}

func decode(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h & 0x3FF)
	var f uint32
	switch exp {
	case 0:
		if frac == 0 {
			f = sign << 31
		} else {
			e := uint32(127 - 15 + 1)
			for (frac & 0x400) == 0 {
				frac <<= 1
				e--
			}
			frac &= 0x3FF
			f = (sign << 31) | (e << 23) | (frac << 13)
		}
	case 0x1F:
		f = (sign << 31) | 0x7F800000 | (frac << 13)
	default:
		e := exp + (127 - 15)
		f = (sign << 31) | (e << 23) | (frac << 13)
	}
	return math.Float32frombits(f)
}

// FromFloat32 narrows f to binary16 with round-to-nearest-even.
func FromFloat32(f float32) Half {
	u := math.Float32bits(f)
	sign := (u >> 31) & 0x1
	exp := int((u >> 23) & 0xFF)
	frac := u & 0x7FFFFF

	if exp == 0xFF {
		// Inf/NaN
		if frac != 0 {
			return Half((sign << 15) | 0x7C00 | (frac >> 13) | 1)
		}
		return Half((sign << 15) | 0x7C00)
	}

	e := exp - 127
	if e > 15 {
		// overflow -> inf
		return Half((sign << 15) | 0x7C00)
	}
	if e < -14 {
		// subnormal or zero
		if e < -25 {
			return Half(sign << 15)
		}
		frac |= 0x800000
		shift := uint32(-14-e) + 13
		rnd := uint32(1<<(shift-1)) - 1 + ((frac >> shift) & 1)
		frac = (frac + rnd) >> shift
		return Half((sign << 15) | frac)
	}

	exp16 := uint32(e + 15)
	rnd := uint32(0xFFF + ((frac >> 13) & 1))
	frac = frac + rnd
	if (frac & 0x800000) != 0 {
		exp16++
		frac = 0
		if exp16 >= 0x1F {
			return Half((sign << 15) | 0x7C00)
		}
	}
	return Half((sign << 15) | (exp16 << 10) | (frac >> 13))
}

// NegInf is the binary16 negative infinity.
const NegInf Half = 0xFC00

// FromFloat32Slice narrows src into dst. The slices must be the same length.
func FromFloat32Slice(dst []Half, src []float32) {
	for i, v := range src {
		dst[i] = FromFloat32(v)
	}
}

// ToFloat32Slice widens src into dst. The slices must be the same length.
func ToFloat32Slice(dst []float32, src []Half) {
	for i, v := range src {
		dst[i] = v.Float32()
	}
}
