package transducer

import "math"

var negInf = float32(math.Inf(-1))

func isNegInf(v float32) bool {
	return math.IsInf(float64(v), -1)
}

// lse returns log(exp(a)+exp(b)) without overflowing on large magnitudes.
// Either argument may be -inf, in which case the other is returned.
func lse(a, b float32) float32 {
	if math.IsInf(float64(a), -1) {
		return b
	}
	if math.IsInf(float64(b), -1) {
		return a
	}
	mx := a
	if b > mx {
		mx = b
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return mx + float32(math.Log1p(math.Exp(float64(-d))))
}
