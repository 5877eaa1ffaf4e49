package transducer

import "github.com/samcharles93/transducer/internal/half"

// Logit constrains the lattice element types the kernels accept. All
// accumulation happens in float32 regardless of the logit type.
type Logit interface {
	float32 | half.Half
}

func toF32[D Logit](v D) float32 {
	switch x := any(v).(type) {
	case float32:
		return x
	case half.Half:
		return x.Float32()
	}
	return 0
}

func fromF32[D Logit](v float32) D {
	var zero D
	switch any(zero).(type) {
	case float32:
		return any(v).(D)
	case half.Half:
		return any(half.FromFloat32(v)).(D)
	}
	return zero
}
