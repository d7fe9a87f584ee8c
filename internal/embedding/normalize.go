package embedding

import "math"

// NormalizeL2Slice normalizes the slice in place to unit L2 norm. It reports false,
// leaving x unchanged, when the norm is zero.
func NormalizeL2Slice(x []float32) bool {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return false
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range x {
		x[i] *= norm
	}
	return true
}
