package facematch

import "math"

// Normalize scales a vector to unit length under the Euclidean norm.
// The zero vector is returned unchanged - normalization never divides by zero
// and never fails. Cosine comparison silently favors longer vectors, so every
// embedding must pass through here before it is stored or compared.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
