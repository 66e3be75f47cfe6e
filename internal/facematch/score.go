package facematch

import "math"

// CosineScore computes the clamped cosine similarity between two embeddings.
// Returns a value in [0, 1]; zero when either vector has zero norm or the
// lengths differ. Raw cosine of normalized face embeddings lands near [0, 1]
// already, but floating-point or backend quirks can push it slightly outside,
// so the result is clamped rather than propagated.
func CosineScore(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Score computes the similarity between a probe and a stored face using the
// scoring strategy of their shared embedding space. Comparing across spaces
// is an error, never a number.
func Score(probe *Probe, face *Face) (float64, error) {
	if probe.Mode != face.Mode {
		return 0, ErrCrossModeComparison
	}

	switch probe.Mode {
	case ModeEnsemble:
		return EnsembleScore(probe.Embedding, face.Embedding), nil
	default:
		return CosineScore(probe.Embedding, face.Embedding), nil
	}
}
