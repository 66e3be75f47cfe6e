package facematch

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func cosineFace(photoID string, faceIndex int, embedding []float32) Face {
	return Face{
		EventID:   "evt-1",
		PhotoID:   photoID,
		FaceIndex: faceIndex,
		BBox:      []float64{10, 10, 50, 50},
		Embedding: embedding,
		Mode:      ModeCosine,
	}
}

func cosineProbe(embedding []float32, threshold float64) *Probe {
	return &Probe{
		EventID:   "evt-1",
		Embedding: embedding,
		Mode:      ModeCosine,
		Threshold: threshold,
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	matches, err := Search(cosineProbe([]float32{1, 0}, 0.5), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected 0 matches, got %d", len(matches))
	}
}

func TestSearchIdenticalEmbedding(t *testing.T) {
	faces := []Face{cosineFace("photo-1", 0, []float32{0.6, 0.8})}

	// An identical embedding scores 1.0 and survives any threshold <= 1.
	matches, err := Search(cosineProbe([]float32{0.6, 0.8}, 1.0), faces)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if math.Abs(matches[0].Similarity-1) > 1e-6 {
		t.Errorf("similarity %f, want 1", matches[0].Similarity)
	}
}

func TestSearchOrthogonalExcluded(t *testing.T) {
	faces := []Face{cosineFace("photo-1", 0, []float32{0, 1})}

	matches, err := Search(cosineProbe([]float32{1, 0}, 0.01), faces)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("orthogonal embedding matched at threshold > 0: %v", matches)
	}
}

func TestSearchThresholdFilters(t *testing.T) {
	faces := []Face{
		cosineFace("photo-1", 0, []float32{1, 0}),          // score 1.0
		cosineFace("photo-2", 0, []float32{1, 1}),          // score ~0.707
		cosineFace("photo-3", 0, []float32{0.2, 1}),        // score ~0.196
	}

	matches, err := Search(cosineProbe([]float32{1, 0}, 0.5), faces)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].PhotoID != "photo-1" || matches[1].PhotoID != "photo-2" {
		t.Errorf("unexpected ranking: %v", matches)
	}
}

func TestSearchThresholdMonotonicity(t *testing.T) {
	var faces []Face
	for i := range 20 {
		angle := float64(i) / 20 * math.Pi / 2
		faces = append(faces, cosineFace(
			fmt.Sprintf("photo-%d", i), 0,
			[]float32{float32(math.Cos(angle)), float32(math.Sin(angle))},
		))
	}

	prev := len(faces) + 1
	for _, threshold := range []float64{0.1, 0.3, 0.5, 0.7, 0.9, 0.99} {
		matches, err := Search(cosineProbe([]float32{1, 0}, threshold), faces)
		if err != nil {
			t.Fatalf("unexpected error at threshold %f: %v", threshold, err)
		}
		if len(matches) > prev {
			t.Errorf("raising threshold to %f increased matches from %d to %d",
				threshold, prev, len(matches))
		}
		prev = len(matches)
	}
}

func TestSearchDeduplicatesPerPhoto(t *testing.T) {
	// Two faces in the same photo: a strong and a weak match, both above
	// the threshold. Only the strong one may surface.
	faces := []Face{
		cosineFace("photo-1", 0, []float32{1, 1}),   // score ~0.707
		cosineFace("photo-1", 1, []float32{1, 0.1}), // score ~0.995
	}

	matches, err := Search(cosineProbe([]float32{1, 0}, 0.3), faces)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 deduplicated match, got %d", len(matches))
	}
	if matches[0].FaceIndex != 1 {
		t.Errorf("kept face index %d, want 1 (the higher score)", matches[0].FaceIndex)
	}
	if matches[0].Similarity < 0.9 {
		t.Errorf("kept similarity %f, want the higher score", matches[0].Similarity)
	}
}

func TestSearchTieBreakInsertionOrder(t *testing.T) {
	// Identical embeddings in two photos tie exactly; the first-inserted
	// face must rank first.
	faces := []Face{
		cosineFace("photo-b", 0, []float32{1, 0}),
		cosineFace("photo-a", 0, []float32{1, 0}),
	}

	matches, err := Search(cosineProbe([]float32{1, 0}, 0.5), faces)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].PhotoID != "photo-b" {
		t.Errorf("first match is %s, want photo-b (inserted first)", matches[0].PhotoID)
	}
}

func TestSearchCrossModeCorpusRejected(t *testing.T) {
	faces := []Face{
		{
			EventID:   "evt-1",
			PhotoID:   "photo-1",
			Embedding: make([]float32, PatchSize*PatchSize),
			Mode:      ModeEnsemble,
		},
	}

	_, err := Search(cosineProbe([]float32{1, 0}, 0.5), faces)
	if !errors.Is(err, ErrCrossModeComparison) {
		t.Fatalf("expected ErrCrossModeComparison, got %v", err)
	}
}

func TestSearchEnsembleRequiresThreshold(t *testing.T) {
	probe := &Probe{
		EventID:   "evt-1",
		Embedding: make([]float32, PatchSize*PatchSize),
		Mode:      ModeEnsemble,
	}

	_, err := Search(probe, nil)
	if !errors.Is(err, ErrThresholdRequired) {
		t.Fatalf("expected ErrThresholdRequired, got %v", err)
	}
}

func TestSearchNoTopKCutoff(t *testing.T) {
	var faces []Face
	for i := range 500 {
		faces = append(faces, cosineFace(fmt.Sprintf("photo-%d", i), 0, []float32{1, 0}))
	}

	matches, err := Search(cosineProbe([]float32{1, 0}, 0.5), faces)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 500 {
		t.Errorf("expected all 500 photos returned, got %d", len(matches))
	}
}
