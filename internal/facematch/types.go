// Package facematch implements the face identity matching engine: embedding
// normalization, similarity scoring and per-event candidate ranking.
// This package is pure computation - it performs no I/O and holds no state.
package facematch

import (
	"errors"
	"time"
)

// Mode identifies which embedding space produced a vector. Similarity scores
// are only meaningful between vectors from the same space, so every Face and
// Probe carries the mode of the backend that produced its embedding.
type Mode string

const (
	// ModeCosine is used for neural embeddings (remote embedding service).
	ModeCosine Mode = "cosine"
	// ModeEnsemble is used for raw pixel patches (local fallback backend).
	ModeEnsemble Mode = "ensemble"
)

// ErrCrossModeComparison is returned when a probe from one embedding space is
// scored against a face from another. Mixing spaces yields a number without a
// stable interpretation, so it is rejected instead of scored.
var ErrCrossModeComparison = errors.New("cannot compare embeddings from different backends")

// ErrThresholdRequired is returned when a probe in ensemble mode carries no
// explicit threshold. Ensemble thresholds trade precision against recall and
// the engine must not guess for the caller.
var ErrThresholdRequired = errors.New("ensemble mode requires an explicit threshold")

// Face is a single detected face stored in an event's corpus.
// Faces are created during ingestion and never mutated.
type Face struct {
	EventID   string
	PhotoID   string
	FaceIndex int       // detection order within the photo, starting at 0
	BBox      []float64 // [x, y, w, h] in pixel coordinates
	Confidence float64  // detection score in [0, 1]
	Embedding []float32
	Mode      Mode
	CreatedAt time.Time
}

// Probe is an ephemeral query - it exists only for the duration of one search
// and is never persisted.
type Probe struct {
	EventID   string
	Embedding []float32
	Mode      Mode
	Threshold float64
}

// MatchResult is one photo surfaced by a search, produced fresh per query.
type MatchResult struct {
	PhotoID    string    `json:"photo_id"`
	FaceIndex  int       `json:"face_index"`
	Similarity float64   `json:"similarity"`
	BBox       []float64 `json:"bbox"`
}
