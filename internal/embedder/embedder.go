// Package embedder adapts external face embedding backends to the engine's
// vector contract. Two backends exist: a remote embedding service producing
// neural embeddings (cosine mode) and a local pixel-patch fallback (ensemble
// mode). The backend is selected once at construction by probing availability
// and its identity is stamped on every embedding it produces, so later
// comparisons can enforce the no-cross-mode rule.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/photo-finder/internal/facematch"
)

// ErrInvalidImage reports input bytes that could not be decoded as an image.
var ErrInvalidImage = errors.New("invalid image data")

// ErrUnavailable reports that no embedding backend could be initialized.
// This is fatal at construction time: the engine must never silently run in
// a degraded mode without the caller knowing which scoring mode is active.
var ErrUnavailable = errors.New("no embedding backend available")

// Detection is one face found in an image. The embedding is already
// L2-normalized by the adapter.
type Detection struct {
	BBox       []float64 // [x, y, w, h] in pixel coordinates
	Embedding  []float32
	Confidence float64
}

// Extractor turns an image into zero or more face detections. ExtractFaces
// returns an empty slice (not an error) when the image contains no faces.
// Implementations must be safe for concurrent use.
type Extractor interface {
	// ExtractFaces detects faces and computes their embeddings. Model
	// inference is the slow path of the whole system, so callers are
	// expected to bound it with a context deadline.
	ExtractFaces(ctx context.Context, imageData []byte) ([]Detection, error)
	// Mode reports which embedding space this backend produces.
	Mode() facematch.Mode
	// Name identifies the backend for logging and stamping.
	Name() string
}

// New selects the best available backend. The remote service is preferred;
// when it cannot be reached and the fallback is permitted, the local patch
// backend is used instead. Construction fails with ErrUnavailable when
// neither backend can serve - a first-request surprise is not acceptable.
func New(serviceURL string, allowFallback bool, timeout time.Duration) (Extractor, error) {
	if serviceURL != "" {
		remote := NewRemoteExtractor(serviceURL, timeout)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := remote.Health(ctx); err == nil {
			log.Printf("embedder: remote service at %s (cosine mode)", serviceURL)
			return remote, nil
		} else if !allowFallback {
			return nil, fmt.Errorf("%w: embedding service at %s unreachable: %v",
				ErrUnavailable, serviceURL, err)
		}
		log.Printf("embedder: service at %s unreachable, falling back to pixel patches", serviceURL)
	}

	if !allowFallback {
		return nil, fmt.Errorf("%w: no service URL configured and fallback disabled", ErrUnavailable)
	}

	log.Printf("embedder: pixel patch backend (ensemble mode)")
	return NewPatchExtractor(), nil
}
