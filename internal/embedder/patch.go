package embedder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	"github.com/kozaktomas/photo-finder/internal/facematch"
)

// PatchExtractor is the fallback backend used when no embedding service is
// reachable. It has no face detector: the whole frame is treated as a single
// aligned face patch, and the "embedding" is the flattened equalized
// grayscale patch the ensemble scorer operates on. Precision is far below
// the neural backend, which is why its embeddings live in a separate mode
// with its own threshold scale.
type PatchExtractor struct{}

// NewPatchExtractor creates the pixel patch backend.
func NewPatchExtractor() *PatchExtractor {
	return &PatchExtractor{}
}

// ExtractFaces decodes the image and produces one whole-frame patch.
func (e *PatchExtractor) ExtractFaces(ctx context.Context, imageData []byte) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	return []Detection{
		{
			BBox:       []float64{0, 0, float64(bounds.Dx()), float64(bounds.Dy())},
			Embedding:  facematch.NewPatch(img),
			Confidence: 1,
		},
	}, nil
}

// Mode reports the pixel patch embedding space.
func (e *PatchExtractor) Mode() facematch.Mode {
	return facematch.ModeEnsemble
}

// Name identifies the backend.
func (e *PatchExtractor) Name() string {
	return "patch"
}
