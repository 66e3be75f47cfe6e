// Package imaging compresses uploaded photos for storage. The stored copy is
// resized and re-encoded as JPEG; the original bytes always go to the
// embedder untouched, so compression never affects face detection.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const (
	// DefaultQuality is the JPEG quality for stored copies.
	DefaultQuality = 85

	// DefaultMaxDimension clamps the longer side of stored copies.
	DefaultMaxDimension = 1920

	// minQuality ends the quality ladder; below this the artifacts are
	// worse than the size win.
	minQuality = 30
)

// Stats describes one compression run.
type Stats struct {
	OriginalBytes   int     `json:"original_bytes"`
	CompressedBytes int     `json:"compressed_bytes"`
	Ratio           float64 `json:"compression_ratio_percent"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Quality         int     `json:"quality"`
}

// Compress resizes the image to fit within maxDimension while keeping the
// aspect ratio, and re-encodes it as JPEG at the given quality. Images
// already within bounds are still re-encoded so storage holds a uniform
// format.
func Compress(data []byte, maxDimension, quality int) ([]byte, *Stats, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := fit(img, maxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: quality}); err != nil {
		return nil, nil, fmt.Errorf("failed to encode image: %w", err)
	}

	out := buf.Bytes()
	bounds := resized.Bounds()
	return out, &Stats{
		OriginalBytes:   len(data),
		CompressedBytes: len(out),
		Ratio:           (1 - float64(len(out))/float64(len(data))) * 100,
		Width:           bounds.Dx(),
		Height:          bounds.Dy(),
		Quality:         quality,
	}, nil
}

// CompressToSize walks a quality ladder from 95 down in steps of 5 until the
// output fits targetBytes or quality bottoms out at 30. The last attempt is
// returned even when the target was not reached.
func CompressToSize(data []byte, maxDimension, targetBytes int) ([]byte, *Stats, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := fit(img, maxDimension)
	bounds := resized.Bounds()

	var out []byte
	quality := 95
	for {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: quality}); err != nil {
			return nil, nil, fmt.Errorf("failed to encode image: %w", err)
		}
		out = buf.Bytes()
		if len(out) <= targetBytes || quality <= minQuality {
			break
		}
		quality -= 5
	}

	return out, &Stats{
		OriginalBytes:   len(data),
		CompressedBytes: len(out),
		Ratio:           (1 - float64(len(out))/float64(len(data))) * 100,
		Width:           bounds.Dx(),
		Height:          bounds.Dy(),
		Quality:         quality,
	}, nil
}

// fit scales an image down to fit within maxDimension, keeping the aspect
// ratio. Images already within bounds are returned redrawn at their original
// size.
func fit(img image.Image, maxDimension int) *image.RGBA {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	newWidth, newHeight := width, height
	if width > maxDimension || height > maxDimension {
		if width > height {
			newWidth = maxDimension
			newHeight = int(float64(height) * float64(maxDimension) / float64(width))
		} else {
			newHeight = maxDimension
			newWidth = int(float64(width) * float64(maxDimension) / float64(height))
		}
		if newWidth < 1 {
			newWidth = 1
		}
		if newHeight < 1 {
			newHeight = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
