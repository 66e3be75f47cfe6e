package facematch

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// PatchSize is the side length of the square grayscale patches used by the
// ensemble scorer. Patch embeddings are flattened row-major, so their length
// is always PatchSize*PatchSize.
const PatchSize = 64

// EnsembleScore compares two equalized grayscale patches with a weighted
// ensemble of three pixel-level metrics: absolute difference, Pearson
// correlation (weighted twice) and histogram correlation. Values in the
// patches are grayscale levels in [0, 255]. The result is clamped to [0, 1].
func EnsembleScore(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	diff := max(0, 1-meanAbsDiff(a, b)/80)
	corr := (pearson(a, b) + 1) / 2
	hist := histogramCorrelation(a, b)

	// Correlation is the most discriminative component, so it carries
	// double weight.
	score := (diff + 2*corr + hist) / 4

	return math.Max(0, math.Min(1, score))
}

func meanAbsDiff(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return sum / float64(len(a))
}

// pearson computes the Pearson correlation coefficient of two sequences.
// Returns 0 when either sequence has zero variance.
func pearson(a, b []float32) float64 {
	n := float64(len(a))
	var meanA, meanB float64
	for i := range a {
		meanA += float64(a[i])
		meanB += float64(b[i])
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for i := range a {
		da := float64(a[i]) - meanA
		db := float64(b[i]) - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// histogramCorrelation builds L2-normalized 256-bin histograms of both
// patches and returns their Pearson correlation.
func histogramCorrelation(a, b []float32) float64 {
	histA := normalizedHistogram(a)
	histB := normalizedHistogram(b)
	return pearson(histA, histB)
}

func normalizedHistogram(patch []float32) []float32 {
	hist := make([]float32, 256)
	for _, v := range patch {
		bin := int(v)
		if bin < 0 {
			bin = 0
		}
		if bin > 255 {
			bin = 255
		}
		hist[bin]++
	}

	var sum float64
	for _, c := range hist {
		sum += float64(c) * float64(c)
	}
	if sum == 0 {
		return hist
	}
	norm := math.Sqrt(sum)
	for i := range hist {
		hist[i] = float32(float64(hist[i]) / norm)
	}
	return hist
}

// NewPatch converts an image into the flattened equalized grayscale patch the
// ensemble scorer operates on. The image is resized to PatchSize x PatchSize,
// converted to luma and histogram-equalized so lighting differences between
// two shots of the same person do not dominate the pixel metrics.
func NewPatch(img image.Image) []float32 {
	resized := image.NewRGBA(image.Rect(0, 0, PatchSize, PatchSize))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)

	patch := make([]float32, PatchSize*PatchSize)
	for y := range PatchSize {
		for x := range PatchSize {
			r, g, b, _ := resized.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			patch[y*PatchSize+x] = float32(luma)
		}
	}

	return equalize(patch)
}

// equalize applies histogram equalization to a grayscale patch.
func equalize(patch []float32) []float32 {
	var hist [256]int
	for _, v := range patch {
		bin := int(v)
		if bin < 0 {
			bin = 0
		}
		if bin > 255 {
			bin = 255
		}
		hist[bin]++
	}

	// Cumulative distribution, remapped to the full grayscale range.
	var cdf [256]float64
	var cum int
	for i, c := range hist {
		cum += c
		cdf[i] = float64(cum)
	}

	total := cdf[255]
	var cdfMin float64
	for _, v := range cdf {
		if v > 0 {
			cdfMin = v
			break
		}
	}
	if total == cdfMin {
		return patch // flat image, nothing to equalize
	}

	out := make([]float32, len(patch))
	for i, v := range patch {
		bin := int(v)
		if bin < 0 {
			bin = 0
		}
		if bin > 255 {
			bin = 255
		}
		out[i] = float32(math.Round((cdf[bin] - cdfMin) / (total - cdfMin) * 255))
	}
	return out
}
