package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/photo-finder/internal/facematch"
)

// setupMockEmbeddingServer creates a mock embedding service.
func setupMockEmbeddingServer(t *testing.T, faces []faceDetection) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/embed/face", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(faceResponse{
			FacesCount: len(faces),
			Faces:      faces,
			Model:      "buffalo_l",
		})
	})
	return httptest.NewServer(mux)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.Gray{Y: uint8((x * y) % 256)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestRemoteExtractorExtractFaces(t *testing.T) {
	server := setupMockEmbeddingServer(t, []faceDetection{
		{FaceIndex: 0, Embedding: []float32{3, 4}, BBox: []float64{10, 20, 60, 90}, DetScore: 0.98},
		{FaceIndex: 1, Embedding: []float32{0, 2}, BBox: []float64{100, 100, 140, 150}, DetScore: 0.77},
	})
	defer server.Close()

	extractor := NewRemoteExtractor(server.URL, 5*time.Second)
	detections, err := extractor.ExtractFaces(context.Background(), testPNG(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(detections) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(detections))
	}

	// Embeddings come back normalized.
	first := detections[0].Embedding
	if math.Abs(float64(first[0])-0.6) > 1e-6 || math.Abs(float64(first[1])-0.8) > 1e-6 {
		t.Errorf("embedding not normalized: %v", first)
	}

	// Corner bbox converted to [x, y, w, h].
	bbox := detections[0].BBox
	want := []float64{10, 20, 50, 70}
	for i := range want {
		if bbox[i] != want[i] {
			t.Errorf("bbox = %v, want %v", bbox, want)
			break
		}
	}

	if detections[0].Confidence != 0.98 {
		t.Errorf("confidence = %f, want 0.98", detections[0].Confidence)
	}
}

func TestRemoteExtractorNoFaces(t *testing.T) {
	server := setupMockEmbeddingServer(t, nil)
	defer server.Close()

	extractor := NewRemoteExtractor(server.URL, 5*time.Second)
	detections, err := extractor.ExtractFaces(context.Background(), testPNG(t))
	if err != nil {
		t.Fatalf("zero faces must not be an error, got %v", err)
	}
	if len(detections) != 0 {
		t.Errorf("expected 0 detections, got %d", len(detections))
	}
}

func TestRemoteExtractorInvalidImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/embed/face", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cannot decode image", http.StatusBadRequest)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	extractor := NewRemoteExtractor(server.URL, 5*time.Second)
	_, err := extractor.ExtractFaces(context.Background(), []byte("not an image"))
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}

func TestRemoteExtractorMode(t *testing.T) {
	extractor := NewRemoteExtractor("http://localhost:8000", 0)
	if extractor.Mode() != facematch.ModeCosine {
		t.Errorf("mode = %s, want %s", extractor.Mode(), facematch.ModeCosine)
	}
}

func TestPatchExtractor(t *testing.T) {
	extractor := NewPatchExtractor()
	detections, err := extractor.ExtractFaces(context.Background(), testPNG(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(detections) != 1 {
		t.Fatalf("expected 1 whole-frame detection, got %d", len(detections))
	}
	if len(detections[0].Embedding) != facematch.PatchSize*facematch.PatchSize {
		t.Errorf("embedding length %d, want %d",
			len(detections[0].Embedding), facematch.PatchSize*facematch.PatchSize)
	}
	if extractor.Mode() != facematch.ModeEnsemble {
		t.Errorf("mode = %s, want %s", extractor.Mode(), facematch.ModeEnsemble)
	}
}

func TestPatchExtractorInvalidImage(t *testing.T) {
	extractor := NewPatchExtractor()
	_, err := extractor.ExtractFaces(context.Background(), []byte("garbage"))
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}

func TestNewPrefersRemote(t *testing.T) {
	server := setupMockEmbeddingServer(t, nil)
	defer server.Close()

	extractor, err := New(server.URL, true, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extractor.Name() != "remote" {
		t.Errorf("selected %s, want remote", extractor.Name())
	}
}

func TestNewFallsBackWhenServiceDown(t *testing.T) {
	extractor, err := New("http://127.0.0.1:1", true, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extractor.Name() != "patch" {
		t.Errorf("selected %s, want patch", extractor.Name())
	}
}

func TestNewFatalWithoutFallback(t *testing.T) {
	_, err := New("http://127.0.0.1:1", false, time.Second)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	_, err = New("", false, time.Second)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for empty URL, got %v", err)
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0, 0}, "image/gif"},
		{"short", []byte{0x01}, "application/octet-stream"},
		{"unknown", []byte{1, 2, 3, 4, 5, 6, 7, 8}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.expected {
				t.Errorf("detectMIMEType = %s, want %s", got, tt.expected)
			}
		})
	}
}
