package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/photo-finder/internal/facematch"
)

const defaultServiceTimeout = 2 * time.Minute

// RemoteExtractor talks to the face embedding service over HTTP. The service
// runs the detection and recognition models (InsightFace-style) and returns
// per-face bounding boxes, embeddings and detection scores.
type RemoteExtractor struct {
	baseURL string
	client  *http.Client
}

// NewRemoteExtractor creates a client for the embedding service.
func NewRemoteExtractor(baseURL string, timeout time.Duration) *RemoteExtractor {
	if timeout <= 0 {
		timeout = defaultServiceTimeout
	}
	return &RemoteExtractor{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// faceDetection mirrors one face in the service response. The service
// reports bbox as [x1, y1, x2, y2] corners.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"`
	DetScore  float64   `json:"det_score"`
}

// faceResponse is the body returned by POST /embed/face.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// ExtractFaces posts the image to the service and normalizes every returned
// embedding. Corner bboxes are converted to [x, y, w, h].
func (e *RemoteExtractor) ExtractFaces(ctx context.Context, imageData []byte) ([]Detection, error) {
	body, err := e.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	detections := make([]Detection, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if len(f.Embedding) == 0 {
			continue
		}
		detections = append(detections, Detection{
			BBox:       cornerToRect(f.BBox),
			Embedding:  facematch.Normalize(f.Embedding),
			Confidence: f.DetScore,
		})
	}
	return detections, nil
}

// Mode reports the neural embedding space.
func (e *RemoteExtractor) Mode() facematch.Mode {
	return facematch.ModeCosine
}

// Name identifies the backend.
func (e *RemoteExtractor) Name() string {
	return "remote"
}

// Health checks the service's health endpoint.
func (e *RemoteExtractor) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// postMultipartImage posts a multipart form with the image data to the given
// endpoint. The part carries an explicit Content-Type header based on magic
// byte detection.
func (e *RemoteExtractor) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnsupportedMediaType {
		return nil, fmt.Errorf("%w: %s", ErrInvalidImage, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// cornerToRect converts [x1, y1, x2, y2] corners to [x, y, w, h].
func cornerToRect(bbox []float64) []float64 {
	if len(bbox) != 4 {
		return bbox
	}
	return []float64{bbox[0], bbox[1], bbox[2] - bbox[0], bbox[3] - bbox[1]}
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
