package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-finder/internal/database"
	"github.com/kozaktomas/photo-finder/internal/database/mock"
	"github.com/kozaktomas/photo-finder/internal/embedder"
	"github.com/kozaktomas/photo-finder/internal/engine"
	"github.com/kozaktomas/photo-finder/internal/facematch"
	"github.com/kozaktomas/photo-finder/internal/imaging"
	"github.com/kozaktomas/photo-finder/internal/index"
)

// stubExtractor maps image payloads to canned detections, so tests decide
// which faces each uploaded "photo" contains.
type stubExtractor struct {
	mode       facematch.Mode
	detections map[string][]embedder.Detection
	err        error
}

func (s *stubExtractor) ExtractFaces(ctx context.Context, imageData []byte) ([]embedder.Detection, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.detections[string(imageData)], nil
}

func (s *stubExtractor) Mode() facematch.Mode { return s.mode }
func (s *stubExtractor) Name() string         { return "stub" }

// failingExtractor wraps a stub and fails for one specific payload.
type failingExtractor struct {
	stub   *stubExtractor
	failOn string
}

func (f *failingExtractor) ExtractFaces(ctx context.Context, imageData []byte) ([]embedder.Detection, error) {
	if string(imageData) == f.failOn {
		return nil, embedder.ErrInvalidImage
	}
	return f.stub.ExtractFaces(ctx, imageData)
}

func (f *failingExtractor) Mode() facematch.Mode { return f.stub.Mode() }
func (f *failingExtractor) Name() string         { return f.stub.Name() }

// testEnv bundles the handler dependencies around in-memory fakes.
type testEnv struct {
	events    *mock.MockEventRepository
	photos    *mock.MockPhotoRepository
	extractor *stubExtractor
	index     *index.Index
	engine    *engine.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	extractor := &stubExtractor{
		mode:       facematch.ModeCosine,
		detections: make(map[string][]embedder.Detection),
	}
	idx := index.New()
	svc := engine.NewService(extractor, idx, nil, engine.Thresholds{
		CosineDefault: 0.55,
		EnsembleMin:   0.30,
		EnsembleMax:   0.50,
	})
	return &testEnv{
		events:    mock.NewMockEventRepository(),
		photos:    mock.NewMockPhotoRepository(),
		extractor: extractor,
		index:     idx,
		engine:    svc,
	}
}

// newEngineWith builds an engine sharing the env's index but using a
// different extractor.
func newEngineWith(t *testing.T, env *testEnv, extractor embedder.Extractor) *engine.Service {
	t.Helper()
	return engine.NewService(extractor, env.index, nil, engine.Thresholds{
		CosineDefault: 0.55,
		EnsembleMin:   0.30,
		EnsembleMax:   0.50,
	})
}

// seedEvent stores an event directly in the mock repository.
func (e *testEnv) seedEvent(t *testing.T, id, code, name string) {
	t.Helper()
	err := e.events.CreateEvent(context.Background(), &database.Event{
		ID:        id,
		Code:      code,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

// newHandlerTestStore creates a disk store rooted in a temp dir.
func newHandlerTestStore(t *testing.T) *imaging.Store {
	t.Helper()
	store, err := imaging.NewStore(t.TempDir(), 0, 0)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

// testPhoto renders a small gradient image the store can compress.
func testPhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 12), uint8(y * 12), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// multipartBody builds a multipart form with string fields and files.
func multipartBody(t *testing.T, fields map[string]string, files map[string][][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for field, payloads := range files {
		for i, payload := range payloads {
			part, err := writer.CreateFormFile(field, fmt.Sprintf("file-%d.jpg", i))
			if err != nil {
				t.Fatalf("create form file: %v", err)
			}
			if _, err := io.Copy(part, bytes.NewReader(payload)); err != nil {
				t.Fatalf("write form file: %v", err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message.
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
