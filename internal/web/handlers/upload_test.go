package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/photo-finder/internal/embedder"
)

func uploadRequest(t *testing.T, eventID string, payloads [][]byte) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, nil, map[string][][]byte{"files": payloads})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/"+eventID+"/photos", body)
	req.Header.Set("Content-Type", contentType)
	return requestWithChiParams(req, map[string]string{"id": eventID})
}

func TestUploadBatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, "evt-1", "wedding", "Wedding")
	env.extractor.detections["face"] = []embedder.Detection{{
		BBox:       []float64{10, 20, 50, 70},
		Embedding:  []float32{1, 0},
		Confidence: 0.97,
	}}
	handler := NewUploadHandler(env.events, env.photos, env.engine, nil, 100)

	rec := httptest.NewRecorder()
	handler.Upload(rec, uploadRequest(t, "evt-1", [][]byte{[]byte("face"), []byte("landscape")}))

	assertStatusCode(t, rec, http.StatusOK)
	var resp struct {
		EventID  string              `json:"event_id"`
		Uploaded int                 `json:"uploaded"`
		Photos   []uploadPhotoResult `json:"photos"`
	}
	parseJSONResponse(t, rec, &resp)
	if resp.Uploaded != 2 {
		t.Fatalf("expected 2 uploads, got %d", resp.Uploaded)
	}
	for _, p := range resp.Photos {
		if p.Status != "ready" {
			t.Errorf("photo %s: expected ready, got %s (%s)", p.PhotoID, p.Status, p.Error)
		}
	}
	if resp.Photos[0].FacesCount != 1 {
		t.Errorf("expected 1 face in first photo, got %d", resp.Photos[0].FacesCount)
	}
	// Zero faces is still a successful ingestion.
	if resp.Photos[1].FacesCount != 0 {
		t.Errorf("expected 0 faces in second photo, got %d", resp.Photos[1].FacesCount)
	}

	if got := env.index.ListForEvent("evt-1"); len(got) != 1 {
		t.Errorf("expected 1 indexed face, got %d", len(got))
	}
}

func TestUploadIsolatesBadPhoto(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, "evt-1", "wedding", "Wedding")
	failing := &failingExtractor{stub: env.extractor, failOn: "corrupt"}
	handler := NewUploadHandler(env.events, env.photos, newEngineWith(t, env, failing), nil, 100)

	env.extractor.detections["good"] = []embedder.Detection{{
		BBox:       []float64{0, 0, 10, 10},
		Embedding:  []float32{1, 0},
		Confidence: 0.9,
	}}

	rec := httptest.NewRecorder()
	handler.Upload(rec, uploadRequest(t, "evt-1", [][]byte{[]byte("good"), []byte("corrupt"), []byte("good")}))

	assertStatusCode(t, rec, http.StatusOK)
	var resp struct {
		Photos []uploadPhotoResult `json:"photos"`
	}
	parseJSONResponse(t, rec, &resp)

	ready, failed := 0, 0
	for _, p := range resp.Photos {
		switch p.Status {
		case "ready":
			ready++
		case "error":
			failed++
			if p.Error == "" {
				t.Error("failed photo must carry an error message")
			}
		}
	}
	if ready != 2 || failed != 1 {
		t.Fatalf("expected 2 ready and 1 error, got %d/%d", ready, failed)
	}
}

func TestUploadBatchTooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, "evt-1", "wedding", "Wedding")
	handler := NewUploadHandler(env.events, env.photos, env.engine, nil, 2)

	rec := httptest.NewRecorder()
	handler.Upload(rec, uploadRequest(t, "evt-1", [][]byte{[]byte("a"), []byte("b"), []byte("c")}))

	assertStatusCode(t, rec, http.StatusRequestEntityTooLarge)
}

func TestUploadNoFiles(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, "evt-1", "wedding", "Wedding")
	handler := NewUploadHandler(env.events, env.photos, env.engine, nil, 100)

	body, contentType := multipartBody(t, map[string]string{"noop": "1"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/evt-1/photos", body)
	req.Header.Set("Content-Type", contentType)
	req = requestWithChiParams(req, map[string]string{"id": "evt-1"})
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "no files provided")
}

func TestUploadUnknownEvent(t *testing.T) {
	env := newTestEnv(t)
	handler := NewUploadHandler(env.events, env.photos, env.engine, nil, 100)

	rec := httptest.NewRecorder()
	handler.Upload(rec, uploadRequest(t, "missing", [][]byte{[]byte("a")}))

	assertStatusCode(t, rec, http.StatusNotFound)
}
