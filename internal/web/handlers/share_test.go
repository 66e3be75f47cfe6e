package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/photo-finder/internal/database"
	"github.com/kozaktomas/photo-finder/internal/share"
)

func newShareManager(t *testing.T) *share.Manager {
	t.Helper()
	m, err := share.NewManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("share.NewManager: %v", err)
	}
	return m
}

func seedPhoto(t *testing.T, env *testEnv, id, eventID, filename string) {
	t.Helper()
	err := env.photos.CreatePhoto(context.Background(), &database.Photo{
		ID:         id,
		EventID:    eventID,
		Filename:   filename,
		Status:     database.PhotoStatusReady,
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed photo: %v", err)
	}
}

func TestShareRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, "evt-1", "wedding", "Wedding")
	seedPhoto(t, env, "photo-1", "evt-1", "a.jpg")
	seedPhoto(t, env, "photo-2", "evt-1", "b.jpg")
	seedPhoto(t, env, "photo-3", "evt-1", "c.jpg")
	handler := NewShareHandler(env.events, env.photos, newShareManager(t))

	body := bytes.NewBufferString(`{"event_id": "evt-1", "photo_ids": ["photo-1", "photo-3"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shares", body)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)
	var created struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	parseJSONResponse(t, rec, &created)
	if created.Token == "" {
		t.Fatal("expected a token")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/shares/"+created.Token, nil)
	req = requestWithChiParams(req, map[string]string{"token": created.Token})
	rec = httptest.NewRecorder()
	handler.Redeem(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var redeemed struct {
		EventID string          `json:"event_id"`
		Photos  []photoResponse `json:"photos"`
	}
	parseJSONResponse(t, rec, &redeemed)
	if redeemed.EventID != "evt-1" {
		t.Errorf("expected evt-1, got %s", redeemed.EventID)
	}
	// Only the shared selection comes back, not the whole event.
	if len(redeemed.Photos) != 2 {
		t.Fatalf("expected 2 shared photos, got %d", len(redeemed.Photos))
	}
}

func TestShareCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t, "evt-1", "wedding", "Wedding")
	handler := NewShareHandler(env.events, env.photos, newShareManager(t))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing event", `{"photo_ids": ["p1"]}`, http.StatusBadRequest},
		{"empty photos", `{"event_id": "evt-1", "photo_ids": []}`, http.StatusBadRequest},
		{"unknown event", `{"event_id": "missing", "photo_ids": ["p1"]}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/shares", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.Create(rec, req)
			assertStatusCode(t, rec, tt.status)
		})
	}
}

func TestShareRedeemInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	handler := NewShareHandler(env.events, env.photos, newShareManager(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/shares/garbage", nil)
	req = requestWithChiParams(req, map[string]string{"token": "garbage"})
	rec := httptest.NewRecorder()
	handler.Redeem(rec, req)

	assertStatusCode(t, rec, http.StatusUnauthorized)
}
