package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-finder/internal/database"
	"github.com/kozaktomas/photo-finder/internal/share"
)

// ShareHandler issues and redeems gallery-share tokens.
type ShareHandler struct {
	events database.EventRepository
	photos database.PhotoRepository
	shares *share.Manager
}

// NewShareHandler creates a new share handler.
func NewShareHandler(events database.EventRepository, photos database.PhotoRepository, shares *share.Manager) *ShareHandler {
	return &ShareHandler{
		events: events,
		photos: photos,
		shares: shares,
	}
}

type createShareRequest struct {
	EventID  string   `json:"event_id"`
	PhotoIDs []string `json:"photo_ids"`
}

// Create handles POST /shares: issues a signed token for a photo selection.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.EventID == "" {
		respondError(w, http.StatusBadRequest, "event_id is required")
		return
	}
	if len(req.PhotoIDs) == 0 {
		respondError(w, http.StatusBadRequest, "photo_ids must not be empty")
		return
	}

	if _, err := h.events.GetEvent(r.Context(), req.EventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("share: get event %s failed: %v", sanitizeForLog(req.EventID), err)
		respondError(w, http.StatusInternalServerError, "failed to load event")
		return
	}

	token, expiresAt, err := h.shares.Issue(req.EventID, req.PhotoIDs)
	if err != nil {
		log.Printf("share: issue failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to issue share token")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

// Redeem handles GET /shares/{token}: verifies the token and returns the
// shared photo records.
func (h *ShareHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	claims, err := h.shares.Verify(token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid or expired share token")
		return
	}

	shared := make(map[string]struct{}, len(claims.PhotoIDs))
	for _, id := range claims.PhotoIDs {
		shared[id] = struct{}{}
	}

	photos := make([]photoResponse, 0, len(claims.PhotoIDs))
	if h.photos != nil {
		all, err := h.photos.ListPhotos(r.Context(), claims.EventID)
		if err != nil {
			log.Printf("share: list photos for %s failed: %v", sanitizeForLog(claims.EventID), err)
			respondError(w, http.StatusInternalServerError, "failed to load shared photos")
			return
		}
		for _, p := range all {
			if _, ok := shared[p.ID]; !ok {
				continue
			}
			photos = append(photos, photoResponse{
				ID:         p.ID,
				Filename:   p.Filename,
				Status:     p.Status,
				FacesCount: p.FacesCount,
				UploadedAt: p.UploadedAt.Format(time.RFC3339),
			})
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"event_id":  claims.EventID,
		"photo_ids": claims.PhotoIDs,
		"photos":    photos,
	})
}
