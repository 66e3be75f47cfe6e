package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/photo-finder/internal/database"
	"github.com/kozaktomas/photo-finder/internal/engine"
	"github.com/kozaktomas/photo-finder/internal/imaging"
	"github.com/kozaktomas/photo-finder/internal/slug"
)

// EventsHandler handles event CRUD endpoints.
type EventsHandler struct {
	events database.EventRepository
	photos database.PhotoRepository
	engine *engine.Service
	store  *imaging.Store // nil when stored copies are disabled
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(events database.EventRepository, photos database.PhotoRepository, svc *engine.Service, store *imaging.Store) *EventsHandler {
	return &EventsHandler{
		events: events,
		photos: photos,
		engine: svc,
		store:  store,
	}
}

type createEventRequest struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"` // optional; derived from the name when empty
	Date string `json:"date,omitempty"` // YYYY-MM-DD
}

type eventResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Date      string `json:"date,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toEventResponse(e *database.Event) eventResponse {
	resp := eventResponse{
		ID:        e.ID,
		Code:      e.Code,
		Name:      e.Name,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if !e.Date.IsZero() {
		resp.Date = e.Date.Format("2006-01-02")
	}
	return resp
}

// Create handles POST /events.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	code := req.Code
	if code == "" {
		code = slug.Make(req.Name)
	}
	if code == "" {
		respondError(w, http.StatusBadRequest, "could not derive a code from the name; provide one explicitly")
		return
	}

	event := &database.Event{
		ID:        uuid.New().String(),
		Code:      code,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		event.Date = date
	}

	if err := h.events.CreateEvent(r.Context(), event); err != nil {
		if errors.Is(err, database.ErrDuplicateCode) {
			respondError(w, http.StatusConflict, "event code already exists")
			return
		}
		log.Printf("events: create failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	respondJSON(w, http.StatusCreated, toEventResponse(event))
}

// List handles GET /events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		log.Printf("events: list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	resp := make([]eventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, toEventResponse(&events[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": resp})
}

// Get handles GET /events/{id}.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("events: get %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load event")
		return
	}

	respondJSON(w, http.StatusOK, toEventResponse(event))
}

// Delete handles DELETE /events/{id}. Database rows for photos and faces
// cascade with the event; the in-memory corpus and stored copies are purged
// here.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.events.DeleteEvent(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("events: delete %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	removed := h.engine.DeleteEvent(id)
	if removed > 0 {
		log.Printf("events: purged %d indexed faces for %s", removed, sanitizeForLog(id))
	}
	if h.store != nil {
		if err := h.store.RemoveEvent(id); err != nil {
			log.Printf("events: remove stored copies for %s failed: %v", sanitizeForLog(id), err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

type photoResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	FacesCount int    `json:"faces_count"`
	UploadedAt string `json:"uploaded_at"`
}

// ListPhotos handles GET /events/{id}/photos.
func (h *EventsHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.events.GetEvent(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("events: get %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load event")
		return
	}

	photos, err := h.photos.ListPhotos(r.Context(), id)
	if err != nil {
		log.Printf("events: list photos for %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}

	resp := make([]photoResponse, 0, len(photos))
	for _, p := range photos {
		resp = append(resp, photoResponse{
			ID:         p.ID,
			Filename:   p.Filename,
			Status:     p.Status,
			FacesCount: p.FacesCount,
			UploadedAt: p.UploadedAt.Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"photos": resp})
}

// DeletePhoto handles DELETE /events/{id}/photos/{photoId}: removes the
// record, its faces, and the in-memory index entries.
func (h *EventsHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	photoID := chi.URLParam(r, "photoId")

	photo, err := h.photos.GetPhoto(r.Context(), photoID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "photo not found")
			return
		}
		log.Printf("events: get photo %s failed: %v", sanitizeForLog(photoID), err)
		respondError(w, http.StatusInternalServerError, "failed to load photo")
		return
	}
	if photo.EventID != eventID {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}

	if err := h.engine.DeletePhoto(r.Context(), eventID, photoID); err != nil {
		log.Printf("events: delete faces for photo %s failed: %v", sanitizeForLog(photoID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete photo faces")
		return
	}
	if h.store != nil {
		if err := h.store.Remove(eventID, photoID); err != nil {
			log.Printf("events: remove stored copy of %s failed: %v", sanitizeForLog(photoID), err)
		}
	}
	if err := h.photos.DeletePhoto(r.Context(), photoID); err != nil {
		log.Printf("events: delete photo %s failed: %v", sanitizeForLog(photoID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete photo")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"deleted": photoID})
}

// GetPhotoImage handles GET /events/{id}/photos/{photoId}/image: serves the
// compressed stored copy.
func (h *EventsHandler) GetPhotoImage(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	photoID := chi.URLParam(r, "photoId")

	if h.store == nil {
		respondError(w, http.StatusNotFound, "photo storage is disabled")
		return
	}

	data, err := h.store.Load(eventID, photoID)
	if err != nil {
		if errors.Is(err, imaging.ErrNotStored) {
			respondError(w, http.StatusNotFound, "photo not found")
			return
		}
		log.Printf("events: load stored copy of %s failed: %v", sanitizeForLog(photoID), err)
		respondError(w, http.StatusInternalServerError, "failed to load photo")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
