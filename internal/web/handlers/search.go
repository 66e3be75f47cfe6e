package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/kozaktomas/photo-finder/internal/constants"
	"github.com/kozaktomas/photo-finder/internal/database"
	"github.com/kozaktomas/photo-finder/internal/embedder"
	"github.com/kozaktomas/photo-finder/internal/engine"
	"github.com/kozaktomas/photo-finder/internal/facematch"
)

// SearchHandler handles probe-photo face search.
type SearchHandler struct {
	events database.EventRepository
	engine *engine.Service
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(events database.EventRepository, svc *engine.Service) *SearchHandler {
	return &SearchHandler{
		events: events,
		engine: svc,
	}
}

// Search handles POST /search/face: multipart form with a probe image under
// "selfie", plus "event_id" and optional "threshold" and "limit" fields.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	eventID := r.FormValue("event_id")
	if eventID == "" {
		respondError(w, http.StatusBadRequest, "event_id is required")
		return
	}
	if _, err := h.events.GetEvent(r.Context(), eventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("search: get event %s failed: %v", sanitizeForLog(eventID), err)
		respondError(w, http.StatusInternalServerError, "failed to load event")
		return
	}

	var threshold *float64
	if raw := r.FormValue("threshold"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		threshold = &value
	}

	limit := constants.DefaultSearchLimit
	if raw := r.FormValue("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if value > constants.MaxSearchLimit {
			value = constants.MaxSearchLimit
		}
		limit = value
	}

	file, _, err := r.FormFile("selfie")
	if err != nil {
		respondError(w, http.StatusBadRequest, "selfie image is required")
		return
	}
	defer file.Close()

	probe, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read selfie image")
		return
	}

	result, err := h.engine.Search(r.Context(), eventID, probe, threshold, limit)
	if err != nil {
		h.respondSearchError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// respondSearchError maps the engine's typed outcomes to HTTP statuses.
func (h *SearchHandler) respondSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNoFaceDetected):
		respondError(w, http.StatusUnprocessableEntity, "no face detected in image")
	case errors.Is(err, engine.ErrInvalidThreshold):
		respondError(w, http.StatusBadRequest, "threshold must be between 0 and 1")
	case errors.Is(err, engine.ErrThresholdOutOfBounds):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, facematch.ErrThresholdRequired):
		respondError(w, http.StatusBadRequest, "this backend requires an explicit threshold")
	case errors.Is(err, facematch.ErrCrossModeComparison):
		respondError(w, http.StatusConflict, "stored corpus was built by a different backend")
	case errors.Is(err, embedder.ErrInvalidImage):
		respondError(w, http.StatusBadRequest, "could not decode the probe image")
	default:
		log.Printf("search: %v", err)
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("search failed: %v", err))
	}
}
