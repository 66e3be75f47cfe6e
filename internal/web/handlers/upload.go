package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/photo-finder/internal/constants"
	"github.com/kozaktomas/photo-finder/internal/database"
	"github.com/kozaktomas/photo-finder/internal/engine"
	"github.com/kozaktomas/photo-finder/internal/imaging"
)

// UploadHandler handles batch photo uploads into an event.
type UploadHandler struct {
	events       database.EventRepository
	photos       database.PhotoRepository
	engine       *engine.Service
	store        *imaging.Store // nil disables stored copies
	maxBatchSize int
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(events database.EventRepository, photos database.PhotoRepository, svc *engine.Service, store *imaging.Store, maxBatchSize int) *UploadHandler {
	if maxBatchSize <= 0 {
		maxBatchSize = constants.MaxBatchSize
	}
	return &UploadHandler{
		events:       events,
		photos:       photos,
		engine:       svc,
		store:        store,
		maxBatchSize: maxBatchSize,
	}
}

type uploadPhotoResult struct {
	PhotoID    string               `json:"photo_id"`
	Filename   string               `json:"filename"`
	Status     string               `json:"status"`
	FacesCount int                  `json:"faces_count"`
	Faces      []engine.FaceSummary `json:"faces,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// readUploadedFile slurps one multipart file into memory.
func readUploadedFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %s", fileHeader.Filename)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %s", fileHeader.Filename)
	}
	return data, nil
}

// Upload handles POST /events/{id}/photos: a multipart batch of photos. Each
// photo is processed independently - a corrupt file never fails the batch,
// it just comes back with status "error".
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	if _, err := h.events.GetEvent(r.Context(), eventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("upload: get event %s failed: %v", sanitizeForLog(eventID), err)
		respondError(w, http.StatusInternalServerError, "failed to load event")
		return
	}

	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}
	if len(files) > h.maxBatchSize {
		respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("too many files: %d exceeds the batch limit of %d", len(files), h.maxBatchSize))
		return
	}

	now := time.Now().UTC()
	items := make([]engine.BatchItem, 0, len(files))
	records := make(map[string]*database.Photo, len(files))
	payloads := make(map[string][]byte, len(files))
	results := make([]uploadPhotoResult, 0, len(files))

	for _, fileHeader := range files {
		photoID := uuid.New().String()
		photo := &database.Photo{
			ID:         photoID,
			EventID:    eventID,
			Filename:   filepath.Base(fileHeader.Filename),
			Status:     database.PhotoStatusPending,
			UploadedAt: now,
		}

		data, err := readUploadedFile(fileHeader)
		if err != nil {
			photo.Status = database.PhotoStatusError
			h.createRecord(r, photo)
			results = append(results, uploadPhotoResult{
				PhotoID:  photoID,
				Filename: photo.Filename,
				Status:   database.PhotoStatusError,
				Error:    err.Error(),
			})
			continue
		}

		h.createRecord(r, photo)
		records[photoID] = photo
		payloads[photoID] = data
		items = append(items, engine.BatchItem{PhotoID: photoID, ImageData: data})
	}

	for _, outcome := range h.engine.IngestBatch(r.Context(), eventID, items) {
		photo := records[outcome.PhotoID]
		if h.store != nil && outcome.Status == database.PhotoStatusReady {
			// The embedder saw the original bytes; only the stored copy
			// is compressed.
			if _, err := h.store.Save(eventID, outcome.PhotoID, payloads[outcome.PhotoID]); err != nil {
				log.Printf("upload: store copy of %s failed: %v", outcome.PhotoID, err)
			}
		}
		result := uploadPhotoResult{
			PhotoID:    outcome.PhotoID,
			Filename:   photo.Filename,
			Status:     outcome.Status,
			FacesCount: len(outcome.Faces),
			Faces:      outcome.Faces,
		}
		if outcome.Err != nil {
			result.Error = outcome.Err.Error()
		}
		h.updateRecord(r, outcome.PhotoID, outcome.Status, len(outcome.Faces))
		results = append(results, result)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"event_id": eventID,
		"uploaded": len(results),
		"photos":   results,
	})
}

// createRecord persists the photo record; persistence failures are logged
// and the upload continues, the in-memory index is authoritative.
func (h *UploadHandler) createRecord(r *http.Request, photo *database.Photo) {
	if h.photos == nil {
		return
	}
	if err := h.photos.CreatePhoto(r.Context(), photo); err != nil {
		log.Printf("upload: create photo record %s failed: %v", photo.ID, err)
	}
}

func (h *UploadHandler) updateRecord(r *http.Request, photoID, status string, facesCount int) {
	if h.photos == nil {
		return
	}
	if err := h.photos.UpdatePhotoStatus(r.Context(), photoID, status, facesCount); err != nil {
		log.Printf("upload: update photo record %s failed: %v", photoID, err)
	}
}
