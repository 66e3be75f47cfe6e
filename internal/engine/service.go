// Package engine wires the embedder, the face index and the persistence
// layer into the two operations the outside world calls: ingest and search.
// A Service is constructed once at process start and injected into HTTP
// handlers and CLI commands - embedder availability is decided there, never
// lazily on the first request.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/photo-finder/internal/database"
	"github.com/kozaktomas/photo-finder/internal/embedder"
	"github.com/kozaktomas/photo-finder/internal/facematch"
	"github.com/kozaktomas/photo-finder/internal/index"
)

// ErrNoFaceDetected reports a probe image with no detectable face. This is a
// normal typed outcome, not a crash: callers translate it into a declined
// result.
var ErrNoFaceDetected = errors.New("no face detected in image")

// ErrInvalidThreshold reports a threshold outside [0, 1].
var ErrInvalidThreshold = errors.New("threshold must be between 0 and 1")

// ErrThresholdOutOfBounds reports an explicit ensemble threshold outside the
// configured min/max for that scoring scale.
var ErrThresholdOutOfBounds = errors.New("threshold is outside the ensemble bounds")

// candidateOversample is how many times the requested result limit is asked
// of the ANN prefilter, so per-photo deduplication still has enough
// candidates to fill the limit.
const candidateOversample = 10

// Thresholds is the per-backend threshold policy the service enforces.
type Thresholds struct {
	CosineDefault float64
	EnsembleMin   float64
	EnsembleMax   float64
}

// Service orchestrates ingestion and search over one process-wide face index.
type Service struct {
	extractor  embedder.Extractor
	idx        *index.Index
	faces      database.FaceRepository // nil when persistence is disabled
	thresholds Thresholds
}

// NewService creates the engine. The extractor decides the scoring mode of
// everything this service ingests.
func NewService(extractor embedder.Extractor, idx *index.Index, faces database.FaceRepository, thresholds Thresholds) *Service {
	return &Service{
		extractor:  extractor,
		idx:        idx,
		faces:      faces,
		thresholds: thresholds,
	}
}

// Mode reports the embedding space of the active backend.
func (s *Service) Mode() facematch.Mode {
	return s.extractor.Mode()
}

// BackendName reports the active backend for logging and status endpoints.
func (s *Service) BackendName() string {
	return s.extractor.Name()
}

// FaceSummary is the per-face portion of an ingestion result.
type FaceSummary struct {
	BBox       []float64 `json:"bbox"`
	Confidence float64   `json:"confidence"`
}

// IngestResult is the outcome of ingesting one photo. Status is "ready" even
// when zero faces were found; "error" means the photo could not be processed.
type IngestResult struct {
	PhotoID string
	Status  string
	Faces   []FaceSummary
	Err     error // set only when Status is "error"
}

// IngestPhoto extracts faces from one photo and appends them to the event's
// corpus. A failure is scoped to this photo: the result carries status
// "error" and the cause, and the caller's batch continues.
func (s *Service) IngestPhoto(ctx context.Context, eventID, photoID string, imageData []byte) IngestResult {
	detections, err := s.extractor.ExtractFaces(ctx, imageData)
	if err != nil {
		return IngestResult{PhotoID: photoID, Status: database.PhotoStatusError, Err: err}
	}

	now := time.Now().UTC()
	mode := s.extractor.Mode()

	stored := make([]database.StoredFace, 0, len(detections))
	summaries := make([]FaceSummary, 0, len(detections))
	for i, det := range detections {
		// face_index follows detection order, starting at 0.
		face := facematch.Face{
			EventID:    eventID,
			PhotoID:    photoID,
			FaceIndex:  i,
			BBox:       det.BBox,
			Confidence: det.Confidence,
			Embedding:  facematch.Normalize(det.Embedding),
			Mode:       mode,
			CreatedAt:  now,
		}
		s.idx.Insert(face)
		stored = append(stored, database.StoredFace{
			EventID:    eventID,
			PhotoID:    photoID,
			FaceIndex:  i,
			BBox:       det.BBox,
			Confidence: det.Confidence,
			Embedding:  face.Embedding,
			Mode:       string(mode),
			CreatedAt:  now,
		})
		summaries = append(summaries, FaceSummary{BBox: det.BBox, Confidence: det.Confidence})
	}

	if s.faces != nil && len(stored) > 0 {
		if err := s.faces.SaveFaces(ctx, stored); err != nil {
			// The in-memory index already has the faces; losing the
			// durable copy still fails the photo so the caller knows
			// to re-ingest after the store recovers.
			return IngestResult{PhotoID: photoID, Status: database.PhotoStatusError, Err: fmt.Errorf("persist faces: %w", err)}
		}
	}

	return IngestResult{PhotoID: photoID, Status: database.PhotoStatusReady, Faces: summaries}
}

// BatchItem is one photo of an ingestion batch.
type BatchItem struct {
	PhotoID   string
	ImageData []byte
}

// IngestBatch ingests photos sequentially and never aborts on a per-photo
// failure - a single bad photo must not take its siblings down with it.
func (s *Service) IngestBatch(ctx context.Context, eventID string, items []BatchItem) []IngestResult {
	results := make([]IngestResult, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			results = append(results, IngestResult{PhotoID: item.PhotoID, Status: database.PhotoStatusError, Err: err})
			continue
		}
		result := s.IngestPhoto(ctx, eventID, item.PhotoID, item.ImageData)
		if result.Err != nil {
			log.Printf("ingest: photo %s failed: %v", item.PhotoID, result.Err)
		}
		results = append(results, result)
	}
	return results
}

// SearchResult is the outcome of one probe search.
type SearchResult struct {
	Matches       []facematch.MatchResult `json:"matches"`
	TotalMatches  int                     `json:"total_matches"`
	ThresholdUsed float64                 `json:"threshold_used"`
}

// Search extracts an embedding from the probe image and ranks the event's
// corpus against it. threshold may be nil: cosine corpora fall back to the
// configured default, ensemble corpora refuse to guess. limit truncates the
// ranked result after deduplication; zero means unlimited. When a limit
// routes the query through the approximate prefilter (corpora above the ANN
// cutoff), TotalMatches counts matches within the candidate subset rather
// than the whole corpus.
func (s *Service) Search(ctx context.Context, eventID string, probeImage []byte, threshold *float64, limit int) (*SearchResult, error) {
	detections, err := s.extractor.ExtractFaces(ctx, probeImage)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		return nil, ErrNoFaceDetected
	}

	chosen, err := s.resolveThreshold(threshold)
	if err != nil {
		return nil, err
	}

	// The most prominent face is the probe; multi-face probe images are
	// not an error, the extra faces are simply ignored.
	probe := &facematch.Probe{
		EventID:   eventID,
		Embedding: facematch.Normalize(detections[0].Embedding),
		Mode:      s.extractor.Mode(),
		Threshold: chosen,
	}

	var faces []facematch.Face
	if limit > 0 {
		faces = s.idx.Candidates(eventID, probe.Embedding, limit*candidateOversample)
	} else {
		faces = s.idx.ListForEvent(eventID)
	}

	matches, err := facematch.Search(probe, faces)
	if err != nil {
		return nil, err
	}

	total := len(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	return &SearchResult{
		Matches:       matches,
		TotalMatches:  total,
		ThresholdUsed: chosen,
	}, nil
}

// resolveThreshold applies the per-backend threshold policy. Ensemble scores
// live on a different scale than cosine scores, so explicit ensemble
// thresholds must fall inside the configured bounds.
func (s *Service) resolveThreshold(threshold *float64) (float64, error) {
	if threshold == nil {
		if s.extractor.Mode() == facematch.ModeEnsemble {
			return 0, facematch.ErrThresholdRequired
		}
		return s.thresholds.CosineDefault, nil
	}
	if *threshold < 0 || *threshold > 1 {
		return 0, ErrInvalidThreshold
	}
	if s.extractor.Mode() == facematch.ModeEnsemble {
		if *threshold < s.thresholds.EnsembleMin || *threshold > s.thresholds.EnsembleMax {
			return 0, fmt.Errorf("%w: %.2f not in [%.2f, %.2f]",
				ErrThresholdOutOfBounds, *threshold, s.thresholds.EnsembleMin, s.thresholds.EnsembleMax)
		}
	}
	return *threshold, nil
}

// DeleteEvent purges an event's corpus from the in-memory index and returns
// the number of faces removed. Stored face rows cascade with the event record,
// so the database needs no separate call.
func (s *Service) DeleteEvent(eventID string) int {
	return s.idx.DeleteForEvent(eventID)
}

// DeletePhoto removes a photo's faces from the index and the store.
func (s *Service) DeletePhoto(ctx context.Context, eventID, photoID string) error {
	s.idx.DeleteForPhoto(eventID, photoID)
	if s.faces != nil {
		if err := s.faces.DeleteFacesByPhoto(ctx, photoID); err != nil {
			return fmt.Errorf("delete stored faces: %w", err)
		}
	}
	return nil
}

// LoadIndex rebuilds the in-memory index from the face store. Stored faces
// whose mode does not match the active backend are skipped with a warning:
// a corpus built by one backend cannot be searched by the other.
func (s *Service) LoadIndex(ctx context.Context) (int, error) {
	if s.faces == nil {
		return 0, nil
	}

	stored, err := s.faces.ListAllFaces(ctx)
	if err != nil {
		return 0, fmt.Errorf("load faces: %w", err)
	}

	mode := s.extractor.Mode()
	loaded := 0
	skipped := 0
	for _, face := range stored {
		if facematch.Mode(face.Mode) != mode {
			skipped++
			continue
		}
		s.idx.Insert(facematch.Face{
			EventID:    face.EventID,
			PhotoID:    face.PhotoID,
			FaceIndex:  face.FaceIndex,
			BBox:       face.BBox,
			Confidence: face.Confidence,
			Embedding:  face.Embedding,
			Mode:       mode,
			CreatedAt:  face.CreatedAt,
		})
		loaded++
	}
	if skipped > 0 {
		log.Printf("engine: skipped %d stored faces from a different backend (%s active)", skipped, mode)
	}
	return loaded, nil
}
