// Package database defines the persistent records and repository contracts
// for events, photos and indexed faces. The matching engine itself works on
// the in-memory index; this layer exists so corpora survive restarts.
package database

import "time"

// Photo ingestion statuses.
const (
	PhotoStatusPending = "pending"
	PhotoStatusReady   = "ready"
	PhotoStatusError   = "error"
)

// Event is a photo event (wedding, conference, race) whose photos share one
// face corpus.
type Event struct {
	ID        string
	Code      string // short human-friendly code, unique
	Name      string
	Date      time.Time
	CreatedAt time.Time
}

// Photo is the record of one uploaded photo and its ingestion outcome.
type Photo struct {
	ID         string
	EventID    string
	Filename   string
	Status     string // pending -> ready | error
	FacesCount int
	UploadedAt time.Time
}

// StoredFace is a face row as persisted: the engine's Face plus nothing -
// the mapping to facematch.Face is one to one, but the embedding mode is
// stored as text so corpora built by different backends are never silently
// mixed after a restart.
type StoredFace struct {
	ID         int64
	EventID    string
	PhotoID    string
	FaceIndex  int
	BBox       []float64
	Confidence float64
	Embedding  []float32
	Mode       string
	CreatedAt  time.Time
}
