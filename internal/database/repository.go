package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateCode is returned when an event code is already taken.
var ErrDuplicateCode = errors.New("event code already exists")

// EventRepository provides access to event records.
type EventRepository interface {
	// CreateEvent stores a new event; the code must be unique.
	CreateEvent(ctx context.Context, event *Event) error
	// GetEvent retrieves an event by ID.
	GetEvent(ctx context.Context, id string) (*Event, error)
	// GetEventByCode retrieves an event by its short code.
	GetEventByCode(ctx context.Context, code string) (*Event, error)
	// ListEvents returns all events, newest first.
	ListEvents(ctx context.Context) ([]Event, error)
	// DeleteEvent removes an event and cascades to its photos and faces.
	DeleteEvent(ctx context.Context, id string) error
}

// PhotoRepository provides access to photo records.
type PhotoRepository interface {
	// CreatePhoto stores a new photo record.
	CreatePhoto(ctx context.Context, photo *Photo) error
	// UpdatePhotoStatus records the ingestion outcome for a photo.
	UpdatePhotoStatus(ctx context.Context, id, status string, facesCount int) error
	// GetPhoto retrieves a photo by ID.
	GetPhoto(ctx context.Context, id string) (*Photo, error)
	// ListPhotos returns all photos of an event in upload order.
	ListPhotos(ctx context.Context, eventID string) ([]Photo, error)
	// DeletePhoto removes a photo record; callers cascade face deletion.
	DeletePhoto(ctx context.Context, id string) error
}

// FaceRepository persists indexed faces so the in-memory index can be
// rebuilt at startup.
type FaceRepository interface {
	// SaveFaces stores all faces of a photo in one transaction.
	SaveFaces(ctx context.Context, faces []StoredFace) error
	// ListFaces returns every stored face of an event in insertion order.
	ListFaces(ctx context.Context, eventID string) ([]StoredFace, error)
	// ListAllFaces returns every stored face across events, insertion order.
	ListAllFaces(ctx context.Context) ([]StoredFace, error)
	// DeleteFacesByPhoto removes all faces of a photo.
	DeleteFacesByPhoto(ctx context.Context, photoID string) error
}
