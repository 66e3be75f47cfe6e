// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/photo-finder/internal/database"
)

// MockEventRepository is an in-memory implementation of database.EventRepository.
type MockEventRepository struct {
	mu     sync.RWMutex
	events map[string]*database.Event

	// Error injection
	CreateError error
	GetError    error
	ListError   error
	DeleteError error
}

// NewMockEventRepository creates a new mock event repository.
func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{events: make(map[string]*database.Event)}
}

// CreateEvent stores a new event.
func (m *MockEventRepository) CreateEvent(ctx context.Context, event *database.Event) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.events {
		if existing.Code == event.Code {
			return database.ErrDuplicateCode
		}
	}
	copied := *event
	m.events[event.ID] = &copied
	return nil
}

// GetEvent retrieves an event by ID.
func (m *MockEventRepository) GetEvent(ctx context.Context, id string) (*database.Event, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	event, ok := m.events[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *event
	return &copied, nil
}

// GetEventByCode retrieves an event by its short code.
func (m *MockEventRepository) GetEventByCode(ctx context.Context, code string) (*database.Event, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, event := range m.events {
		if event.Code == code {
			copied := *event
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

// ListEvents returns all events, newest first.
func (m *MockEventRepository) ListEvents(ctx context.Context) ([]database.Event, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := make([]database.Event, 0, len(m.events))
	for _, event := range m.events {
		events = append(events, *event)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// DeleteEvent removes an event.
func (m *MockEventRepository) DeleteEvent(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

// MockPhotoRepository is an in-memory implementation of database.PhotoRepository.
type MockPhotoRepository struct {
	mu     sync.RWMutex
	photos map[string]*database.Photo
	order  []string

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockPhotoRepository creates a new mock photo repository.
func NewMockPhotoRepository() *MockPhotoRepository {
	return &MockPhotoRepository{photos: make(map[string]*database.Photo)}
}

// CreatePhoto stores a new photo record.
func (m *MockPhotoRepository) CreatePhoto(ctx context.Context, photo *database.Photo) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *photo
	m.photos[photo.ID] = &copied
	m.order = append(m.order, photo.ID)
	return nil
}

// UpdatePhotoStatus records the ingestion outcome for a photo.
func (m *MockPhotoRepository) UpdatePhotoStatus(ctx context.Context, id, status string, facesCount int) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	photo, ok := m.photos[id]
	if !ok {
		return database.ErrNotFound
	}
	photo.Status = status
	photo.FacesCount = facesCount
	return nil
}

// GetPhoto retrieves a photo by ID.
func (m *MockPhotoRepository) GetPhoto(ctx context.Context, id string) (*database.Photo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	photo, ok := m.photos[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *photo
	return &copied, nil
}

// ListPhotos returns all photos of an event in upload order.
func (m *MockPhotoRepository) ListPhotos(ctx context.Context, eventID string) ([]database.Photo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var photos []database.Photo
	for _, id := range m.order {
		if photo, ok := m.photos[id]; ok && photo.EventID == eventID {
			photos = append(photos, *photo)
		}
	}
	return photos, nil
}

// DeletePhoto removes a photo record.
func (m *MockPhotoRepository) DeletePhoto(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.photos[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.photos, id)
	return nil
}

// MockFaceRepository is an in-memory implementation of database.FaceRepository.
type MockFaceRepository struct {
	mu     sync.RWMutex
	faces  []database.StoredFace
	nextID int64

	// Error injection
	SaveError error
	ListError error
}

// NewMockFaceRepository creates a new mock face repository.
func NewMockFaceRepository() *MockFaceRepository {
	return &MockFaceRepository{nextID: 1}
}

// SaveFaces stores all faces of a photo.
func (m *MockFaceRepository) SaveFaces(ctx context.Context, faces []database.StoredFace) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, face := range faces {
		face.ID = m.nextID
		m.nextID++
		m.faces = append(m.faces, face)
	}
	return nil
}

// ListFaces returns every stored face of an event in insertion order.
func (m *MockFaceRepository) ListFaces(ctx context.Context, eventID string) ([]database.StoredFace, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var faces []database.StoredFace
	for _, face := range m.faces {
		if face.EventID == eventID {
			faces = append(faces, face)
		}
	}
	return faces, nil
}

// ListAllFaces returns every stored face across events.
func (m *MockFaceRepository) ListAllFaces(ctx context.Context) ([]database.StoredFace, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	faces := make([]database.StoredFace, len(m.faces))
	copy(faces, m.faces)
	return faces, nil
}

// DeleteFacesByPhoto removes all faces of a photo.
func (m *MockFaceRepository) DeleteFacesByPhoto(ctx context.Context, photoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.faces[:0]
	for _, face := range m.faces {
		if face.PhotoID != photoID {
			kept = append(kept, face)
		}
	}
	m.faces = kept
	return nil
}
