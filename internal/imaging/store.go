package imaging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotStored reports a photo with no stored copy on disk.
var ErrNotStored = errors.New("no stored copy for photo")

// Store keeps compressed JPEG copies of ingested photos on disk, one file
// per photo under <root>/<eventID>/<photoID>.jpg. Originals are never kept.
type Store struct {
	root         string
	maxDimension int
	quality      int
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, maxDimension, quality int) (*Store, error) {
	if dir == "" {
		return nil, errors.New("storage directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 {
		quality = DefaultQuality
	}
	return &Store{root: dir, maxDimension: maxDimension, quality: quality}, nil
}

// path sanitizes the IDs so a crafted ID can never escape the root.
func (s *Store) path(eventID, photoID string) string {
	return filepath.Join(s.root, filepath.Base(eventID), filepath.Base(photoID)+".jpg")
}

// Save compresses the photo and writes the stored copy.
func (s *Store) Save(eventID, photoID string, data []byte) (*Stats, error) {
	compressed, stats, err := Compress(data, s.maxDimension, s.quality)
	if err != nil {
		return nil, err
	}

	target := s.path(eventID, photoID)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("creating event directory: %w", err)
	}
	if err := os.WriteFile(target, compressed, 0o644); err != nil {
		return nil, fmt.Errorf("writing stored copy: %w", err)
	}
	return stats, nil
}

// Load reads the stored copy of a photo.
func (s *Store) Load(eventID, photoID string) ([]byte, error) {
	data, err := os.ReadFile(s.path(eventID, photoID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotStored
		}
		return nil, fmt.Errorf("reading stored copy: %w", err)
	}
	return data, nil
}

// Remove deletes the stored copy. Removing a photo that was never stored is
// not an error.
func (s *Store) Remove(eventID, photoID string) error {
	if err := os.Remove(s.path(eventID, photoID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stored copy: %w", err)
	}
	return nil
}

// RemoveEvent deletes the whole directory of stored copies for an event.
// Events with no stored copies are a no-op.
func (s *Store) RemoveEvent(eventID string) error {
	dir := filepath.Join(s.root, filepath.Base(eventID))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing event directory: %w", err)
	}
	return nil
}
