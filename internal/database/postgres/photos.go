package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/photo-finder/internal/database"
)

// PhotoRepository provides PostgreSQL-backed photo storage.
type PhotoRepository struct {
	pool *Pool
}

// NewPhotoRepository creates a new photo repository.
func NewPhotoRepository(pool *Pool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

// CreatePhoto stores a new photo record.
func (r *PhotoRepository) CreatePhoto(ctx context.Context, photo *database.Photo) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO photos (id, event_id, filename, status, faces_count, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, photo.ID, photo.EventID, photo.Filename, photo.Status, photo.FacesCount, photo.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

// UpdatePhotoStatus records the ingestion outcome for a photo.
func (r *PhotoRepository) UpdatePhotoStatus(ctx context.Context, id, status string, facesCount int) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE photos SET status = $2, faces_count = $3 WHERE id = $1
	`, id, status, facesCount)
	if err != nil {
		return fmt.Errorf("update photo status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update photo status: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// GetPhoto retrieves a photo by ID.
func (r *PhotoRepository) GetPhoto(ctx context.Context, id string) (*database.Photo, error) {
	var photo database.Photo
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT id, event_id, filename, status, faces_count, uploaded_at
		FROM photos WHERE id = $1
	`, id).Scan(&photo.ID, &photo.EventID, &photo.Filename, &photo.Status,
		&photo.FacesCount, &photo.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan photo: %w", err)
	}
	return &photo, nil
}

// ListPhotos returns all photos of an event in upload order.
func (r *PhotoRepository) ListPhotos(ctx context.Context, eventID string) ([]database.Photo, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, event_id, filename, status, faces_count, uploaded_at
		FROM photos WHERE event_id = $1 ORDER BY uploaded_at
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}
	defer rows.Close()

	var photos []database.Photo
	for rows.Next() {
		var photo database.Photo
		if err := rows.Scan(&photo.ID, &photo.EventID, &photo.Filename, &photo.Status,
			&photo.FacesCount, &photo.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}

// DeletePhoto removes a photo record; faces cascade in the schema.
func (r *PhotoRepository) DeletePhoto(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}
