package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/photo-finder/internal/database"
)

// FaceRepository provides PostgreSQL-backed face storage. Rows are append
// only; deletion happens only when the owning photo is deleted.
type FaceRepository struct {
	pool *Pool
}

// NewFaceRepository creates a new face repository.
func NewFaceRepository(pool *Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

// SaveFaces stores all faces of a photo in one transaction, so a photo's
// faces either all land or none do.
func (r *FaceRepository) SaveFaces(ctx context.Context, faces []database.StoredFace) error {
	if len(faces) == 0 {
		return nil
	}

	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO faces (event_id, photo_id, face_index, bbox, confidence, embedding, mode, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, face := range faces {
		_, err := stmt.ExecContext(ctx,
			face.EventID,
			face.PhotoID,
			face.FaceIndex,
			pq.Array(face.BBox),
			face.Confidence,
			pgvector.NewVector(face.Embedding),
			face.Mode,
			face.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert face %s/%d: %w", face.PhotoID, face.FaceIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit faces: %w", err)
	}
	return nil
}

// ListFaces returns every stored face of an event in insertion order.
func (r *FaceRepository) ListFaces(ctx context.Context, eventID string) ([]database.StoredFace, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, event_id, photo_id, face_index, bbox, confidence, embedding, mode, created_at
		FROM faces WHERE event_id = $1 ORDER BY id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// ListAllFaces returns every stored face across events in insertion order.
// Used to rebuild the in-memory index at startup.
func (r *FaceRepository) ListAllFaces(ctx context.Context) ([]database.StoredFace, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, event_id, photo_id, face_index, bbox, confidence, embedding, mode, created_at
		FROM faces ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query all faces: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// DeleteFacesByPhoto removes all faces of a photo.
func (r *FaceRepository) DeleteFacesByPhoto(ctx context.Context, photoID string) error {
	if _, err := r.pool.db.ExecContext(ctx, `DELETE FROM faces WHERE photo_id = $1`, photoID); err != nil {
		return fmt.Errorf("delete faces: %w", err)
	}
	return nil
}

func scanFaces(rows *sql.Rows) ([]database.StoredFace, error) {
	var faces []database.StoredFace
	for rows.Next() {
		var face database.StoredFace
		var bbox pq.Float64Array
		var embedding pgvector.Vector
		if err := rows.Scan(
			&face.ID, &face.EventID, &face.PhotoID, &face.FaceIndex,
			&bbox, &face.Confidence, &embedding, &face.Mode, &face.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		face.BBox = []float64(bbox)
		face.Embedding = embedding.Slice()
		faces = append(faces, face)
	}
	return faces, rows.Err()
}
