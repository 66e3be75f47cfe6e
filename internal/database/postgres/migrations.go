package postgres

import (
	"context"
	"fmt"
)

// Migrate creates the schema. Statements are idempotent so startup can run
// them unconditionally.
func (p *Pool) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY,
			code VARCHAR(40) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS photos (
			id UUID PRIMARY KEY,
			event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			filename VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			faces_count INT NOT NULL DEFAULT 0,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_event ON photos(event_id)`,
		`CREATE TABLE IF NOT EXISTS faces (
			id BIGSERIAL PRIMARY KEY,
			event_id UUID NOT NULL,
			photo_id UUID NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
			face_index INT NOT NULL,
			bbox DOUBLE PRECISION[] NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			embedding vector NOT NULL,
			mode VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(photo_id, face_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_faces_event ON faces(event_id)`,
	}

	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
