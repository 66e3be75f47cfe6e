package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/photo-finder/internal/config"
	"github.com/kozaktomas/photo-finder/internal/database"
	"github.com/kozaktomas/photo-finder/internal/database/postgres"
	"github.com/kozaktomas/photo-finder/internal/embedder"
	"github.com/kozaktomas/photo-finder/internal/engine"
	"github.com/kozaktomas/photo-finder/internal/index"
)

// appEnv bundles the process-wide services every command builds the same
// way: one extractor, one index, one engine, optional persistence.
type appEnv struct {
	cfg       *config.Config
	extractor embedder.Extractor
	index     *index.Index
	engine    *engine.Service

	pool   *postgres.Pool
	events database.EventRepository
	photos database.PhotoRepository
	faces  database.FaceRepository
}

// buildEnv constructs the services. Backend selection happens here, once:
// when the embedding service is unreachable and fallback is disallowed the
// whole command fails, it never limps on half-configured.
func buildEnv(ctx context.Context) (*appEnv, error) {
	cfg := config.Load()

	extractor, err := embedder.New(
		cfg.Embedding.URL,
		cfg.Embedding.AllowFallback,
		time.Duration(cfg.Embedding.TimeoutSeconds)*time.Second,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting embedding backend: %w", err)
	}
	fmt.Printf("Embedding backend: %s (%s mode)\n", extractor.Name(), extractor.Mode())

	env := &appEnv{
		cfg:       cfg,
		extractor: extractor,
		index:     index.New(),
	}

	if cfg.Database.URL != "" {
		fmt.Println("Connecting to PostgreSQL database...")
		pool, err := postgres.NewPool(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		env.pool = pool
		env.events = postgres.NewEventRepository(pool)
		env.photos = postgres.NewPhotoRepository(pool)
		env.faces = postgres.NewFaceRepository(pool)
	} else {
		fmt.Println("DATABASE_URL not set - faces live in memory only")
	}

	env.engine = engine.NewService(extractor, env.index, env.faces, engine.Thresholds{
		CosineDefault: cfg.Thresholds.Cosine.Default,
		EnsembleMin:   cfg.Thresholds.Ensemble.Min,
		EnsembleMax:   cfg.Thresholds.Ensemble.Max,
	})

	if env.faces != nil {
		loaded, err := env.engine.LoadIndex(ctx)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("rebuilding face index: %w", err)
		}
		fmt.Printf("Face index rebuilt with %d faces\n", loaded)
	}

	return env, nil
}

// Close releases the database pool if one was opened.
func (e *appEnv) Close() {
	if e.pool != nil {
		if err := e.pool.Close(); err != nil {
			fmt.Printf("Warning: closing database pool: %v\n", err)
		}
	}
}
