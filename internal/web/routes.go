package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-finder/internal/web/handlers"
	"github.com/kozaktomas/photo-finder/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.engine)
	eventsHandler := handlers.NewEventsHandler(s.events, s.photos, s.engine, s.store)
	uploadHandler := handlers.NewUploadHandler(s.events, s.photos, s.engine, s.store, s.config.Upload.MaxBatchSize)
	searchHandler := handlers.NewSearchHandler(s.events, s.engine)
	shareHandler := handlers.NewShareHandler(s.events, s.photos, s.shares)

	// Health check (never rate limited)
	s.router.Get("/api/v1/health", healthHandler.Health)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Events
		r.Get("/events", eventsHandler.List)
		r.Post("/events", eventsHandler.Create)
		r.Get("/events/{id}", eventsHandler.Get)
		r.Delete("/events/{id}", eventsHandler.Delete)
		r.Get("/events/{id}/photos", eventsHandler.ListPhotos)
		r.Get("/events/{id}/photos/{photoId}/image", eventsHandler.GetPhotoImage)
		r.Delete("/events/{id}/photos/{photoId}", eventsHandler.DeletePhoto)

		// Shares
		r.Post("/shares", shareHandler.Create)
		r.Get("/shares/{token}", shareHandler.Redeem)

		// Ingestion and search sit behind the sliding-window governor.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.limiter))

			r.Post("/events/{id}/photos", uploadHandler.Upload)
			r.Post("/search/face", searchHandler.Search)
		})
	})
}
