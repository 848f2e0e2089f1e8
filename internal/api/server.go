package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/campusreach/campaign-studio/internal/attachments"
	"github.com/campusreach/campaign-studio/internal/catalog"
	"github.com/campusreach/campaign-studio/internal/config"
	"github.com/campusreach/campaign-studio/internal/mailer"
	"github.com/campusreach/campaign-studio/internal/storage"
)

// Server represents the API server
type Server struct {
	config   config.ServerConfig
	store    *storage.Store
	catalog  *catalog.Service
	files    attachments.Store
	renderer *mailer.Renderer
	handler  http.Handler
	server   *http.Server
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	store *storage.Store,
	cat *catalog.Service,
	files attachments.Store,
	renderer *mailer.Renderer,
) *Server {
	s := &Server{
		config:   cfg,
		store:    store,
		catalog:  cat,
		files:    files,
		renderer: renderer,
	}
	s.handler = SetupRoutes(s)
	return s
}

// SetupRoutes configures all API routes.
func SetupRoutes(s *Server) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - explicit origins so the dashboard can send credentials
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", s.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", s.HandleListCampaigns)
			r.Post("/draft", s.HandleCreateDraft)
			r.Post("/submit", s.HandleSubmitCampaign)
			r.Post("/preview", s.HandlePreview)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetCampaign)
				r.Delete("/", s.HandleDeleteCampaign)
				r.Put("/draft", s.HandleUpdateDraft)
				r.Post("/submit", s.HandleSubmitExisting)
				r.Post("/schedule", s.HandleScheduleCampaign)
				r.Get("/form", s.HandleGetForm)
			})
		})

		r.Get("/institutions", s.HandleListInstitutions)
		r.Get("/institutions/options", s.HandleAudienceOptions)

		r.Route("/preferences/{userID}", func(r chi.Router) {
			r.Get("/", s.HandleGetPreferences)
			r.Put("/", s.HandleSavePreferences)
		})
	})

	return r
}

// HandleHealth reports service liveness and database reachability.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	db := "up"
	if err := s.store.Ping(ctx); err != nil {
		status = "degraded"
		db = "down"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   status,
		"database": db,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Uploads can carry several attachments, so read timeouts are generous.
		ReadTimeout:       2 * time.Minute,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
