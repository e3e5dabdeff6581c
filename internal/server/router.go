package server

import (
	"log/slog"
	"net/http"

	"github.com/cloo-solutions/talentlens/internal/api/handlers"
	"github.com/cloo-solutions/talentlens/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

// DefaultMaxBodyBytes caps uploads when no explicit limit is configured.
const DefaultMaxBodyBytes int64 = 25 * 1024 * 1024

type RouterConfig struct {
	Logger        *slog.Logger
	APIKeys       []string
	AllowOrigins  []string
	MaxBodyBytes  int64
	ResumeHandler *handlers.ResumeHandler
	LogsHandler   *handlers.LogsHandler
	HealthHandler *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes == 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.CORS(middleware.CORSConfig{Origins: cfg.AllowOrigins}))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	health := cfg.HealthHandler
	if health == nil {
		health = handlers.NewHealthHandler(nil)
	}
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)

	r.Route("/v1", func(r chi.Router) {
		// Open access when no keys are configured.
		if len(cfg.APIKeys) > 0 {
			r.Use(middleware.APIKeyAuth(cfg.APIKeys))
		}

		r.Post("/resumes/process", cfg.ResumeHandler.Process)
		r.Get("/resumes/search", cfg.ResumeHandler.Search)
		r.Get("/logs", cfg.LogsHandler.List)
	})

	return r
}
