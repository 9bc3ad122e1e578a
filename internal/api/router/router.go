package router

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/sitecraft/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/sitecraft/internal/http/middleware"
	"github.com/wolfman30/sitecraft/internal/leads"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger       *logging.Logger
	Intake       *leads.Handler
	Projects     *handlers.ProjectHandler
	AdminLeads   *handlers.AdminLeadsHandler
	AdminSummary *handlers.AdminSummaryHandler
	Gallery      *handlers.GalleryHandler

	// AdminAuthSecret enables the admin pages and API. Without it no /admin or
	// /api/admin route is mounted.
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Optional per-client limits for intake submissions and message sends.
	IntakeLimiter  httpmiddleware.Limiter
	MessageLimiter httpmiddleware.Limiter

	// HealthCheck reports backing store reachability for /health.
	HealthCheck func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	intakeLimit := limitWith(cfg.IntakeLimiter, "intake", logger)
	messageLimit := limitWith(cfg.MessageLimiter, "messages", logger)

	r.Get("/health", healthHandler(cfg.HealthCheck, logger))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Intake
	if cfg.Intake != nil {
		r.Get("/start", cfg.Intake.StartPage)
		r.With(intakeLimit).Post("/start", cfg.Intake.SubmitStart)
		r.With(intakeLimit).Post("/api/intake", cfg.Intake.CreateIntake)
	}

	// Client dashboard, gated by the lead's access token
	if cfg.Projects != nil {
		r.Group(func(client chi.Router) {
			client.Use(tokenPageHeaders)
			client.Get("/project/{leadID}", cfg.Projects.Page)
			client.Route("/api/projects/{leadID}", func(p chi.Router) {
				p.Get("/", cfg.Projects.GetProject)
				p.Get("/messages", cfg.Projects.ListMessages)
				p.With(messageLimit).Post("/messages", cfg.Projects.PostMessage)
				p.Get("/ws", cfg.Projects.Stream)
			})
		})
	}

	if cfg.Gallery != nil {
		r.Get("/api/gallery", cfg.Gallery.List)
	}

	if cfg.AdminAuthSecret != "" {
		// Admin shells load without auth; their API calls carry the bearer token.
		if cfg.AdminLeads != nil {
			r.Get("/admin/leads", cfg.AdminLeads.ListPage)
			r.Get("/admin/leads/{leadID}", cfg.AdminLeads.DetailPage)
		}

		r.Route("/api/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.AdminLeads != nil {
				admin.Get("/leads", cfg.AdminLeads.ListLeads)
				admin.Get("/leads/{leadID}", cfg.AdminLeads.GetLead)
				admin.With(messageLimit).Post("/leads/{leadID}/messages", cfg.AdminLeads.PostMessage)
				admin.Get("/leads/{leadID}/ws", cfg.AdminLeads.Stream)
			}
			if cfg.AdminSummary != nil {
				admin.Get("/summary", cfg.AdminSummary.GetSummary)
			}
			if cfg.Gallery != nil {
				admin.Post("/gallery", cfg.Gallery.Upload)
				admin.Delete("/gallery/{category}/{name}", cfg.Gallery.Delete)
			}
		})
	}

	return r
}

func limitWith(limiter httpmiddleware.Limiter, name string, logger *logging.Logger) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return httpmiddleware.RateLimit(limiter, name, logger)
}

func healthHandler(check func(context.Context) error, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r.Context()); err != nil {
				logger.Warn("health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
