// Package httpapi assembles the control-plane router.
package httpapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"jubily/internal/httpapi/handlers"
	"jubily/internal/httpkit"
	"jubily/internal/orchestrator"
	"jubily/internal/pkg/logger"
	"jubily/internal/pkg/middleware"
	"jubily/internal/ports"
	"jubily/internal/repositories"
	"jubily/internal/settings"
)

type Deps struct {
	Pool         *pgxpool.Pool
	RDB          *redis.Client
	SP           ports.StorageProvider
	Settings     *settings.Service
	Topics       *repositories.TopicRepository
	Offers       *repositories.OfferRepository
	Jobs         *repositories.VideoJobRepository
	Orchestrator *orchestrator.Orchestrator
	Logs         handlers.LogReader
	Log          *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	allowedOrigins := envCSV("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:5173",
	})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(handlers.Deps{
		Pool:         d.Pool,
		RDB:          d.RDB,
		SP:           d.SP,
		Settings:     d.Settings,
		Topics:       d.Topics,
		Offers:       d.Offers,
		Jobs:         d.Jobs,
		Orchestrator: d.Orchestrator,
		Logs:         d.Logs,
		Log:          log,
	})

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- AUTOMATION ----
	r.Post("/automation/run/{slot}", h.RunSlot)
	r.Get("/automation/settings", h.GetSettings)
	r.Put("/automation/settings", h.UpdateSettings)
	r.Get("/automation/workflow", h.Workflow)

	// ---- TOPICS / OFFERS ----
	r.Post("/topics", h.PostTopic)
	r.Get("/topics", h.ListTopics)
	r.Post("/offers", h.PostOffer)

	// ---- JOBS ----
	r.Get("/jobs", h.ListJobs)
	r.Get("/jobs/{jobId}", h.GetJob)
	r.Post("/jobs/{jobId}/retry", h.RetryJob)

	return r
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
