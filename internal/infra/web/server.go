package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"lecture-script-service/internal/domain/ports/adapter"
	"lecture-script-service/internal/infra/notify"
	"lecture-script-service/internal/usecase"
)

type Server struct {
	jobUC  *usecase.JobUseCase
	hub    *notify.Hub
	ai     adapter.AIServiceAdapter
	apiKey string
	log    *zerolog.Logger
}

func NewServer(jobUC *usecase.JobUseCase, hub *notify.Hub, ai adapter.AIServiceAdapter, apiKey string, logger *zerolog.Logger) *Server {
	return &Server{
		jobUC:  jobUC,
		hub:    hub,
		ai:     ai,
		apiKey: apiKey,
		log:    logger,
	}
}

// Router builds the full route tree. Everything under /api/v1 sits behind
// the API-key middleware; health and metrics stay open for probes and
// scrapers.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/jobs", createJobHandler(s.jobUC))
		r.Get("/jobs", listJobsHandler(s.jobUC))
		r.Get("/jobs/events", streamGlobalHandler(s.hub, s.log))
		r.Get("/jobs/{id}", getJobHandler(s.jobUC))
		r.Post("/jobs/{id}/start", startJobHandler(s.jobUC))
		r.Post("/jobs/{id}/cancel", cancelJobHandler(s.jobUC))
		r.Get("/jobs/{id}/script", getScriptHandler(s.jobUC))
		r.Get("/jobs/{id}/events", streamJobHandler(s.jobUC, s.hub, s.log))
		r.Get("/projects/{id}/events", streamProjectHandler(s.hub, s.log))
		r.Get("/models", modelsHandler(s.ai, s.log))
	})

	return r
}

// authMiddleware checks the configured API key. Event-stream consumers use
// EventSource, which cannot set headers, so an api_key query parameter is
// accepted as a fallback.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if key := r.URL.Query().Get("api_key"); key != "" {
			if key != s.apiKey {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}
		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
