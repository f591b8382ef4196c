/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, logged with every line
  2. Logger:     zap request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Request counts and latency by route pattern
  5. CORS:       Cross-origin requests for the companion frontend

ROUTE GROUPS:
  /api/users/{id}/*     Per-user schedule, queries and subscriptions
  /api/reminders/*      Planning history
  /api/admin/*          Admin operations
  /metrics              Prometheus scrape endpoint
  /healthz              Liveness and storage check

SECURITY NOTE:
  No authentication middleware. Account linking lives in front of this
  service.

SEE ALSO:
  - handlers.go: Handler implementations
  - metrics.go: Collectors
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	origins := h.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	if h.Metrics != nil {
		r.Use(h.Metrics.Instrument)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Healthz)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/users/{id}", func(r chi.Router) {
			r.Put("/schedule", h.PutSchedule)
			r.Get("/schedule", h.GetSchedule)
			r.Get("/enabled", h.GetEnabled)
			r.Get("/lookahead", h.GetLookahead)
			r.Get("/next", h.GetNext)
			r.Get("/remind", h.GetRemind)
			r.Post("/reminders", h.Subscribe)
			r.Delete("/reminders", h.Unsubscribe)
		})

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/runs", h.ListReminderRuns)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/reminders/plan", h.PlanReminders)
		})
	})

	return r
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}
