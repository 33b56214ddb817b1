package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/google/grr-sub002/internal/api/notifier"
	"github.com/google/grr-sub002/internal/provider"
)

// SetupRoutes registers the API routes on router.
func SetupRoutes(router chi.Router, prov *provider.Provider, notify *notifier.Notifier, logger *slog.Logger) {
	h := NewHandlers(prov, notify, logger)

	router.Get("/healthz", h.Health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/schema", h.Schema)
		r.Get("/tables", h.Tables)
		r.Get("/tables/{name}", h.Table)
		r.Post("/assist", h.Assist)
		r.Get("/events", h.Events)
	})
}

// NewRouter returns a mux with the API routes and middleware installed.
func NewRouter(prov *provider.Provider, notify *notifier.Notifier, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		requestLogger(logger),
		middleware.Recoverer,
		middleware.Compress(5),
	)
	SetupRoutes(r, prov, notify, logger)
	return r
}

// requestLogger logs each request at debug level through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
