// Package api serves the query assistant over HTTP as a JSON API.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/google/grr-sub002/internal/api/notifier"
	"github.com/google/grr-sub002/internal/provider"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Config holds configuration for the API server.
type Config struct {
	Provider *provider.Provider
	Addr     string
	// Watch reloads the schema when SchemaPath changes.
	Watch         bool
	SchemaVersion string
	SchemaPath    string
	Logger        *slog.Logger
}

// Server is the API server.
type Server struct {
	provider      *provider.Provider
	addr          string
	watch         bool
	schemaVersion string
	schemaPath    string
	logger        *slog.Logger
	notifier      *notifier.Notifier
}

// NewServer creates a new API server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		provider:      cfg.Provider,
		addr:          cfg.Addr,
		watch:         cfg.Watch,
		schemaVersion: cfg.SchemaVersion,
		schemaPath:    cfg.SchemaPath,
		logger:        logger,
		notifier:      notifier.New(),
	}
}

// Notifier returns the notifier that feeds the event stream.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return NewRouter(s.provider, s.notifier, s.logger)
}

// Serve listens on the configured address and blocks until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting API server", "addr", ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		if s.schemaPath == "" {
			s.logger.Warn("watch requested without a schema path, not watching")
		} else {
			eg.Go(func() error {
				return s.provider.Watch(egctx, s.schemaVersion, s.schemaPath, provider.DefaultReloadDelay, s.onReload)
			})
		}
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) onReload(err error) {
	if err != nil {
		return
	}
	idx := s.provider.Index()
	s.notifier.Broadcast(notifier.Event{Version: idx.Version(), Tables: idx.Len()})
}
