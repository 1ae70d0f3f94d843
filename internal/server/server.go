// Package server provides the HTTP API over the reconciled catalog and
// the task orchestrator. Reads are served from the store through a short
// TTL cache; task control talks to the orchestrator directly.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/racketdata/ttsync/internal/server/cache"
	"github.com/racketdata/ttsync/internal/store"
	"github.com/racketdata/ttsync/internal/task"
	"github.com/racketdata/ttsync/pkg/constants"
	"github.com/racketdata/ttsync/pkg/logging"
)

// Config holds the HTTP server configuration.
type Config struct {
	// ListenAddr is the bind address, e.g. ":8080".
	ListenAddr string

	// CacheTTL bounds how long read endpoints may serve a cached answer.
	CacheTTL time.Duration

	// CORSEnabled adds CORS headers for browser frontends.
	CORSEnabled bool
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	store        *store.Store
	orchestrator *task.Orchestrator
	cache        *cache.Cache
	logger       zerolog.Logger
	config       Config
	startTime    time.Time
}

// New creates a server over the given store and orchestrator.
func New(st *store.Store, orchestrator *task.Orchestrator, cfg Config) *Server {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = constants.CacheTTL
	}

	return &Server{
		store:        st,
		orchestrator: orchestrator,
		cache:        cache.New(cfg.CacheTTL, constants.CacheCleanupInterval),
		logger:       logging.With().Str("component", "server").Logger(),
		config:       cfg,
		startTime:    time.Now(),
	}
}

// Handler returns the configured http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: constants.DefaultTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.ListenAddr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
