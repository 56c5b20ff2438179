// Package server is the local HTTP front end for airdrop submissions.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mohsinsiddi/tsender/internal/airdrop"
	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/Mohsinsiddi/tsender/internal/config"
	"github.com/Mohsinsiddi/tsender/internal/metrics"
)

// defaultWriteTimeout covers an approval plus an airdrop at the default
// confirm timeout.
const defaultWriteTimeout = 7 * time.Minute

// RecipientExpander rewrites the recipient text before validation, for
// example to resolve ENS names. It returns the text unchanged when there is
// nothing to expand.
type RecipientExpander func(ctx context.Context, text string) (string, error)

// Options are the dependencies of a Server.
type Options struct {
	Addr     string
	Network  *chain.Chain
	Env      airdrop.Env
	Registry *chain.Registry

	Workflow *airdrop.Workflow
	Expand   RecipientExpander // optional

	// AllowedOrigins may call the API from a browser in addition to pages
	// served from the API's own host.
	AllowedOrigins []string

	Metrics  *metrics.Metrics    // optional
	Gatherer prometheus.Gatherer // serves /metrics when set
	Logger   *slog.Logger

	// WriteTimeout bounds a whole request, including waiting for receipts.
	WriteTimeout time.Duration
}

// Server serves the airdrop API for a single network and wallet.
type Server struct {
	opts    Options
	logger  *slog.Logger
	records *recordStore
	server  *http.Server
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:    opts,
		logger:  logger,
		records: newRecordStore(maxRecords),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	route := func(path, method string, h http.Handler) {
		r.Handle(path, metrics.HTTPMetricsMiddleware(s.opts.Metrics, path)(h)).Methods(method)
	}

	route("/healthz", http.MethodGet, handleHealth())
	route("/api/chains", http.MethodGet, handleListChains(s.opts.Registry, s.opts.Env, s.opts.Network))
	route("/api/preview", http.MethodPost, handlePreview(s.opts.Workflow, s.opts.Env, s.opts.Expand, s.logger))
	route("/api/airdrop", http.MethodPost, handleAirdrop(s.opts.Workflow, s.opts.Env, s.opts.Expand, s.records, s.logger))
	route("/api/airdrop/{id}", http.MethodGet, handleGetRecord(s.records))

	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// Preflights match no API route, so give them one for the guard to answer.
	r.PathPrefix("/").Methods(http.MethodOptions).Handler(http.NotFoundHandler())

	r.Use(requestGuard(s.opts.AllowedOrigins))
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	writeTimeout := s.opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.opts.Addr, "network", s.opts.Network.Name)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down HTTP server")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
