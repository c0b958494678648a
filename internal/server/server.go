// Package server exposes the lookup sequence over local HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/v0xg/dictfocus/internal/history"
	"github.com/v0xg/dictfocus/internal/metrics"
	"github.com/v0xg/dictfocus/internal/sequencer"
)

const shutdownGrace = 10 * time.Second

// Sequencer runs one lookup
type Sequencer interface {
	Run(ctx context.Context, text string) (*sequencer.Result, error)
}

// History records and lists lookups
type History interface {
	Record(ctx context.Context, e history.Entry) error
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Options configures New
type Options struct {
	Logger    *slog.Logger
	Registry  *prometheus.Registry // nil disables /metrics
	RateLimit float64              // lookups per second per client; 0 disables
	RateBurst int
}

// Server wraps the sequencer and optional history store
type Server struct {
	echo    *echo.Echo
	seq     Sequencer
	history History
	log     *slog.Logger
	opts    Options

	httpMetrics *metrics.HTTPMetrics
	lookups     *metrics.LookupMetrics
}

// New creates a server. hist may be nil to disable the history endpoint.
func New(seq Sequencer, hist History, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 5 * time.Second

	s := &Server{
		echo:    e,
		seq:     seq,
		history: hist,
		log:     logger.With("component", "server"),
		opts:    opts,
	}
	if opts.Registry != nil {
		s.httpMetrics = metrics.NewHTTPMetrics(opts.Registry, "/metrics", "/healthz")
		s.lookups = metrics.NewLookupMetrics(opts.Registry)
	}

	s.registerRoutes()
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and serves until ctx is cancelled, then drains
// in-flight lookups for up to shutdownGrace.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.echo.Listener = ln
	s.log.Info("Starting server", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	}
}
