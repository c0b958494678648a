package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/v0xg/dictfocus/internal/history"
	"github.com/v0xg/dictfocus/internal/logging"
	"github.com/v0xg/dictfocus/internal/sequencer"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	historyWriteTimeout = 2 * time.Second
)

// handleLookup handles GET /?text=...
func (s *Server) handleLookup(c echo.Context) error {
	text := c.QueryParam("text")
	if text == "" {
		return c.String(http.StatusBadRequest, "Missing query text.")
	}

	ctx := c.Request().Context()
	started := time.Now()
	res, err := s.seq.Run(ctx, text)
	elapsed := time.Since(started)

	s.record(ctx, text, started, elapsed, err)
	if s.lookups != nil {
		s.lookups.Observe(text, elapsed, err)
	}

	if err != nil {
		var aerr *sequencer.AutomationError
		switch {
		case errors.Is(err, sequencer.ErrBusy):
			s.log.WarnContext(ctx, "lookup rejected", "text", text, "error", err)
			return c.String(http.StatusServiceUnavailable, "lookup queue busy")
		case errors.As(err, &aerr):
			s.log.ErrorContext(ctx, "lookup failed", "text", text, "step", string(aerr.Step), "elapsed", elapsed, "error", aerr.Err)
			return c.String(http.StatusInternalServerError, aerr.Error())
		default:
			s.log.ErrorContext(ctx, "lookup failed", "text", text, "error", err)
			return c.String(http.StatusInternalServerError, "lookup failed")
		}
	}

	s.log.InfoContext(ctx, "lookup done", "text", text, "special", res.Special, "elapsed", elapsed)
	return c.String(http.StatusOK, "URL has been converted and opened.")
}

// record stores the outcome; failures here never change the response
func (s *Server) record(ctx context.Context, text string, started time.Time, elapsed time.Duration, runErr error) {
	if s.history == nil || errors.Is(runErr, sequencer.ErrBusy) {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()
	entry := history.NewEntry(logging.RequestID(ctx), text, started, elapsed, runErr)
	if err := s.history.Record(ctx, entry); err != nil {
		s.log.WarnContext(ctx, "failed to record lookup", "error", err)
	}
}

// handleHistory handles GET /history?limit=N
func (s *Server) handleHistory(c echo.Context) error {
	limit := defaultHistoryLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c.String(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxHistoryLimit)
	}

	ctx := c.Request().Context()
	entries, err := s.history.Recent(ctx, limit)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to read history", "error", err)
		return c.String(http.StatusInternalServerError, "failed to read history")
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
