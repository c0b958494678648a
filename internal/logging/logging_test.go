package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerAutoUsesJSONForBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Options{Writer: &buf, Component: "dictfocus"})
	require.NoError(t, err)

	logger.Info("listening", "addr", "127.0.0.1:8080")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "expected JSON output, got %q", buf.String())
	assert.Equal(t, "dictfocus", line["component"])
	assert.Equal(t, "127.0.0.1:8080", line["addr"])
}

func TestNewLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Options{Writer: &buf, Format: "text", Level: "warn"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLoggerRejectsUnknownValues(t *testing.T) {
	_, err := NewLogger(Options{Format: "xml"})
	assert.ErrorContains(t, err, "unknown log format")

	_, err = NewLogger(Options{Level: "loud"})
	assert.ErrorContains(t, err, "unknown log level")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestRequestIDAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Options{Writer: &buf, Format: "json"})
	require.NoError(t, err)

	ctx := WithRequestID(context.Background(), "req-42")
	logger.With("component", "server").InfoContext(ctx, "lookup done")
	logger.Info("no context")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "req-42", first["request_id"])
	assert.Equal(t, "server", first["component"])
	assert.NotContains(t, second, "request_id")

	assert.Equal(t, "req-42", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}
