package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerWritesAttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.With("request_id", "abc").WithGroup("auth").Warn("token rejected", "reason", "expired", "error", errors.New("boom"))

	out := buf.String()
	require.Contains(t, out, "token rejected")
	require.Contains(t, out, "request_id")
	require.Contains(t, out, "auth.reason")
	require.Contains(t, out, "boom")
	require.Contains(t, out, "WARN")
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{}))

	log.Debug("hidden")
	require.Empty(t, buf.String())

	log.Info("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestNewJSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(&buf, "json", slog.LevelInfo).Info("server starting", "addr", ":5000")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "server starting", line["msg"])
	require.Equal(t, ":5000", line["addr"])
}

func TestPrettyHandlerHighlightsTracingAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{}))

	log.Info("request", "request_id", "req-1", "user_id", "ann", "status", 503, "path", "/api/posts")

	out := buf.String()
	require.Contains(t, out, "="+blue+"req-1"+reset)
	require.Contains(t, out, "="+blue+"ann"+reset)
	require.Contains(t, out, "="+red+"503"+reset)
	require.Contains(t, out, "="+"/api/posts"+reset)
}
