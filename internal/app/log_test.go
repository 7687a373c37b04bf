package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "info",
			level:   slog.LevelInfo,
			message: "collection imported",
			want:    "2024-06-15T14:30:45Z\tINFO\tcollection imported\n",
		},
		{
			name:    "error with attrs",
			level:   slog.LevelError,
			message: "Error sending request",
			attrs:   []slog.Attr{slog.String("url", "http://localhost/users"), slog.Int("status", 500)},
			want:    "2024-06-15T14:30:45Z\tERROR\tError sending request\turl=http://localhost/users\tstatus=500\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &logHandler{w: &buf, level: slog.LevelDebug}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			require.NoError(t, h.Handle(context.Background(), r))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestLogHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &logHandler{w: &buf, level: slog.LevelInfo}
	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "pipeline")})

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "sent", 0)
	r.AddAttrs(slog.String("tab", "t-1"))
	require.NoError(t, h2.Handle(context.Background(), r))

	assert.Equal(t, "2024-01-01T00:00:00Z\tINFO\tsent\tcomponent=pipeline\ttab=t-1\n", buf.String())
	assert.Empty(t, h.attrs)
}

func TestLogHandler_Enabled(t *testing.T) {
	h := &logHandler{level: slog.LevelWarn}
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer

	logger, closer, err := NewLogger(dir, slog.LevelInfo, &console)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.With("command", "send").Info("request sent", "status", 200)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "postie.log"))
	require.NoError(t, err)
	assert.Equal(t, console.String(), string(data))
	assert.Contains(t, string(data), "\tINFO\trequest sent\tcommand=send\tstatus=200\n")
	assert.NotContains(t, string(data), "hidden")
}
