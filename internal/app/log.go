package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// logHandler formats records as tab separated lines:
//
//	<timestamp>\t<level>\t<message>\t<key=value ...>
type logHandler struct {
	w     io.Writer
	level slog.Leveler
	attrs []slog.Attr
}

func (h *logHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *logHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\t%s\t%s", r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&sb, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&sb, "\t%s=%v", a.Key, a.Value)
		return true
	})
	sb.WriteByte('\n')

	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &logHandler{
		w:     h.w,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *logHandler) WithGroup(string) slog.Handler { return h }

// ParseLevel maps "debug", "info", "warn" or "error" to a slog level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger returns a logger writing to logDir/postie.log and, when console
// is non-nil, to console as well. The returned closer closes the log file.
func NewLogger(logDir string, level slog.Level, console io.Writer) (*SlogLogger, io.Closer, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(logDir, "postie.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	var w io.Writer = f
	if console != nil {
		w = io.MultiWriter(f, console)
	}
	return &SlogLogger{l: slog.New(&logHandler{w: w, level: level})}, f, nil
}

// SlogLogger adapts *slog.Logger to core.Logger.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// With returns a logger that adds args to every record.
func (a *SlogLogger) With(args ...any) *SlogLogger {
	return &SlogLogger{l: a.l.With(args...)}
}

func (a *SlogLogger) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *SlogLogger) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *SlogLogger) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *SlogLogger) Error(msg string, args ...any) { a.l.Error(msg, args...) }
