// Package logging provides the printf-style logger used across station and a
// slog-backed implementation that writes to the console and an accumulated
// log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
)

// Logger defines a minimal, printf-style logging contract.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// IsNil reports whether logger is nil or wraps a nil pointer receiver.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	val := reflect.ValueOf(logger)
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return val.IsNil()
	default:
		return false
	}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

// Config configures New.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	// File is the accumulated log file. Empty disables file output.
	File string
	// Console receives the same records as File. Defaults to os.Stdout.
	Console io.Writer
}

type slogLogger struct {
	logger *slog.Logger
}

// New builds a structured logger. The returned closer releases the log file
// and must be called on shutdown.
func New(cfg Config) (Logger, io.Closer, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}
	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	out := io.MultiWriter(writers...)
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return &slogLogger{logger: slog.New(handler)}, closer, nil
}

// FromSlog adapts an existing slog logger.
func FromSlog(logger *slog.Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return &slogLogger{logger: logger}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *slogLogger) Debug(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *slogLogger) Info(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *slogLogger) Warn(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *slogLogger) Error(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// Component scopes logger to a named component. Structured loggers carry the
// name as an attribute; other loggers get a bracketed prefix.
func Component(logger Logger, name string) Logger {
	logger = OrNop(logger)
	if name == "" {
		return logger
	}
	switch l := logger.(type) {
	case nopLogger:
		return l
	case *slogLogger:
		return &slogLogger{logger: l.logger.With("component", name)}
	default:
		return prefixLogger{inner: logger, prefix: "[" + name + "] "}
	}
}

type prefixLogger struct {
	inner  Logger
	prefix string
}

func (p prefixLogger) Debug(format string, args ...any) { p.inner.Debug(p.prefix+format, args...) }
func (p prefixLogger) Info(format string, args ...any)  { p.inner.Info(p.prefix+format, args...) }
func (p prefixLogger) Warn(format string, args ...any)  { p.inner.Warn(p.prefix+format, args...) }
func (p prefixLogger) Error(format string, args ...any) { p.inner.Error(p.prefix+format, args...) }

type multiLogger []Logger

// Multi fans every record out to each non-nil logger.
func Multi(loggers ...Logger) Logger {
	out := make(multiLogger, 0, len(loggers))
	for _, l := range loggers {
		if !IsNil(l) {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return Nop()
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multiLogger) Debug(format string, args ...any) {
	for _, l := range m {
		l.Debug(format, args...)
	}
}

func (m multiLogger) Info(format string, args ...any) {
	for _, l := range m {
		l.Info(format, args...)
	}
}

func (m multiLogger) Warn(format string, args ...any) {
	for _, l := range m {
		l.Warn(format, args...)
	}
}

func (m multiLogger) Error(format string, args ...any) {
	for _, l := range m {
		l.Error(format, args...)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
