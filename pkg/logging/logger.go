// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for AleutianTrack components.
//
// The SDK is embedded inside a host application, so the logger never
// touches the host's filesystem and never panics. It is a thin layer over
// Go's standard library slog package:
//
//   - Default: stderr output in text format (follows Unix conventions)
//   - Quiet: discard everything (recommended for production hosts)
//   - Writer override: direct output anywhere the host wants it
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{
//	    Level:     logging.LevelInfo,
//	    Component: "tracksdk",
//	})
//	logger.Info("profile identified", "identifier", id)
//	logger.Error("storage write failed", "key", key, "error", err)
//
// # Log Levels
//
// Four levels are supported, matching slog conventions:
//
//   - Debug: development troubleshooting, verbose output
//   - Info: normal operations (identify, clear, queue admission)
//   - Warn: recoverable issues (degraded mode, dropped writes)
//   - Error: operation failures (but the SDK continues)
//
// # Thread Safety
//
// Logger is safe for concurrent use. The underlying slog.Logger is
// thread-safe and Logger holds no mutable state.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level represents log severity levels.
//
// Levels follow the slog convention and are ordered by severity:
// Debug < Info < Warn < Error. Setting a minimum level filters out
// all logs below that level.
type Level int

// Level values mirror slog's numbering so the zero value is LevelInfo,
// the right default for an embedded SDK.
const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = -4

	// LevelInfo is for normal operational messages.
	LevelInfo Level = 0

	// LevelWarn is for potentially problematic situations.
	LevelWarn Level = 4

	// LevelError is for error conditions the SDK survives.
	LevelError Level = 8

	// LevelNone disables all output.
	LevelNone Level = 12
)

// String returns the human-readable name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name such as "debug" or "ERROR" to a
// Level. Unrecognized names fall back to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "NONE", "OFF":
		return LevelNone
	default:
		return LevelInfo
	}
}

// toSlogLevel converts our Level to slog.Level.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures the Logger behavior.
//
// A zero-value Config creates a logger that writes Info+ messages to
// stderr in text format.
type Config struct {
	// Level sets the minimum log level.
	//
	// Messages below this level are discarded.
	// Default: LevelInfo
	Level Level

	// Component identifies the SDK component generating logs.
	//
	// This value is included in every log entry as the "component"
	// attribute. Recommended values: "tracksdk", "store", "queue",
	// "profile", "device".
	// Default: "" (no component attribute)
	Component string

	// JSON enables JSON output format.
	//
	// When true, logs are formatted as JSON objects. When false,
	// logs are formatted as human-readable text.
	// Default: false
	JSON bool

	// Quiet disables all output regardless of level.
	//
	// Embedded SDKs should default to quiet in release builds so they
	// never pollute the host application's stderr.
	// Default: false
	Quiet bool

	// Writer overrides the output destination.
	//
	// When nil, output goes to stderr. Tests use this to assert on
	// rendered output.
	// Default: nil (stderr)
	Writer io.Writer

	// Handler overrides the slog handler entirely.
	//
	// When set, JSON and Writer are ignored. Tests use this together
	// with NewCaptureHandler to assert on structured records.
	// Default: nil
	Handler slog.Handler
}

// Logger provides structured logging for SDK components.
//
// Logger wraps slog.Logger and is safe for concurrent use.
type Logger struct {
	slog  *slog.Logger
	level Level
}

// New creates a new Logger with the given configuration.
func New(config Config) *Logger {
	if config.Quiet || config.Level >= LevelNone {
		return Nop()
	}

	handler := config.Handler
	if handler == nil {
		w := config.Writer
		if w == nil {
			w = os.Stderr
		}
		opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}
		if config.JSON {
			handler = slog.NewJSONHandler(w, opts)
		} else {
			handler = slog.NewTextHandler(w, opts)
		}
	}

	if config.Component != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("component", config.Component),
		})
	}

	return &Logger{slog: slog.New(handler), level: config.Level}
}

// Default returns a logger with default settings: Info level, stderr,
// text format.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Component: "tracksdk"})
}

// Nop returns a logger that discards everything.
//
// Used as the default collaborator wherever a caller passes nil.
func Nop() *Logger {
	return &Logger{
		slog:  slog.New(slog.DiscardHandler),
		level: LevelNone,
	}
}

// OrNop returns l, or a no-op logger when l is nil.
//
// Collaborator packages call this on injected loggers so a nil never
// propagates into a log call.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// Debug logs a message at Debug level.
//
// args are key-value pairs of attributes, slog style.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs a message at Info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a message at Warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs a message at Error level.
//
// The SDK never escalates beyond Error; no failure in this library is
// fatal to the host process.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// With returns a new Logger with additional attributes.
//
// The parent logger is not modified.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), level: l.level}
}

// Slog returns the underlying slog.Logger for callers that need direct
// access to slog features.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Record is a captured log entry, used by tests.
type Record struct {
	Level   Level
	Message string
	Attrs   map[string]any
}

// CaptureHandler collects log records in memory.
//
// Useful for testing to verify log output:
//
//	capture := logging.NewCaptureHandler()
//	logger := logging.New(logging.Config{Handler: capture})
//
//	logger.Info("test message", "key", "value")
//
//	records := capture.Records()
//	assert.Equal(t, "test message", records[0].Message)
type CaptureHandler struct {
	mu      sync.Mutex
	records []Record
}

// NewCaptureHandler creates a new CaptureHandler.
func NewCaptureHandler() *CaptureHandler {
	return &CaptureHandler{records: make([]Record, 0, 16)}
}

// Enabled reports true for every level; capture is unconditional.
func (h *CaptureHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// Handle records the log entry.
func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, Record{
		Level:   fromSlogLevel(r.Level),
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

// WithAttrs returns the handler itself; captured attrs come from records.
func (h *CaptureHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

// WithGroup returns the handler itself; groups are not captured.
func (h *CaptureHandler) WithGroup(_ string) slog.Handler { return h }

// Records returns a copy of all captured records.
func (h *CaptureHandler) Records() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// Messages returns the captured messages in order.
func (h *CaptureHandler) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.records))
	for i, r := range h.records {
		out[i] = r.Message
	}
	return out
}

func fromSlogLevel(l slog.Level) Level {
	switch {
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}
