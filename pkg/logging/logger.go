// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides the configurable structured logger used by
// service entry points.
//
// It wraps log/slog with a fixed set of destinations: stderr (text or JSON)
// and an optional LogExporter for shipping entries to external sinks. Library
// code logs through slog directly; only main wiring should touch this
// package.
package logging

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// Level is the logger's severity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogEntry is the exporter-facing form of one log record.
type LogEntry struct {
	Level   string
	Message string
	Service string
	Attrs   map[string]any
}

// LogExporter ships log entries to an external sink. Export must not block
// for long; slow sinks should buffer internally.
type LogExporter interface {
	Export(ctx context.Context, entry LogEntry) error
	Close() error
}

// NopExporter discards every entry.
type NopExporter struct{}

func (NopExporter) Export(_ context.Context, _ LogEntry) error { return nil }
func (NopExporter) Close() error                               { return nil }

// Config controls logger construction.
type Config struct {
	// Level is the minimum severity to emit.
	Level Level
	// JSON selects JSON output on stderr instead of text.
	JSON bool
	// Quiet suppresses the stderr handler entirely.
	Quiet bool
	// Service is attached as a "service" attribute to every record.
	Service string
	// Exporter optionally receives every record. May be nil.
	Exporter LogExporter
}

// Logger wraps slog with exporter fan-out.
type Logger struct {
	slog     *slog.Logger
	config   Config
	exporter LogExporter
	mu       sync.Mutex
}

// New builds a Logger from config. Close releases exporter resources.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}

	var handlers []slog.Handler
	if !config.Quiet {
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
		}
	}
	if config.Exporter != nil {
		handlers = append(handlers, &exporterHandler{
			exporter: config.Exporter,
			service:  config.Service,
			level:    config.Level.toSlogLevel(),
		})
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(os.Stderr, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	return &Logger{
		slog:     slog.New(handler),
		config:   config,
		exporter: config.Exporter,
	}
}

// Default returns an info-level text logger.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "breakwater"})
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a child logger carrying additional attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), config: l.config, exporter: l.exporter}
}

// Slog exposes the underlying slog.Logger, typically to install it as the
// process default.
func (l *Logger) Slog() *slog.Logger { return l.slog }

// Close flushes and releases the exporter, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.exporter == nil {
		return nil
	}
	err := l.exporter.Close()
	l.exporter = nil
	return err
}

// ============================================================================
// slog handler plumbing
// ============================================================================

// multiHandler fans records out to several handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// exporterHandler adapts a LogExporter to the slog.Handler interface.
type exporterHandler struct {
	exporter LogExporter
	service  string
	level    slog.Level
	attrs    []slog.Attr
}

func (h *exporterHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *exporterHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		attrs[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.Any()
		return true
	})
	return h.exporter.Export(ctx, LogEntry{
		Level:   r.Level.String(),
		Message: r.Message,
		Service: h.service,
		Attrs:   attrs,
	})
}

func (h *exporterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *exporterHandler) WithGroup(_ string) slog.Handler {
	// Groups are flattened; exporters see a flat attribute map.
	return h
}
