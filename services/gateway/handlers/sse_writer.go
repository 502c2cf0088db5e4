// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/northshore-ai/breakwater/services/gateway/datatypes"
)

// SSEWriter writes Server-Sent Events to an HTTP response.
//
// # Thread Safety
//
// Safe for concurrent use; the keep-alive goroutine and the token stream may
// write at the same time.
type SSEWriter interface {
	WriteToken(content string) error
	WriteError(message string) error
	WriteDone(sessionID string) error
	WriteKeepAlive() error
}

type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter wraps a ResponseWriter for SSE output. Fails when the
// underlying writer cannot flush, since buffered SSE defeats streaming.
func NewSSEWriter(w http.ResponseWriter) (SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	return &sseWriter{w: w, flusher: flusher}, nil
}

// SetSSEHeaders prepares the response for event streaming. Must be called
// before the first write.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Tell reverse proxies not to buffer the stream.
	w.Header().Set("X-Accel-Buffering", "no")
}

func (s *sseWriter) writeEvent(event datatypes.StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
		return fmt.Errorf("failed to write SSE event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) WriteToken(content string) error {
	return s.writeEvent(datatypes.StreamEvent{Type: datatypes.StreamEventToken, Content: content})
}

func (s *sseWriter) WriteError(message string) error {
	return s.writeEvent(datatypes.StreamEvent{Type: datatypes.StreamEventError, Content: message})
}

func (s *sseWriter) WriteDone(sessionID string) error {
	return s.writeEvent(datatypes.StreamEvent{Type: datatypes.StreamEventDone, SessionID: sessionID})
}

func (s *sseWriter) WriteKeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprint(s.w, ": keep-alive\n\n"); err != nil {
		return fmt.Errorf("failed to write SSE keep-alive: %w", err)
	}
	s.flusher.Flush()
	return nil
}
