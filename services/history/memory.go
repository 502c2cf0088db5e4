// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

import (
	"context"
	"sync"

	"github.com/northshore-ai/breakwater/services/llm"
)

// maxTurnsPerSession bounds memory growth per session. Oldest messages are
// dropped first.
const maxTurnsPerSession = 100

// MemoryStore is an in-process history store for lightweight deployments and
// tests. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]llm.Message
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]llm.Message)}
}

// GetRecent implements the agent.HistoryStore interface. Messages come back
// oldest first.
func (m *MemoryStore) GetRecent(_ context.Context, sessionID string, limit int) ([]llm.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := m.sessions[sessionID]
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	out := make([]llm.Message, len(messages))
	copy(out, messages)
	return out, nil
}

// Append implements the agent.HistoryStore interface.
func (m *MemoryStore) Append(_ context.Context, sessionID string, messages ...llm.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := append(m.sessions[sessionID], messages...)
	if len(session) > maxTurnsPerSession {
		session = session[len(session)-maxTurnsPerSession:]
	}
	m.sessions[sessionID] = session
	return nil
}
