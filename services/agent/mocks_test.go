// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/northshore-ai/breakwater/services/llm"
)

// mockLLM routes calls on the system prompt so one client can play the
// judge, the router, and both responders in a single pipeline test.
//
// Behavior is configured per role; unset roles echo the user message.
type mockLLM struct {
	mu sync.Mutex

	judgeResponse  string
	judgeErr       error
	routerResponse string
	routerErr      error
	answer         string
	answerErr      error
	answerErrTimes int

	judgeCalls     int
	routerCalls    int
	responderCalls int

	// responderMessages records the full message list of every generation
	// call, so tests can assert on the assembled prompt.
	responderMessages [][]llm.Message
}

func (m *mockLLM) roleFor(messages []llm.Message) string {
	if len(messages) == 0 {
		return "responder"
	}
	system := messages[0].Content
	switch {
	case strings.Contains(system, "security expert"):
		return "judge"
	case strings.Contains(system, "You are a router"):
		return "router"
	default:
		return "responder"
	}
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	return m.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, params)
}

func (m *mockLLM) Chat(_ context.Context, messages []llm.Message, _ llm.GenerationParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.roleFor(messages) {
	case "judge":
		m.judgeCalls++
		if m.judgeErr != nil {
			return "", m.judgeErr
		}
		if m.judgeResponse != "" {
			return m.judgeResponse, nil
		}
		return messages[len(messages)-1].Content, nil
	case "router":
		m.routerCalls++
		if m.routerErr != nil {
			return "", m.routerErr
		}
		if m.routerResponse != "" {
			return m.routerResponse, nil
		}
		return "GENERAL", nil
	default:
		m.responderCalls++
		m.responderMessages = append(m.responderMessages, messages)
		if m.answerErr != nil && (m.answerErrTimes == 0 || m.responderCalls <= m.answerErrTimes) {
			return "", m.answerErr
		}
		if m.answer != "" {
			return m.answer, nil
		}
		return messages[len(messages)-1].Content, nil
	}
}

func (m *mockLLM) ChatStream(ctx context.Context, messages []llm.Message, params llm.GenerationParams,
	callback llm.StreamCallback) error {

	answer, err := m.Chat(ctx, messages, params)
	if err != nil {
		return err
	}
	// Split the canned answer into word tokens.
	for _, word := range strings.SplitAfter(answer, " ") {
		if err := callback(llm.StreamEvent{Type: llm.StreamEventToken, Content: word}); err != nil {
			return err
		}
	}
	return callback(llm.StreamEvent{Type: llm.StreamEventDone})
}

// mockRetriever returns fixed passages and records queries.
type mockRetriever struct {
	mu       sync.Mutex
	passages []Passage
	err      error
	queries  []string
}

func (m *mockRetriever) Search(_ context.Context, query string, _ int) ([]Passage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return m.passages, nil
}

// mockHistory is an in-memory history store that records appends.
type mockHistory struct {
	mu        sync.Mutex
	turns     map[string][]llm.Message
	appends   int
	recent    []llm.Message
	getErr    error
	appendErr error
}

func newMockHistory() *mockHistory {
	return &mockHistory{turns: map[string][]llm.Message{}}
}

func (m *mockHistory) GetRecent(_ context.Context, sessionID string, _ int) ([]llm.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.recent != nil {
		return m.recent, nil
	}
	return m.turns[sessionID], nil
}

func (m *mockHistory) Append(_ context.Context, sessionID string, messages ...llm.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appends++
	m.turns[sessionID] = append(m.turns[sessionID], messages...)
	return nil
}

// mockCache is an in-memory ResponseCache that counts calls. A configured
// error fails every operation.
type mockCache struct {
	mu      sync.Mutex
	entries map[string]string
	gets    int
	sets    int
	err     error
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string]string{}}
}

func (m *mockCache) Get(_ context.Context, question string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return "", false, m.err
	}
	answer, ok := m.entries[question]
	return answer, ok, nil
}

func (m *mockCache) Set(_ context.Context, question, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.err != nil {
		return m.err
	}
	m.entries[question] = answer
	return nil
}
