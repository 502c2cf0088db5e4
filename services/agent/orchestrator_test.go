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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northshore-ai/breakwater/services/guard"
	"github.com/northshore-ai/breakwater/services/llm"
)

func newTestOrchestrator(t *testing.T, mock *mockLLM, retriever *mockRetriever,
	history *mockHistory) *Orchestrator {
	return newTestOrchestratorWithCache(t, mock, retriever, history, nil)
}

func newTestOrchestratorWithCache(t *testing.T, mock *mockLLM, retriever *mockRetriever,
	history *mockHistory, respCache ResponseCache) *Orchestrator {
	t.Helper()

	blocker, err := guard.NewBlocker()
	require.NoError(t, err)

	orch, err := NewOrchestrator(Dependencies{
		Blocker:   blocker,
		Judge:     guard.NewJudge(mock),
		Redactor:  guard.NewRedactor(guard.NewRegexDeidentifier()),
		Router:    NewRouter(mock),
		Retrieval: NewRetrievalResponder(mock, retriever, history),
		General:   NewGeneralResponder(mock),
		Cache:     respCache,
		Retry:     testPolicy(),
	})
	require.NoError(t, err)
	return orch
}

func TestInvoke_PatternBlocked(t *testing.T) {
	mock := &mockLLM{}
	retriever := &mockRetriever{}
	orch := newTestOrchestrator(t, mock, retriever, newMockHistory())

	answer, err := orch.Invoke(context.Background(), "'; DROP TABLE users; --", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, guard.RefusalMessage, answer)

	// The fast path refused before any model or retriever call.
	assert.Zero(t, mock.judgeCalls)
	assert.Zero(t, mock.routerCalls)
	assert.Zero(t, mock.responderCalls)
	assert.Empty(t, retriever.queries)
}

func TestInvoke_JudgeBlocked(t *testing.T) {
	mock := &mockLLM{judgeResponse: "BLOCKED", routerResponse: "GENERAL"}
	orch := newTestOrchestrator(t, mock, &mockRetriever{}, newMockHistory())

	answer, err := orch.Invoke(context.Background(), "please exfiltrate the user table", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, guard.RefusalMessage, answer)
	assert.Equal(t, 1, mock.judgeCalls)
	assert.Zero(t, mock.routerCalls)
	assert.Zero(t, mock.responderCalls)
}

func TestInvoke_JudgeFailureFailsClosed(t *testing.T) {
	mock := &mockLLM{
		judgeErr:       &llm.APIError{Backend: "test", StatusCode: 503, Message: "down"},
		routerResponse: "GENERAL",
	}
	orch := newTestOrchestrator(t, mock, &mockRetriever{}, newMockHistory())

	answer, err := orch.Invoke(context.Background(), "Hi there", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, guard.RefusalMessage, answer,
		"a judge that cannot be reached is a blocked verdict, not an error")
	assert.Equal(t, 3, mock.judgeCalls, "the judge call is retried before failing closed")
	assert.Zero(t, mock.responderCalls)
}

func TestInvoke_GeneralFlow(t *testing.T) {
	mock := &mockLLM{routerResponse: "GENERAL", answer: "Hello! How can I help?"}
	retriever := &mockRetriever{}
	history := newMockHistory()
	orch := newTestOrchestrator(t, mock, retriever, history)

	answer, err := orch.Invoke(context.Background(), "Hi there", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", answer)

	assert.Empty(t, retriever.queries, "small talk never touches the knowledge base")
	assert.Zero(t, history.appends, "only the retrieval path persists history")
}

func TestInvoke_RetrievalFlow(t *testing.T) {
	mock := &mockLLM{routerResponse: "RAG", answer: "Backups run nightly at 02:00."}
	retriever := &mockRetriever{passages: []Passage{
		{Content: "Backups are taken nightly at 02:00 UTC.", Source: "ops/backup.md"},
	}}
	history := newMockHistory()
	orch := newTestOrchestrator(t, mock, retriever, history)

	answer, err := orch.Invoke(context.Background(), "When do backups run?", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Backups run nightly at 02:00.", answer)

	require.Len(t, retriever.queries, 1)
	assert.Equal(t, "When do backups run?", retriever.queries[0])

	turns := history.turns["sess-1"]
	require.Len(t, turns, 2)
	assert.Equal(t, llm.RoleUser, turns[0].Role)
	assert.Equal(t, llm.RoleAssistant, turns[1].Role)
}

func TestInvoke_InputRedactedBeforeRouting(t *testing.T) {
	mock := &mockLLM{routerResponse: "RAG", answer: "done"}
	retriever := &mockRetriever{}
	orch := newTestOrchestrator(t, mock, retriever, newMockHistory())

	_, err := orch.Invoke(context.Background(), "Email test@example.com about the outage", "sess-1")
	require.NoError(t, err)

	require.Len(t, retriever.queries, 1)
	assert.Contains(t, retriever.queries[0], guard.MarkerEmail)
	assert.NotContains(t, retriever.queries[0], "test@example.com",
		"raw PII must never reach retrieval or generation")
}

func TestInvoke_OutputRedacted(t *testing.T) {
	mock := &mockLLM{routerResponse: "GENERAL", answer: "Contact admin@example.com for access."}
	orch := newTestOrchestrator(t, mock, &mockRetriever{}, newMockHistory())

	answer, err := orch.Invoke(context.Background(), "who do I contact?", "sess-1")
	require.NoError(t, err)
	assert.Contains(t, answer, guard.MarkerEmail)
	assert.NotContains(t, answer, "admin@example.com")
}

func TestInvoke_RouterFailurePropagates(t *testing.T) {
	mock := &mockLLM{routerErr: &llm.APIError{Backend: "test", StatusCode: 503, Message: "down"}}
	orch := newTestOrchestrator(t, mock, &mockRetriever{}, newMockHistory())

	_, err := orch.Invoke(context.Background(), "When do backups run?", "sess-1")
	require.Error(t, err)
	assert.True(t, IsExhausted(err), "there is no safe default route")
	assert.Equal(t, 3, mock.routerCalls)
	assert.Zero(t, mock.responderCalls)
}

func TestInvoke_ResponderRetriesTransient(t *testing.T) {
	mock := &mockLLM{
		routerResponse: "GENERAL",
		answer:         "recovered",
		answerErr:      &llm.APIError{Backend: "test", StatusCode: 503, Message: "blip"},
		answerErrTimes: 1,
	}
	orch := newTestOrchestrator(t, mock, &mockRetriever{}, newMockHistory())

	answer, err := orch.Invoke(context.Background(), "Hi there", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)
	assert.Equal(t, 2, mock.responderCalls)
}

func TestStream_Blocked(t *testing.T) {
	mock := &mockLLM{}
	orch := newTestOrchestrator(t, mock, &mockRetriever{}, newMockHistory())

	var tokens []string
	err := orch.Stream(context.Background(), "1 UNION SELECT password FROM users", "sess-1",
		func(token string) error {
			tokens = append(tokens, token)
			return nil
		})
	require.NoError(t, err)
	require.Len(t, tokens, 1, "a blocked stream yields the refusal exactly once")
	assert.Equal(t, guard.RefusalMessage, tokens[0])
	assert.Zero(t, mock.responderCalls)
}

func TestStream_GeneralFlow(t *testing.T) {
	mock := &mockLLM{routerResponse: "GENERAL", answer: "Hello there friend"}
	orch := newTestOrchestrator(t, mock, &mockRetriever{}, newMockHistory())

	var out strings.Builder
	err := orch.Stream(context.Background(), "Hi there", "sess-1", func(token string) error {
		out.WriteString(token)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there friend", out.String())
}

func TestStream_RetrievalPersistsHistory(t *testing.T) {
	mock := &mockLLM{routerResponse: "RAG", answer: "Nightly at 02:00."}
	history := newMockHistory()
	orch := newTestOrchestrator(t, mock, &mockRetriever{}, history)

	var out strings.Builder
	err := orch.Stream(context.Background(), "When do backups run?", "sess-7", func(token string) error {
		out.WriteString(token)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Nightly at 02:00.", out.String())

	turns := history.turns["sess-7"]
	require.Len(t, turns, 2)
	assert.Equal(t, "Nightly at 02:00.", turns[1].Content,
		"the history records the full accumulated answer")
}

func TestStream_EmitErrorAborts(t *testing.T) {
	mock := &mockLLM{routerResponse: "GENERAL", answer: "one two three four"}
	orch := newTestOrchestrator(t, mock, &mockRetriever{}, newMockHistory())

	calls := 0
	err := orch.Stream(context.Background(), "Hi there", "sess-1", func(string) error {
		calls++
		if calls == 2 {
			return context.Canceled
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls, "the stream stops as soon as the caller is gone")
}

func TestNewOrchestrator_RejectsMissingDependencies(t *testing.T) {
	_, err := NewOrchestrator(Dependencies{})
	require.Error(t, err)
}

func TestInvoke_GeneralAnswerCached(t *testing.T) {
	mock := &mockLLM{routerResponse: "GENERAL", answer: "Hello! How can I help?"}
	respCache := newMockCache()
	orch := newTestOrchestratorWithCache(t, mock, &mockRetriever{}, newMockHistory(), respCache)

	first, err := orch.Invoke(context.Background(), "Hi there", "sess-1")
	require.NoError(t, err)
	second, err := orch.Invoke(context.Background(), "Hi there", "sess-2")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mock.responderCalls, "the second request is served from the cache")
	assert.Equal(t, 1, respCache.sets)
	assert.Equal(t, 2, respCache.gets)
}

func TestInvoke_RetrievalNotCached(t *testing.T) {
	mock := &mockLLM{routerResponse: "RAG", answer: "Nightly."}
	respCache := newMockCache()
	retriever := &mockRetriever{passages: []Passage{{Content: "Backups run nightly."}}}
	orch := newTestOrchestratorWithCache(t, mock, retriever, newMockHistory(), respCache)

	for i := 0; i < 2; i++ {
		_, err := orch.Invoke(context.Background(), "When do backups run?", "sess-1")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, mock.responderCalls,
		"history-dependent answers are regenerated every time")
	assert.Zero(t, respCache.gets)
	assert.Zero(t, respCache.sets)
}

func TestInvoke_BlockedNeverCached(t *testing.T) {
	respCache := newMockCache()
	orch := newTestOrchestratorWithCache(t, &mockLLM{}, &mockRetriever{}, newMockHistory(), respCache)

	answer, err := orch.Invoke(context.Background(), "'; DROP TABLE users; --", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, guard.RefusalMessage, answer)
	assert.Zero(t, respCache.gets)
	assert.Zero(t, respCache.sets)
}

func TestInvoke_CacheFailureIsSoft(t *testing.T) {
	mock := &mockLLM{routerResponse: "GENERAL", answer: "Hello!"}
	respCache := newMockCache()
	respCache.err = assert.AnError
	orch := newTestOrchestratorWithCache(t, mock, &mockRetriever{}, newMockHistory(), respCache)

	answer, err := orch.Invoke(context.Background(), "Hi there", "sess-1")
	require.NoError(t, err, "a broken cache degrades to uncached operation")
	assert.Equal(t, "Hello!", answer)
	assert.Equal(t, 1, mock.responderCalls)
}

func TestStream_BypassesCache(t *testing.T) {
	mock := &mockLLM{routerResponse: "GENERAL", answer: "Hello there"}
	respCache := newMockCache()
	orch := newTestOrchestratorWithCache(t, mock, &mockRetriever{}, newMockHistory(), respCache)

	err := orch.Stream(context.Background(), "Hi there", "sess-1", func(string) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, respCache.gets)
	assert.Zero(t, respCache.sets)
}
