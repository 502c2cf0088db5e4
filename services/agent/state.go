// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

// State names a position in the per-request pipeline. States advance strictly
// forward; Blocked and Done are terminal.
type State string

const (
	StateReceived       State = "RECEIVED"
	StatePatternChecked State = "PATTERN_CHECKED"
	StateJudged         State = "JUDGED"
	StateRedactedIn     State = "REDACTED_IN"
	StateRouted         State = "ROUTED"
	StateResponded      State = "RESPONDED"
	StateRedactedOut    State = "REDACTED_OUT"
	StateDone           State = "DONE"
	StateBlocked        State = "BLOCKED"
)

// Terminal reports whether no further stage may run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateBlocked
}

// Intent is the router's classification of a question.
type Intent int

const (
	// IntentGeneral covers greetings and small talk. No retrieval happens.
	IntentGeneral Intent = iota
	// IntentRetrieval covers technical and factual questions that need the
	// knowledge base.
	IntentRetrieval
)

func (i Intent) String() string {
	switch i {
	case IntentRetrieval:
		return "RAG"
	default:
		return "GENERAL"
	}
}

// pipelineState carries one request through the stages. It exists per request
// only; the pipeline holds no cross-request mutable state.
type pipelineState struct {
	SessionID    string
	Question     string
	SafeQuestion string
	Intent       Intent
	Answer       string
	State        State
}
