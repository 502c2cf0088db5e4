// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides request and response types for the gateway
// service.
package datatypes

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MaxMessageBytes is the maximum size of a single chat message. Checked in
// bytes, not runes, to bound memory use regardless of encoding.
const MaxMessageBytes = 10 * 1024

// chatValidate is the validator instance for chat datatypes.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageBytes
}

// ChatRequest is the body for POST /v1/chat and /v1/chat/stream.
type ChatRequest struct {
	// SessionID groups turns into one conversation. Generated when absent.
	SessionID string `json:"session_id" validate:"omitempty,uuid4"`
	// Message is the user's question.
	Message string `json:"message" validate:"required,maxbytes"`
}

// Validate checks field constraints.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults fills a missing session id so every response can be
// correlated to a session.
func (r *ChatRequest) EnsureDefaults() {
	if r.SessionID == "" {
		r.SessionID = uuid.NewString()
	}
}

// ChatResponse is the body returned by POST /v1/chat.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// StreamEvent is one SSE payload on /v1/chat/stream.
type StreamEvent struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Stream event types.
const (
	StreamEventToken = "token"
	StreamEventError = "error"
	StreamEventDone  = "done"
)
