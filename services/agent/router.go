// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/northshore-ai/breakwater/services/llm"
)

var tracer = otel.Tracer("breakwater.agent")

const routerSystemPrompt = `You are a router. Your job is to classify the user's intent.

OPTIONS:
- "RAG": If the user asks a technical question, asks about data, documentation, specific facts, or complex topics.
- "GENERAL": If the user asks a simple greeting (hi, hello), asks "how are you", or makes small talk.

Return ONLY the word "RAG" or "GENERAL".`

// Router classifies a question as needing knowledge retrieval or not.
type Router struct {
	client llm.LLMClient
}

// NewRouter wires the router to an LLM backend.
func NewRouter(client llm.LLMClient) *Router {
	return &Router{client: client}
}

// Classify returns the intent for a question.
//
// The decision is a substring check on the model output: any response
// containing "RAG" routes to retrieval, everything else routes to general
// chat. The check is deliberately permissive so decorated answers like
// `Intent: "RAG"` still route correctly; it also means an output containing
// RAG inside another word routes to retrieval. A call failure propagates to
// the caller; there is no safe default route.
func (r *Router) Classify(ctx context.Context, question string) (Intent, error) {
	ctx, span := tracer.Start(ctx, "Router.Classify")
	defer span.End()

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: routerSystemPrompt},
		{Role: llm.RoleUser, Content: question},
	}
	params := llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.0),
		MaxTokens:   llm.IntPtr(8),
	}

	response, err := r.client.Chat(ctx, messages, params)
	if err != nil {
		span.RecordError(err)
		return IntentGeneral, fmt.Errorf("intent classification failed: %w", err)
	}

	intent := IntentGeneral
	if strings.Contains(response, "RAG") {
		intent = IntentRetrieval
	}
	slog.Info("Intent classified", "intent", intent.String())
	span.SetAttributes(attribute.String("agent.intent", intent.String()))
	return intent, nil
}
