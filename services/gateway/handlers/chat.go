// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/northshore-ai/breakwater/services/agent"
	"github.com/northshore-ai/breakwater/services/gateway/datatypes"
	"github.com/northshore-ai/breakwater/services/gateway/middleware"
	"github.com/northshore-ai/breakwater/services/gateway/observability"
	"github.com/northshore-ai/breakwater/services/guard"
)

var chatTracer = otel.Tracer("breakwater.gateway.handlers")

// Invoker is the pipeline surface the handlers depend on. The agent
// Orchestrator satisfies it; tests substitute a mock.
type Invoker interface {
	Invoke(ctx context.Context, message, sessionID string) (string, error)
	Stream(ctx context.Context, message, sessionID string, emit func(token string) error) error
}

// bindChatRequest parses and validates the request body, writing the error
// response itself on failure.
func bindChatRequest(c *gin.Context) (*datatypes.ChatRequest, bool) {
	var req datatypes.ChatRequest
	if err := c.BindJSON(&req); err != nil {
		slog.Error("Failed to parse the chat request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, false
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	req.EnsureDefaults()
	return &req, true
}

// HandleChat serves POST /v1/chat: the synchronous pipeline entry point.
func HandleChat(orch Invoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat",
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		req, ok := bindChatRequest(c)
		if !ok {
			return
		}

		// History is stored under the scoped id; the caller keeps seeing the
		// id it sent.
		scopedSession := middleware.ScopedSessionID(c, req.SessionID)

		start := time.Now()
		answer, err := orch.Invoke(ctx, req.Message, scopedSession)
		observability.RequestDuration.WithLabelValues("chat").Observe(time.Since(start).Seconds())

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			observability.RequestsTotal.WithLabelValues("chat", observability.OutcomeError).Inc()

			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Error("Pipeline invocation failed", "session_id", req.SessionID, "error", err)
			if agent.IsExhausted(err) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "upstream services are unavailable, try again later"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if answer == guard.RefusalMessage {
			observability.SecurityBlockedTotal.Inc()
			observability.RequestsTotal.WithLabelValues("chat", observability.OutcomeBlocked).Inc()
		} else {
			observability.RequestsTotal.WithLabelValues("chat", observability.OutcomeOK).Inc()
		}

		c.JSON(http.StatusOK, datatypes.ChatResponse{
			SessionID: req.SessionID,
			Answer:    answer,
		})
	}
}
