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
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/northshore-ai/breakwater/services/gateway/middleware"
	"github.com/northshore-ai/breakwater/services/gateway/observability"
	"github.com/northshore-ai/breakwater/services/guard"
)

func isRefusal(token string) bool {
	return token == guard.RefusalMessage
}

// keepAliveInterval is how often a comment line is written while the
// upstream model is quiet, so proxies do not drop the connection.
const keepAliveInterval = 15 * time.Second

// HandleChatStream serves POST /v1/chat/stream: the SSE pipeline entry point.
//
// Tokens are forwarded as they are generated. A blocked request produces a
// single token event carrying the refusal message, then done. A mid-stream
// failure produces an error event; the HTTP status is already committed by
// then.
func HandleChatStream(orch Invoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChatStream",
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		req, ok := bindChatRequest(c)
		if !ok {
			return
		}

		SetSSEHeaders(c.Writer)
		writer, err := NewSSEWriter(c.Writer)
		if err != nil {
			span.RecordError(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
			return
		}

		// Keep-alive ticker for quiet stretches.
		keepAliveCtx, stopKeepAlive := context.WithCancel(ctx)
		defer stopKeepAlive()
		go func() {
			ticker := time.NewTicker(keepAliveInterval)
			defer ticker.Stop()
			for {
				select {
				case <-keepAliveCtx.Done():
					return
				case <-ticker.C:
					if err := writer.WriteKeepAlive(); err != nil {
						return
					}
				}
			}
		}()

		scopedSession := middleware.ScopedSessionID(c, req.SessionID)

		start := time.Now()
		blocked := false
		streamErr := orch.Stream(ctx, req.Message, scopedSession, func(token string) error {
			// The refusal message arrives as the sole token of a blocked
			// stream; anything else means generation is underway.
			if !blocked && isRefusal(token) {
				blocked = true
			}
			return writer.WriteToken(token)
		})
		stopKeepAlive()
		observability.RequestDuration.WithLabelValues("chat_stream").Observe(time.Since(start).Seconds())

		if streamErr != nil {
			span.RecordError(streamErr)
			span.SetStatus(codes.Error, streamErr.Error())
			observability.RequestsTotal.WithLabelValues("chat_stream", observability.OutcomeError).Inc()

			if errors.Is(streamErr, context.Canceled) {
				// Caller disconnected; nothing left to write.
				return
			}
			slog.Error("Pipeline stream failed", "session_id", req.SessionID, "error", streamErr)
			_ = writer.WriteError("stream failed")
			return
		}

		if blocked {
			observability.SecurityBlockedTotal.Inc()
			observability.RequestsTotal.WithLabelValues("chat_stream", observability.OutcomeBlocked).Inc()
		} else {
			observability.RequestsTotal.WithLabelValues("chat_stream", observability.OutcomeOK).Inc()
		}
		_ = writer.WriteDone(req.SessionID)
	}
}
