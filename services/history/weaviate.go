// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel/attribute"

	"github.com/northshore-ai/breakwater/services/llm"
	"github.com/northshore-ai/breakwater/services/storage"
)

// ConversationTurnClass is the Weaviate class holding one message per object.
const ConversationTurnClass = "ConversationTurn"

type conversationTurnQueryResponse struct {
	Get struct {
		ConversationTurn []conversationTurnResult `json:"ConversationTurn"`
	} `json:"Get"`
}

type conversationTurnResult struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// WeaviateStore persists conversation turns in Weaviate, one object per
// message, ordered by creation time.
type WeaviateStore struct {
	client *weaviate.Client
}

// NewWeaviateStore wraps an existing Weaviate client.
func NewWeaviateStore(client *weaviate.Client) *WeaviateStore {
	return &WeaviateStore{client: client}
}

// GetRecent implements the agent.HistoryStore interface. The newest messages
// are fetched by descending creation time and returned oldest first, ready to
// splice into a prompt.
func (s *WeaviateStore) GetRecent(ctx context.Context, sessionID string, limit int) ([]llm.Message, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.GetRecent")
	defer span.End()
	span.SetAttributes(attribute.String("history.session_id", sessionID))

	whereFilter := filters.Where().
		WithPath([]string{"session_id"}).
		WithOperator(filters.Equal).
		WithValueString(sessionID)

	sortBy := graphql.Sort{
		Path:  []string{"created_at"},
		Order: graphql.Desc,
	}

	fields := []graphql.Field{
		{Name: "role"},
		{Name: "content"},
		{Name: "created_at"},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(ConversationTurnClass).
		WithFields(fields...).
		WithWhere(whereFilter).
		WithSort(sortBy).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to retrieve conversation history", "error", err)
		span.RecordError(err)
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}

	parsed, err := storage.ParseGraphQLResponse[conversationTurnQueryResponse](result)
	if err != nil {
		slog.Error("Failed to parse conversation history results", "error", err)
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	turns := parsed.Get.ConversationTurn
	messages := make([]llm.Message, 0, len(turns))
	// Reverse into chronological order.
	for i := len(turns) - 1; i >= 0; i-- {
		messages = append(messages, llm.Message{
			Role:    turns[i].Role,
			Content: turns[i].Content,
		})
	}
	return messages, nil
}

// Append implements the agent.HistoryStore interface.
func (s *WeaviateStore) Append(ctx context.Context, sessionID string, messages ...llm.Message) error {
	ctx, span := tracer.Start(ctx, "WeaviateStore.Append")
	defer span.End()
	span.SetAttributes(attribute.String("history.session_id", sessionID))

	now := time.Now().UnixNano()
	for i, msg := range messages {
		properties := map[string]interface{}{
			"session_id": sessionID,
			"role":       msg.Role,
			"content":    msg.Content,
			// Offset preserves intra-batch ordering.
			"created_at": now + int64(i),
		}

		_, err := s.client.Data().Creator().
			WithClassName(ConversationTurnClass).
			WithProperties(properties).
			Do(ctx)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to save conversation turn to Weaviate: %w", err)
		}
	}
	slog.Debug("Saved conversation turns", "session_id", sessionID, "count", len(messages))
	return nil
}

// GetConversationTurnSchema returns the class definition for stored turns.
func GetConversationTurnSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       ConversationTurnClass,
		Description: "A single message in a chat session.",
		Vectorizer:  "none",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexNullState:  true,
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:            "session_id",
				DataType:        []string{"text"},
				Description:     "The unique ID for the chat session.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:        "role",
				DataType:    []string{"text"},
				Description: "Who produced the message: user or assistant.",
			},
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "The message text, stored after redaction.",
				Tokenization: "word",
			},
			{
				Name:            "created_at",
				DataType:        []string{"int"},
				Description:     "Creation time in unix nanoseconds, used for ordering.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}
