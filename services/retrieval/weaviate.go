// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retrieval implements knowledge base search over Weaviate.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/northshore-ai/breakwater/services/agent"
	"github.com/northshore-ai/breakwater/services/storage"
)

var tracer = otel.Tracer("breakwater.retrieval")

// KnowledgeChunkClass is the Weaviate class holding ingested knowledge base
// passages.
const KnowledgeChunkClass = "KnowledgeChunk"

// SearchError wraps a failed knowledge base query. Search failures are
// treated as transient: the database may be restarting or momentarily
// overloaded, and the pipeline's retry budget covers that.
type SearchError struct {
	Err error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("knowledge base search failed: %v", e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

func (e *SearchError) Transient() bool { return true }

// knowledgeChunkQueryResponse mirrors the GraphQL response shape for
// KnowledgeChunk queries.
type knowledgeChunkQueryResponse struct {
	Get struct {
		KnowledgeChunk []knowledgeChunkResult `json:"KnowledgeChunk"`
	} `json:"Get"`
}

type knowledgeChunkResult struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// WeaviateRetriever implements agent.Retriever with BM25 keyword search over
// the KnowledgeChunk class. Safe for concurrent use; the underlying client
// handles connection pooling.
type WeaviateRetriever struct {
	client *weaviate.Client
}

// NewWeaviateRetriever wraps an existing Weaviate client.
func NewWeaviateRetriever(client *weaviate.Client) *WeaviateRetriever {
	return &WeaviateRetriever{client: client}
}

// Search implements the agent.Retriever interface.
func (r *WeaviateRetriever) Search(ctx context.Context, query string, limit int) ([]agent.Passage, error) {
	ctx, span := tracer.Start(ctx, "WeaviateRetriever.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("retrieval.limit", limit))

	bm25 := r.client.GraphQL().Bm25ArgBuilder().
		WithQuery(query).
		WithProperties("content")

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
	}

	result, err := r.client.GraphQL().Get().
		WithClassName(KnowledgeChunkClass).
		WithFields(fields...).
		WithBM25(bm25).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to search the knowledge base", "error", err)
		span.RecordError(err)
		return nil, &SearchError{Err: err}
	}

	parsed, err := storage.ParseGraphQLResponse[knowledgeChunkQueryResponse](result)
	if err != nil {
		slog.Error("Failed to parse knowledge base results", "error", err)
		span.RecordError(err)
		return nil, &SearchError{Err: err}
	}

	passages := make([]agent.Passage, 0, len(parsed.Get.KnowledgeChunk))
	for _, chunk := range parsed.Get.KnowledgeChunk {
		passages = append(passages, agent.Passage{
			Content: chunk.Content,
			Source:  chunk.Source,
		})
	}
	slog.Debug("Retrieved knowledge base passages", "count", len(passages))
	span.SetAttributes(attribute.Int("retrieval.results", len(passages)))
	return passages, nil
}

// GetKnowledgeChunkSchema returns the class definition for ingested
// knowledge base passages.
func GetKnowledgeChunkSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       KnowledgeChunkClass,
		Description: "A chunk of knowledge base content with its source.",
		Vectorizer:  "none",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexNullState:  true,
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "The text content of the chunk.",
				Tokenization: "word",
			},
			{
				Name:            "source",
				DataType:        []string{"text"},
				Description:     "The original document this chunk came from.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
		},
	}
}
