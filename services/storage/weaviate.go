// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package storage holds the shared Weaviate plumbing used by the retrieval
// and history layers: client construction, schema bootstrap, and typed
// GraphQL response parsing.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// NewClientFromEnv builds a Weaviate client from WEAVIATE_SERVICE_URL.
//
// Returns (nil, nil) when the variable is unset: the caller is expected to
// fall back to lightweight in-process implementations.
func NewClientFromEnv() (*weaviate.Client, error) {
	rawURL := os.Getenv("WEAVIATE_SERVICE_URL")
	if rawURL == "" {
		slog.Warn("WEAVIATE_SERVICE_URL not set, running in lightweight mode")
		return nil, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid WEAVIATE_SERVICE_URL %q: %w", rawURL, err)
	}

	clientConf := weaviate.Config{
		Host:   parsed.Host,
		Scheme: parsed.Scheme,
	}
	client, err := weaviate.NewClient(clientConf)
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}
	return client, nil
}

// EnsureSchema creates any of the given classes that do not exist yet.
// Existing classes are left untouched.
func EnsureSchema(ctx context.Context, client *weaviate.Client, classes ...*models.Class) error {
	for _, class := range classes {
		slog.Info("Checking schema", "class", class.Class)

		// The client returns an error when the class does not exist.
		_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx)
		if err != nil {
			slog.Info("Schema not found, creating it...", "class", class.Class)
			if err := client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
				return fmt.Errorf("failed to create schema for class %s: %w", class.Class, err)
			}
			slog.Info("Successfully created schema", "class", class.Class)
		} else {
			slog.Info("Schema already exists", "class", class.Class)
		}
	}
	return nil
}

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target
// type.
//
// # Limitations
//
//   - Requires the target type to exactly match the expected response
//     structure. Type mismatches result in zero values, not errors.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("GraphQL query returned an error: %s", resp.Errors[0].Message)
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}
	return &result, nil
}
