// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"

	"github.com/northshore-ai/breakwater/services/agent"
)

// NoopRetriever backs lightweight deployments with no knowledge base. Every
// search returns no passages, so the responder answers "I do not know" for
// anything outside the conversation itself.
type NoopRetriever struct{}

// Search implements the agent.Retriever interface.
func (NoopRetriever) Search(_ context.Context, _ string, _ int) ([]agent.Passage, error) {
	return nil, nil
}
