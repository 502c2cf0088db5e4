// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package history persists per-session conversation turns. Two
// implementations exist: a Weaviate-backed store for full deployments and an
// in-memory store for lightweight mode and tests. Both satisfy
// agent.HistoryStore.
package history

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("breakwater.history")
