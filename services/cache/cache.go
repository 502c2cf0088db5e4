// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache provides response caches for answered questions.
//
// A cache entry maps a question to its final, already redacted answer.
// Entries expire after a TTL so a refreshed knowledge base or prompt change
// eventually reaches every caller. Two implementations are provided: an
// embedded BadgerDB store for deployments that survive restarts, and an
// in-memory store for lightweight mode.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultTTL bounds how stale a cached answer may get.
const DefaultTTL = 1 * time.Hour

// entryKey derives a fixed-size key from the question text. Hashing keeps
// arbitrary user input out of store keys.
func entryKey(question string) []byte {
	sum := sha256.Sum256([]byte(question))
	return []byte("resp:" + hex.EncodeToString(sum[:]))
}
