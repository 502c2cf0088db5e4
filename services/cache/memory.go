// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"sync"
	"time"
)

// maxMemoryEntries caps the in-memory cache so an attacker cycling unique
// questions cannot grow it without bound.
const maxMemoryEntries = 1024

type memoryEntry struct {
	answer    string
	expiresAt time.Time
}

// MemoryCache is a bounded TTL cache. It backs lightweight deployments where
// no cache directory is configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache builds a cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached answer for the question, if present and fresh.
func (c *MemoryCache) Get(_ context.Context, question string) (string, bool, error) {
	key := string(entryKey(question))

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return "", false, nil
	}
	return entry.answer, true, nil
}

// Set stores the answer for the question, evicting when the cache is full.
func (c *MemoryCache) Set(_ context.Context, question, answer string) error {
	key := string(entryKey(question))

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= maxMemoryEntries {
		c.evictLocked()
	}
	c.entries[key] = memoryEntry{answer: answer, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// evictLocked drops expired entries, then one arbitrary entry if nothing has
// expired yet. Callers hold the mutex.
func (c *MemoryCache) evictLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) < maxMemoryEntries {
		return
	}
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

// Close implements the closer side of the cache contract. Nothing to release.
func (c *MemoryCache) Close() error { return nil }
