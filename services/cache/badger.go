// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCache stores answers in an embedded BadgerDB, so cached responses
// survive a restart. TTL enforcement is delegated to Badger's entry TTLs.
type BadgerCache struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerCache opens (or creates) the cache database under dir.
func NewBadgerCache(dir string, ttl time.Duration) (*BadgerCache, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	return &BadgerCache{db: db, ttl: ttl}, nil
}

// Get returns the cached answer for the question, if present and fresh.
func (c *BadgerCache) Get(_ context.Context, question string) (string, bool, error) {
	var answer []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(question))
		if err != nil {
			return err
		}
		answer, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache read failed: %w", err)
	}
	return string(answer), true, nil
}

// Set stores the answer for the question with the configured TTL.
func (c *BadgerCache) Set(_ context.Context, question, answer string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(entryKey(question), []byte(answer)).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

// Close releases the database. Must be called on shutdown.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
