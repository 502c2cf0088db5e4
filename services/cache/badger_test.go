// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadgerCache(t *testing.T) *BadgerCache {
	t.Helper()
	c, err := NewBadgerCache(t.TempDir(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBadgerCache_RoundTrip(t *testing.T) {
	c := newTestBadgerCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "what time is it?")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "what time is it?", "I cannot tell the time."))

	answer, ok, err := c.Get(ctx, "what time is it?")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "I cannot tell the time.", answer)
}

func TestBadgerCache_DistinctQuestions(t *testing.T) {
	c := newTestBadgerCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "hello", "Hi!"))

	_, ok, err := c.Get(ctx, "hello there")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewBadgerCache_RequiresDir(t *testing.T) {
	_, err := NewBadgerCache("", time.Minute)
	require.Error(t, err)
}
