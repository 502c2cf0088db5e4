// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		wantErr bool
	}{
		{"valid with session", ChatRequest{SessionID: uuid.NewString(), Message: "hello"}, false},
		{"valid without session", ChatRequest{Message: "hello"}, false},
		{"missing message", ChatRequest{SessionID: uuid.NewString()}, true},
		{"malformed session id", ChatRequest{SessionID: "not-a-uuid", Message: "hi"}, true},
		{"message at limit", ChatRequest{Message: strings.Repeat("a", MaxMessageBytes)}, false},
		{"message over limit", ChatRequest{Message: strings.Repeat("a", MaxMessageBytes+1)}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChatRequestEnsureDefaults(t *testing.T) {
	req := ChatRequest{Message: "hi"}
	req.EnsureDefaults()
	_, err := uuid.Parse(req.SessionID)
	require.NoError(t, err, "a missing session id is filled with a valid UUID")

	fixed := ChatRequest{SessionID: "11111111-1111-4111-8111-111111111111", Message: "hi"}
	fixed.EnsureDefaults()
	assert.Equal(t, "11111111-1111-4111-8111-111111111111", fixed.SessionID)
}
