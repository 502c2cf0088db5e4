// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides gin middleware for the gateway service.
//
// # Authentication Flow
//
// The auth middleware extracts a bearer token from the Authorization header,
// validates it with the configured TokenValidator, and stores the resulting
// AuthInfo in the gin context for downstream handlers. Handlers scope every
// session id to the authenticated user, so one caller cannot read or extend
// another caller's conversation by guessing its session id.
package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// authInfoKey is the context key for storing AuthInfo. A package-prefixed key
// prevents collisions with other context values.
const authInfoKey = "breakwater_auth_info"

// AuthInfo identifies an authenticated caller.
type AuthInfo struct {
	UserID string
}

// TokenValidator validates a bearer token and returns the caller's identity.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopValidator authenticates every request as "local-user". It backs local
// development where no identity infrastructure exists.
type NopValidator struct{}

// Validate implements the TokenValidator interface.
func (NopValidator) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{UserID: "local-user"}, nil
}

// StaticTokenValidator accepts a single shared token. The user id is fixed;
// per-user identity needs a real identity provider behind TokenValidator.
type StaticTokenValidator struct {
	token string
}

// NewStaticTokenValidator builds a validator for the given token.
func NewStaticTokenValidator(token string) *StaticTokenValidator {
	return &StaticTokenValidator{token: token}
}

// Validate implements the TokenValidator interface.
func (v *StaticTokenValidator) Validate(_ context.Context, token string) (*AuthInfo, error) {
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.token)) != 1 {
		return nil, fmt.Errorf("invalid token")
	}
	return &AuthInfo{UserID: "api-user"}, nil
}

// ValidatorFromEnv picks the validator for this deployment: a static token
// validator when API_AUTH_TOKEN is set, otherwise the nop validator.
func ValidatorFromEnv() TokenValidator {
	token := os.Getenv("API_AUTH_TOKEN")
	if token == "" {
		slog.Warn("API_AUTH_TOKEN not set, authentication is DISABLED")
		return NopValidator{}
	}
	return NewStaticTokenValidator(token)
}

// SetAuthInfo stores the authenticated caller in the gin context.
func SetAuthInfo(c *gin.Context, info *AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo retrieves the authenticated caller, or nil when the request was
// not authenticated.
func GetAuthInfo(c *gin.Context) *AuthInfo {
	value, ok := c.Get(authInfoKey)
	if !ok {
		return nil
	}
	info, ok := value.(*AuthInfo)
	if !ok {
		return nil
	}
	return info
}

// BearerAuth enforces bearer-token authentication with the given validator.
func BearerAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, _ := strings.CutPrefix(header, "Bearer ")

		info, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		SetAuthInfo(c, info)
		c.Next()
	}
}

// ScopedSessionID namespaces a session id to its owner. Stored and queried
// history always uses the scoped form, so a guessed session id from another
// user resolves to an empty conversation.
func ScopedSessionID(c *gin.Context, sessionID string) string {
	info := GetAuthInfo(c)
	if info == nil {
		return sessionID
	}
	return info.UserID + ":" + sessionID
}
