// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package guard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"
)

// Markers substituted for detected entities. The marker forms contain no PII
// patterns themselves, which is what makes redaction idempotent.
const (
	MarkerEmail      = "[EMAIL_ADDRESS]"
	MarkerPhone      = "[PHONE_NUMBER]"
	MarkerCreditCard = "[CREDIT_CARD_NUMBER]"
)

// DeidentifyService replaces detected sensitive entities in text with type
// markers. Implementations may call out to an external inspection service or
// run entirely locally.
type DeidentifyService interface {
	Deidentify(ctx context.Context, text string) (string, error)
}

// ============================================================================
// HTTP-backed implementation
// ============================================================================

type deidRequest struct {
	Text string `json:"text"`
}

type deidResponse struct {
	Text string `json:"text"`
}

// HTTPDeidentifyClient calls an external de-identification service over its
// JSON API.
type HTTPDeidentifyClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPDeidentifyClient builds a client from DEID_SERVICE_URL.
func NewHTTPDeidentifyClient() (*HTTPDeidentifyClient, error) {
	baseURL := os.Getenv("DEID_SERVICE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("DEID_SERVICE_URL environment variable not set")
	}
	return &HTTPDeidentifyClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Deidentify implements the DeidentifyService interface.
func (c *HTTPDeidentifyClient) Deidentify(ctx context.Context, text string) (string, error) {
	reqBody, err := json.Marshal(deidRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal deidentify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/deidentify", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create deidentify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deidentify service call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("Deidentify service returned an error", "status_code", resp.StatusCode)
		return "", fmt.Errorf("deidentify service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read deidentify response: %w", err)
	}
	var parsed deidResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse deidentify response: %w", err)
	}
	return parsed.Text, nil
}

// ============================================================================
// Local implementation
// ============================================================================

// RegexDeidentifier masks entities with the same markers the external service
// uses, driven by local patterns only. It backs lightweight deployments where
// no de-identification service is configured.
type RegexDeidentifier struct {
	rules []deidRule
}

type deidRule struct {
	re     *regexp.Regexp
	marker string
}

// NewRegexDeidentifier compiles the local masking rules. Card masking runs
// before phone masking so a 16 digit card number is not partially consumed as
// a phone number.
func NewRegexDeidentifier() *RegexDeidentifier {
	return &RegexDeidentifier{
		rules: []deidRule{
			{regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`), MarkerEmail},
			{regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`), MarkerCreditCard},
			{regexp.MustCompile(`(\+\d{1,2}\s?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`), MarkerPhone},
		},
	}
}

// Deidentify implements the DeidentifyService interface.
func (d *RegexDeidentifier) Deidentify(_ context.Context, text string) (string, error) {
	for _, rule := range d.rules {
		text = rule.re.ReplaceAllString(text, rule.marker)
	}
	return text, nil
}
