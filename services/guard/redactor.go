// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package guard

import (
	"context"
	"log/slog"
	"regexp"
)

// ProtectedPlaceholder replaces the entire text when the de-identification
// service fails while potential PII is present. Losing formatting fidelity is
// acceptable; leaking sensitive data is not.
const ProtectedPlaceholder = "[PROTECTED CONTENT]"

// piiPrefilters are the cheap local checks that decide whether the external
// service needs to be called at all. They intentionally over-match; the
// service makes the precise call.
var piiPrefilters = []*regexp.Regexp{
	regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`),
	regexp.MustCompile(`(\+\d{1,2}\s?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`),
	regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`),
}

// Redactor masks personally identifiable information in text.
//
// # Description
//
// Redact is applied twice per request: once to the inbound question before
// any storage or generation step, and once to the outbound answer before it
// is returned. Both calls go through the same function and the operation is
// idempotent: marker and placeholder forms contain no PII patterns, so
// redacting already-redacted text is a no-op.
//
// # Limitations
//
//   - Fail-soft: if the de-identification service fails, the whole text is
//     replaced with ProtectedPlaceholder instead of being returned raw.
type Redactor struct {
	deid DeidentifyService
}

// NewRedactor wires the redactor to a de-identification backend.
func NewRedactor(deid DeidentifyService) *Redactor {
	return &Redactor{deid: deid}
}

// HasPotentialPII reports whether any prefilter matches.
func HasPotentialPII(text string) bool {
	for _, re := range piiPrefilters {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Redact returns text with detected sensitive entities replaced by type
// markers. Text with no potential PII is returned unchanged without calling
// the external service.
func (r *Redactor) Redact(ctx context.Context, text string) string {
	if text == "" {
		return ""
	}
	if !HasPotentialPII(text) {
		return text
	}

	ctx, span := tracer.Start(ctx, "Redactor.Redact")
	defer span.End()

	masked, err := r.deid.Deidentify(ctx, text)
	if err != nil {
		slog.Error("De-identification failed, substituting placeholder", "error", err)
		span.RecordError(err)
		return ProtectedPlaceholder
	}
	return masked
}
