// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package guard

import (
	"fmt"
	"log/slog"

	"github.com/northshore-ai/breakwater/services/guard/enforcement"
	"gopkg.in/yaml.v3"
)

// Finding records which signature matched during a scan. The matched payload
// itself is never stored; pattern id and category are enough for the audit
// trail.
type Finding struct {
	Classification string
	PatternId      string
	Description    string
	Confidence     ConfidenceLevel
}

// Blocker is the fast-path security filter. It holds a fixed, pre-compiled
// signature set loaded from the embedded policy file and scans inbound text
// with no external calls. It is stateless after construction and safe for
// concurrent use.
type Blocker struct {
	classifiers []Classification
}

// NewBlocker initializes a Blocker from the signatures embedded in the binary.
//
// It performs the following operations:
// 1. Unmarshals the embedded YAML data.
// 2. Compiles all regex patterns with case-insensitive multiline flags.
// 3. Sorts classifications by priority.
//
// Returns an error if the embedded YAML is malformed or contains invalid regex.
func NewBlocker() (*Blocker, error) {
	var patternFile AttackPatternFile
	if err := yaml.Unmarshal(enforcement.AttackPatterns, &patternFile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded pattern file: %w", err)
	}

	if err := patternFile.CompileRegexes(); err != nil {
		return nil, fmt.Errorf("failed to compile a regex: %w", err)
	}
	patternFile.SortByPriority()

	return &Blocker{classifiers: patternFile.Classifications}, nil
}

// Scan checks text against every signature and returns the first finding in
// priority order, or nil when no pattern matches. A single hit is sufficient
// to block; there is no scoring.
//
// The matching pattern id is logged for audit, never the payload itself.
func (b *Blocker) Scan(text string) *Finding {
	for _, classifier := range b.classifiers {
		for _, pattern := range classifier.Patterns {
			if pattern.compiledPattern.MatchString(text) {
				slog.Warn("Pattern security block triggered",
					"classification", classifier.Name,
					"pattern_id", pattern.Id,
					"confidence", pattern.Confidence,
				)
				return &Finding{
					Classification: classifier.Name,
					PatternId:      pattern.Id,
					Description:    pattern.Description,
					Confidence:     pattern.Confidence,
				}
			}
		}
	}
	return nil
}

// IsMalicious is the boolean form of Scan.
func (b *Blocker) IsMalicious(text string) bool {
	return b.Scan(text) != nil
}

// PatternCount reports the number of loaded signatures. Used by startup
// logging and tests.
func (b *Blocker) PatternCount() int {
	count := 0
	for _, classifier := range b.classifiers {
		count += len(classifier.Patterns)
	}
	return count
}
