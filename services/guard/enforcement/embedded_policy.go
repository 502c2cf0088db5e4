// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
This file bridges the build system and the runtime logic. It uses the Go
embed package to bake attack_patterns.yaml directly into the compiled binary,
so the signature set is immutable at runtime and travels with the executable.
*/

package enforcement

import (
	_ "embed"
)

// AttackPatterns holds the raw byte content of the 'attack_patterns.yaml' file.
//
// This variable is populated at compile-time using the Go 'embed' directive.
// Baking the YAML into the binary ensures the attack signatures cannot be
// tampered with on the host filesystem without recompiling the application.
//
// Usage:
//
//	// Pass these bytes directly to yaml.Unmarshal
//	err := yaml.Unmarshal(enforcement.AttackPatterns, &targetStruct)
//
//go:embed attack_patterns.yaml
var AttackPatterns []byte
