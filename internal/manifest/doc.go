// Package manifest loads the steerkit manifest declaration (YAML, TOML or
// JSON), validates it against the embedded JSON schema, and resolves its
// mapping rules into concrete source/destination pairs for one build target.
package manifest
