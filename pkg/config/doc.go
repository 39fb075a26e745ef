// Package config handles configuration management for declarix.
// It layers embedded defaults, the user's TOML or YAML file and
// DECLARIX_* environment variables with koanf, then normalizes the
// declared paths into an ordered list of types.Declared.
package config
