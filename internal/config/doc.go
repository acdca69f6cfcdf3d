// Package config loads, normalizes, and validates podd configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours PODD_* environment overrides. The
// Config type centralizes every knob the CLI needs, from worker counts to
// notification credentials.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
