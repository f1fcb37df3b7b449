// Package config loads, normalizes, and validates rcsbsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// RCSBSYNC_PROJECT_DIR. The Config type centralizes every knob the CLI needs,
// allowing the project directory, remote endpoints, and download pacing to be
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
