// Package config loads, normalizes, and validates engine configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI and the batch orchestrator need: tool locations and timeout, job storage
// root, default concurrency, CPU sampling cadence, and retention.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths and clear validation errors.
package config
