// Package logging builds the slog loggers used across the engine.
//
// Console and JSON handlers share a level parser and an optional log-file tee
// into the configured log directory. Attr helpers keep call sites terse and
// field names consistent.
package logging
