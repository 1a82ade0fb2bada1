// Package services holds the error taxonomy shared across the analysis
// engine.
//
// Failures are tagged with sentinel markers (timeout, tool error, parse
// error, missing input, insufficient data, cancelled) so callers can classify
// a terminal job error with errors.Is while persisting a stable kind string
// next to the human-readable detail. Wrap is the single construction point;
// it prefixes stage and operation context onto the message.
package services
