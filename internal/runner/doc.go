// Package runner executes external measurement tools. Every run gets its own
// process group, a timeout, a bounded stderr tail for diagnostics, and an
// optional CPU usage sampler. Failures are tagged so callers can distinguish
// a timeout from a tool crash from a cancelled batch.
package runner
