// Package analysis drives the per-job phase sequence: verify inputs still
// exist, optionally run an encode pass, run the requested metric passes,
// parse their reports, and fold everything into a metrics summary. Encoder
// and ffmpeg command construction lives here so it can be tested without
// touching the tools.
package analysis
