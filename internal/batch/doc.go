// Package batch orchestrates template runs: resolve the source spec once,
// create one job per file, execute them on a bounded worker pool, and
// reassemble the outcomes in input order. Failures stay isolated to their
// job; cancelling a batch cancels running jobs and short-circuits pending
// ones.
package batch
