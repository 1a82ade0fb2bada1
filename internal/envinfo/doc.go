// Package envinfo captures a snapshot of the host hardware and OS for
// inclusion in batch reports.
package envinfo
