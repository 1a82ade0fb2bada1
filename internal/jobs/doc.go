// Package jobs persists analysis jobs and templates in SQLite and enforces
// the job lifecycle: pending, running, then exactly one of completed, failed,
// or cancelled. Status updates are guarded at the database level so a job can
// never regress or reach two terminal states.
package jobs
