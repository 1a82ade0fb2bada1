package jobs

import (
	"time"

	"vqa/internal/metrics"
)

// Status is a job's lifecycle state. The set is closed; transitions only move
// forward and terminal states are final.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ValidTransition reports whether moving from one status to another is legal.
// Cancellation is the only terminal state reachable directly from pending.
func ValidTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusCancelled
	case StatusRunning:
		return to.Terminal()
	}
	return false
}

// Mode distinguishes jobs that encode-then-measure from jobs that compare two
// existing files.
type Mode string

const (
	ModeSingleFile Mode = "single_file"
	ModeDualFile   Mode = "dual_file"
)

// CommandLogEntry records one external tool invocation made on behalf of a
// job.
type CommandLogEntry struct {
	Type        string     `json:"type"`
	Argv        []string   `json:"argv"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Job is a single encode/measure unit of work. Once terminal, exactly one of
// Summary and ErrorKind/ErrorMessage is populated.
type Job struct {
	ID           string
	Mode         Mode
	Template     string
	Source       string
	Reference    string
	JobDir       string
	Status       Status
	CreatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
	Summary      *metrics.Summary
	ErrorKind    string
	ErrorMessage string
	CommandLog   []CommandLogEntry
}

// Template is a stored analysis recipe. Removing a template never touches the
// jobs that ran under it.
type Template struct {
	Name          string
	SourceSpec    string
	Encoder       string
	EncoderParams string
	Metrics       []string
	OutputDir     string
	ParallelJobs  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
