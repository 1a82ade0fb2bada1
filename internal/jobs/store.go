package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"vqa/internal/config"
	"vqa/internal/metrics"
)

// ErrNotFound is returned when a job or template lookup matches nothing.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a guarded status update finds the job
// in a state the transition does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// Store persists jobs and templates in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the jobs database under the jobs root.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.JobsRoot, "jobs.db")
	return OpenPath(dbPath)
}

// OpenPath opens the database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// CreateJob inserts a new pending job. The job's ID, status, and creation
// timestamp are assigned here.
func (s *Store) CreateJob(ctx context.Context, job *Job) error {
	if job.Source == "" {
		return fmt.Errorf("create job: source path is required")
	}
	if job.Mode == "" {
		job.Mode = ModeSingleFile
	}

	job.ID = uuid.NewString()
	job.Status = StatusPending
	job.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (
            id, mode, template, source_path, reference_path, job_dir,
            status, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		string(job.Mode),
		nullableString(job.Template),
		job.Source,
		nullableString(job.Reference),
		nullableString(job.JobDir),
		string(job.Status),
		job.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob fetches a job by identifier.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, selectJobSQL+" WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return job, err
}

// ListJobs returns jobs newest first, optionally filtered by status.
func (s *Store) ListJobs(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := selectJobSQL
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(statuses)) + ")"
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// MarkRunning transitions a pending job to running and stamps started_at.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.guardedUpdate(ctx, id,
		`UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		string(StatusRunning), now, id, string(StatusPending))
}

// MarkCompleted transitions a running job to completed with its summary.
func (s *Store) MarkCompleted(ctx context.Context, id string, summary *metrics.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.guardedUpdate(ctx, id,
		`UPDATE jobs SET status = ?, finished_at = ?, summary_json = ?,
            error_kind = NULL, error_message = NULL
         WHERE id = ? AND status = ?`,
		string(StatusCompleted), now, string(payload), id, string(StatusRunning))
}

// MarkFailed transitions a running job to failed with its error detail.
func (s *Store) MarkFailed(ctx context.Context, id, kind, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.guardedUpdate(ctx, id,
		`UPDATE jobs SET status = ?, finished_at = ?, summary_json = NULL,
            error_kind = ?, error_message = ?
         WHERE id = ? AND status = ?`,
		string(StatusFailed), now, kind, message, id, string(StatusRunning))
}

// MarkCancelled transitions a pending or running job to cancelled. Pending
// jobs skip running entirely.
func (s *Store) MarkCancelled(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.guardedUpdate(ctx, id,
		`UPDATE jobs SET status = ?, finished_at = ?, summary_json = NULL
         WHERE id = ? AND status IN (?, ?)`,
		string(StatusCancelled), now, id, string(StatusPending), string(StatusRunning))
}

// guardedUpdate runs a conditional status update and reports an invalid
// transition when the guard matched no row.
func (s *Store) guardedUpdate(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetJob(ctx, id)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("job %s in status %s: %w", id, current.Status, ErrInvalidTransition)
	}
	return nil
}

// AppendCommandLog adds one tool invocation record to the job's command log.
func (s *Store) AppendCommandLog(ctx context.Context, id string, entry CommandLogEntry) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	log := append(job.CommandLog, entry)
	payload, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal command log: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE jobs SET command_log_json = ? WHERE id = ?`, string(payload), id)
	if err != nil {
		return fmt.Errorf("update command log: %w", err)
	}
	return nil
}

const selectJobSQL = `SELECT
    id, mode, template, source_path, reference_path, job_dir,
    status, created_at, started_at, finished_at,
    summary_json, error_kind, error_message, command_log_json
FROM jobs`

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job         Job
		mode        string
		status      string
		template    sql.NullString
		reference   sql.NullString
		jobDir      sql.NullString
		createdAt   string
		startedAt   sql.NullString
		finishedAt  sql.NullString
		summaryJSON sql.NullString
		errorKind   sql.NullString
		errorMsg    sql.NullString
		commandLog  sql.NullString
	)

	err := scanner.Scan(
		&job.ID, &mode, &template, &job.Source, &reference, &jobDir,
		&status, &createdAt, &startedAt, &finishedAt,
		&summaryJSON, &errorKind, &errorMsg, &commandLog,
	)
	if err != nil {
		return nil, err
	}

	job.Mode = Mode(mode)
	job.Status = Status(status)
	job.Template = template.String
	job.Reference = reference.String
	job.JobDir = jobDir.String
	job.ErrorKind = errorKind.String
	job.ErrorMessage = errorMsg.String

	if job.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.StartedAt, err = parseNullableTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if job.FinishedAt, err = parseNullableTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	if summaryJSON.Valid && summaryJSON.String != "" {
		var summary metrics.Summary
		if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
		job.Summary = &summary
	}
	if commandLog.Valid && commandLog.String != "" {
		if err := json.Unmarshal([]byte(commandLog.String), &job.CommandLog); err != nil {
			return nil, fmt.Errorf("unmarshal command log: %w", err)
		}
	}
	return &job, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullableTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	ts, err := parseTimeString(value.String)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.Repeat("?, ", count-1) + "?"
}
