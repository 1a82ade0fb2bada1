package jobs

import (
	"context"
	"fmt"
	"os"
	"time"
)

// SweepExpired removes terminal jobs that finished before the cutoff,
// deleting their job directories along with the rows. Pending and running
// jobs are never swept. Scheduling is the caller's concern.
func (s *Store) SweepExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	expired, err := s.expiredJobs(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, job := range expired {
		if job.JobDir != "" {
			if err := os.RemoveAll(job.JobDir); err != nil {
				return removed, fmt.Errorf("remove job dir %s: %w", job.JobDir, err)
			}
		}
		res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, job.ID)
		if err != nil {
			return removed, fmt.Errorf("delete job %s: %w", job.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return removed, fmt.Errorf("rows affected: %w", err)
		}
		removed += affected
	}
	return removed, nil
}

func (s *Store) expiredJobs(ctx context.Context, cutoff time.Time) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx,
		selectJobSQL+` WHERE status IN (?, ?, ?) AND finished_at IS NOT NULL AND finished_at < ?`,
		string(StatusCompleted), string(StatusFailed), string(StatusCancelled),
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query expired jobs: %w", err)
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
