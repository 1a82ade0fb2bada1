package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SaveTemplate inserts or updates a template by name.
func (s *Store) SaveTemplate(ctx context.Context, tpl *Template) error {
	if tpl.Name == "" {
		return fmt.Errorf("save template: name is required")
	}
	if tpl.ParallelJobs <= 0 {
		tpl.ParallelJobs = 1
	}

	metricsJSON, err := json.Marshal(tpl.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	now := time.Now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (
            name, source_spec, encoder, encoder_params, metrics_json,
            output_dir, parallel_jobs, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            source_spec = excluded.source_spec,
            encoder = excluded.encoder,
            encoder_params = excluded.encoder_params,
            metrics_json = excluded.metrics_json,
            output_dir = excluded.output_dir,
            parallel_jobs = excluded.parallel_jobs,
            updated_at = excluded.updated_at`,
		tpl.Name,
		tpl.SourceSpec,
		tpl.Encoder,
		nullableString(tpl.EncoderParams),
		string(metricsJSON),
		nullableString(tpl.OutputDir),
		tpl.ParallelJobs,
		tpl.CreatedAt.Format(time.RFC3339Nano),
		tpl.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save template %s: %w", tpl.Name, err)
	}
	return nil
}

// GetTemplate fetches a template by name.
func (s *Store) GetTemplate(ctx context.Context, name string) (*Template, error) {
	row := s.db.QueryRowContext(ctx, selectTemplateSQL+" WHERE name = ?", name)
	tpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", name, ErrNotFound)
	}
	return tpl, err
}

// ListTemplates returns all templates ordered by name.
func (s *Store) ListTemplates(ctx context.Context) ([]*Template, error) {
	rows, err := s.db.QueryContext(ctx, selectTemplateSQL+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []*Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

// RemoveTemplate deletes a template. Jobs that ran under it are untouched.
func (s *Store) RemoveTemplate(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("remove template %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("template %s: %w", name, ErrNotFound)
	}
	return nil
}

const selectTemplateSQL = `SELECT
    name, source_spec, encoder, encoder_params, metrics_json,
    output_dir, parallel_jobs, created_at, updated_at
FROM templates`

func scanTemplate(scanner interface{ Scan(dest ...any) error }) (*Template, error) {
	var (
		tpl         Template
		params      sql.NullString
		metricsJSON string
		outputDir   sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&tpl.Name, &tpl.SourceSpec, &tpl.Encoder, &params, &metricsJSON,
		&outputDir, &tpl.ParallelJobs, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	tpl.EncoderParams = params.String
	tpl.OutputDir = outputDir.String
	if err := json.Unmarshal([]byte(metricsJSON), &tpl.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if tpl.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if tpl.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &tpl, nil
}
