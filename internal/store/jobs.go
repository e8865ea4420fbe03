package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"shortforge/internal/jobs"
	"shortforge/internal/services"
)

// SaveJob inserts or replaces a job snapshot.
func (s *Store) SaveJob(ctx context.Context, job jobs.Job) error {
	if strings.TrimSpace(job.ID) == "" {
		return services.Wrap(services.ErrValidation, "", "save job", "job id required", nil)
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	err = s.exec(ctx, `INSERT INTO jobs (id, channel_id, theme, status, step, progress, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			channel_id = excluded.channel_id,
			theme = excluded.theme,
			status = excluded.status,
			step = excluded.step,
			progress = excluded.progress,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		job.ID, job.ChannelID, job.Theme, string(job.Status), string(job.Step), job.Progress, string(body),
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob loads one job; a missing id wraps services.ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id string) (jobs.Job, error) {
	ctx = ensureContext(ctx)
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM jobs WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return jobs.Job{}, services.Wrap(services.ErrNotFound, "", "get job", "job "+id+" not found", nil)
	}
	if err != nil {
		return jobs.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return decodeJob(body)
}

// ListJobs returns jobs oldest first, optionally filtered by status.
func (s *Store) ListJobs(ctx context.Context, statuses ...jobs.Status) ([]jobs.Job, error) {
	ctx = ensureContext(ctx)
	query := "SELECT body FROM jobs"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []jobs.Job
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job, err := decodeJob(body)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func decodeJob(body string) (jobs.Job, error) {
	var job jobs.Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return jobs.Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}
