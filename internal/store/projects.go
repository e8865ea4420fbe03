package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shortforge/internal/pipeline"
	"shortforge/internal/services"
)

const projectColumns = "id, channel_id, title, current_stage, status, error_message, stage_data, created_at, updated_at"

// SaveProject inserts or replaces p.
func (s *Store) SaveProject(ctx context.Context, p *pipeline.Project) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return services.Wrap(services.ErrValidation, "", "save project", "project id required", nil)
	}
	if !p.Status.Stored() {
		return services.Wrap(services.ErrValidation, string(p.CurrentStage), "save project",
			fmt.Sprintf("status %q is derived and cannot be stored", p.Status), nil)
	}
	data, err := pipeline.EncodeStageData(p.StageData)
	if err != nil {
		return err
	}
	err = s.exec(ctx, `INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			channel_id = excluded.channel_id,
			title = excluded.title,
			current_stage = excluded.current_stage,
			status = excluded.status,
			error_message = excluded.error_message,
			stage_data = excluded.stage_data,
			updated_at = excluded.updated_at`,
		p.ID, p.ChannelID, p.Title, string(p.CurrentStage), string(p.Status), p.ErrorMessage, string(data),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	return nil
}

// GetProject loads one project; a missing id wraps services.ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id string) (*pipeline.Project, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "", "get project", "project "+id+" not found", nil)
	}
	return p, err
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]*pipeline.Project, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*pipeline.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if err := s.exec(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*pipeline.Project, error) {
	var (
		p                pipeline.Project
		stage, status    string
		data             string
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.ChannelID, &p.Title, &stage, &status, &p.ErrorMessage, &data, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	p.CurrentStage = pipeline.Stage(stage)
	p.Status = pipeline.ParseStoredStatus(status)
	stageData, err := pipeline.DecodeStageData([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.ID, err)
	}
	p.StageData = stageData
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
