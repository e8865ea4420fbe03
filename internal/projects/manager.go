// Package projects owns the collection of in-flight projects. It applies the
// pure pipeline transitions, persists every change through a Repository, and
// logs stage movements. Repository failures are logged; the in-memory
// collection stays authoritative.
package projects

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shortforge/internal/logging"
	"shortforge/internal/metrics"
	"shortforge/internal/pipeline"
	"shortforge/internal/services"
)

// Repository persists projects.
type Repository interface {
	SaveProject(ctx context.Context, p *pipeline.Project) error
	ListProjects(ctx context.Context) ([]*pipeline.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// Manager is safe for concurrent use. Returned projects are copies.
type Manager struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	projects map[string]*pipeline.Project
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager builds an empty manager. repo may be nil for an in-memory collection.
func NewManager(repo Repository, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		repo:     repo,
		logger:   logging.NewComponentLogger(logger, "projects"),
		now:      time.Now,
		projects: map[string]*pipeline.Project{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load replaces the in-memory collection with the repository contents.
// Projects violating the stage-data prefix invariant are kept but logged.
func (m *Manager) Load(ctx context.Context) error {
	if m.repo == nil {
		return nil
	}
	list, err := m.repo.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects = make(map[string]*pipeline.Project, len(list))
	for _, p := range list {
		if err := pipeline.CheckPrefix(p); err != nil {
			logging.WarnWithContext(m.logger, "project stage data out of order", "project_invariant",
				logging.String(logging.FieldProjectID, p.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "status may not reflect earlier stages"),
				logging.String(logging.FieldErrorHint, "reset or move the project to a consistent stage"),
			)
		}
		m.projects[p.ID] = p
	}
	return nil
}

// Create adds a project at the first stage.
func (m *Manager) Create(ctx context.Context, channelID, title string) (*pipeline.Project, error) {
	p := pipeline.NewProject(uuid.NewString(), channelID, title, m.now())
	m.mu.Lock()
	m.projects[p.ID] = p
	m.mu.Unlock()
	m.persist(ctx, p)
	m.logFor(ctx, p).Info("project created", logging.String("title", p.Title), logging.String("channel_id", p.ChannelID))
	return p.Clone(), nil
}

// Get returns a copy of the project with id.
func (m *Manager) Get(id string) (*pipeline.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[strings.TrimSpace(id)]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "", "get project", "project "+id+" not found", nil)
	}
	return p.Clone(), nil
}

// Resolve accepts a full id or a unique prefix of at least 4 characters.
func (m *Manager) Resolve(idOrPrefix string) (*pipeline.Project, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if p, err := m.Get(idOrPrefix); err == nil {
		return p, nil
	}
	if len(idOrPrefix) < 4 {
		return nil, services.Wrap(services.ErrNotFound, "", "resolve project", "project "+idOrPrefix+" not found", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var match *pipeline.Project
	for id, p := range m.projects {
		if !strings.HasPrefix(id, idOrPrefix) {
			continue
		}
		if match != nil {
			return nil, services.Wrap(services.ErrValidation, "", "resolve project", "prefix "+idOrPrefix+" is ambiguous", nil)
		}
		match = p
	}
	if match == nil {
		return nil, services.Wrap(services.ErrNotFound, "", "resolve project", "project "+idOrPrefix+" not found", nil)
	}
	return match.Clone(), nil
}

// List returns copies of all projects, oldest first.
func (m *Manager) List() []*pipeline.Project {
	m.mu.Lock()
	out := make([]*pipeline.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p.Clone())
	}
	m.mu.Unlock()
	slices.SortFunc(out, func(a, b *pipeline.Project) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Delete removes a project.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if _, err := m.Get(id); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.projects, id)
	m.mu.Unlock()
	if m.repo == nil {
		return nil
	}
	if err := m.repo.DeleteProject(context.WithoutCancel(ctx), id); err != nil {
		m.persistFailed(id, "project delete failed", err)
	}
	return nil
}

// Advance stores payload for the next stage and moves the project there.
func (m *Manager) Advance(ctx context.Context, id string, payload pipeline.Payload) (*pipeline.Project, error) {
	p, err := m.update(ctx, id, func(p *pipeline.Project) (*pipeline.Project, error) {
		return pipeline.Advance(p, payload, m.now())
	})
	if err != nil {
		return nil, err
	}
	mode := pipeline.ModeAuto
	if payload != nil {
		mode = payload.PayloadMode()
	}
	metrics.StageAdvanced(string(p.CurrentStage), string(mode))
	m.logFor(ctx, p).Info("project advanced",
		logging.String("stage_label", p.CurrentStage.Label()),
		logging.String("mode", string(mode)),
	)
	return p, nil
}

// SetCurrentData refreshes the current stage's payload.
func (m *Manager) SetCurrentData(ctx context.Context, id string, payload pipeline.Payload) (*pipeline.Project, error) {
	return m.update(ctx, id, func(p *pipeline.Project) (*pipeline.Project, error) {
		return pipeline.SetCurrentData(p, payload, m.now())
	})
}

// ResetStage clears the error and stored flag.
func (m *Manager) ResetStage(ctx context.Context, id string) (*pipeline.Project, error) {
	p, err := m.update(ctx, id, func(p *pipeline.Project) (*pipeline.Project, error) {
		return pipeline.ResetStage(p, m.now()), nil
	})
	if err == nil {
		m.logFor(ctx, p).Info("project stage reset")
	}
	return p, err
}

// MoveStage reassigns the current stage unconditionally.
func (m *Manager) MoveStage(ctx context.Context, id string, target pipeline.Stage) (*pipeline.Project, error) {
	var from pipeline.Stage
	p, err := m.update(ctx, id, func(p *pipeline.Project) (*pipeline.Project, error) {
		from = p.CurrentStage
		return pipeline.MoveStage(p, target, m.now())
	})
	if err != nil {
		return nil, err
	}
	logging.WarnWithContext(m.logFor(ctx, p), "project stage overridden", "stage_override",
		logging.String("from_stage", string(from)),
		logging.String("to_stage", string(target)),
		logging.String(logging.FieldImpact, "stage data may no longer match the current stage"),
		logging.String(logging.FieldErrorHint, "regenerate the current stage if its data is stale"),
	)
	return p, nil
}

// MarkProcessing flags a project as busy.
func (m *Manager) MarkProcessing(ctx context.Context, id string) (*pipeline.Project, error) {
	return m.update(ctx, id, func(p *pipeline.Project) (*pipeline.Project, error) {
		return pipeline.MarkProcessing(p, m.now()), nil
	})
}

// MarkError flags a project as failed.
func (m *Manager) MarkError(ctx context.Context, id, message string) (*pipeline.Project, error) {
	p, err := m.update(ctx, id, func(p *pipeline.Project) (*pipeline.Project, error) {
		return pipeline.MarkError(p, message, m.now()), nil
	})
	if err == nil {
		m.logFor(ctx, p).Info("project marked error", logging.String("error_message", p.ErrorMessage))
	}
	return p, err
}

// MarkReview flags a project for human review.
func (m *Manager) MarkReview(ctx context.Context, id string) (*pipeline.Project, error) {
	return m.update(ctx, id, func(p *pipeline.Project) (*pipeline.Project, error) {
		return pipeline.MarkReview(p, m.now()), nil
	})
}

// update applies fn to the stored project, replaces it in memory, and
// persists the result.
func (m *Manager) update(ctx context.Context, id string, fn func(*pipeline.Project) (*pipeline.Project, error)) (*pipeline.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.projects[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "", "update project", "project "+id+" not found", nil)
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	m.projects[id] = next
	m.persist(ctx, next)
	return next.Clone(), nil
}

func (m *Manager) persist(ctx context.Context, p *pipeline.Project) {
	if m.repo == nil {
		return
	}
	if err := m.repo.SaveProject(context.WithoutCancel(ctx), p); err != nil {
		m.persistFailed(p.ID, "project persistence failed", err)
	}
}

func (m *Manager) persistFailed(id, msg string, err error) {
	logging.WarnWithContext(m.logger, msg, "project_persist_failed",
		logging.String(logging.FieldProjectID, id),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check database permissions and disk space"),
		logging.String(logging.FieldImpact, "project state will not survive a restart"),
	)
}

func (m *Manager) logFor(ctx context.Context, p *pipeline.Project) *slog.Logger {
	ctx = services.WithProjectID(ctx, p.ID)
	ctx = services.WithStage(ctx, string(p.CurrentStage))
	return logging.WithContext(ctx, m.logger)
}
