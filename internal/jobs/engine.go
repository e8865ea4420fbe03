package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shortforge/internal/config"
	"shortforge/internal/logging"
	"shortforge/internal/notifications"
	"shortforge/internal/providers"
	"shortforge/internal/services"
)

// Repository persists job snapshots.
type Repository interface {
	SaveJob(ctx context.Context, job Job) error
}

// Observer receives a snapshot after every job mutation.
type Observer interface {
	OnJobUpdate(job Job)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Job)

func (f ObserverFunc) OnJobUpdate(job Job) { f(job) }

// ConfigSource returns the current generation configuration.
type ConfigSource func() *config.Config

// ProfileLookup resolves a channel profile by id.
type ProfileLookup func(channelID string) (config.Profile, bool)

// Providers are the generation backends a job calls.
type Providers struct {
	Text     providers.TextGenerator
	Images   providers.ImageGenerator
	Voice    providers.VoiceSynthesizer
	Renderer providers.Renderer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRepository persists every mutation.
func WithRepository(repo Repository) Option {
	return func(e *Engine) { e.repo = repo }
}

// WithNotifier publishes review, completion, and failure events.
func WithNotifier(notifier notifications.Service) Option {
	return func(e *Engine) { e.notifier = notifier }
}

// WithObserver registers an update observer.
func WithObserver(observer Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, observer) }
}

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the single-worker job executor.
type Engine struct {
	providers Providers
	config    ConfigSource
	profiles  ProfileLookup
	repo      Repository
	notifier  notifications.Service
	observers []Observer
	logger    *slog.Logger
	now       func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]*Job
	queue   []string
	running bool
	closed  bool
	wg      sync.WaitGroup

	// exec serializes generation and rendering: one job runs at a time.
	exec sync.Mutex
}

// NewEngine constructs an idle engine. Close stops in-flight provider calls.
func NewEngine(p Providers, cfg ConfigSource, profiles ProfileLookup, logger *slog.Logger, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		providers: p,
		config:    cfg,
		profiles:  profiles,
		logger:    logging.NewComponentLogger(logger, "jobs"),
		now:       time.Now,
		baseCtx:   ctx,
		cancel:    cancel,
		jobs:      make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Close cancels the worker's context and waits for it and any background
// render to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()
	e.wg.Wait()
}

// Enqueue registers job as queued and starts the worker when idle.
func (e *Engine) Enqueue(ctx context.Context, job Job) (Job, error) {
	job, err := e.register(job, StatusQueued, "Queued")
	if err != nil {
		return Job{}, err
	}
	e.persist(ctx, job)
	e.mu.Lock()
	e.queue = append(e.queue, job.ID)
	e.startWorkerLocked()
	e.mu.Unlock()
	e.logger.Info("job queued", logging.String(logging.FieldJobID, job.ID), logging.String("theme", job.Theme))
	return job, nil
}

// Save registers job as pending without queueing it.
func (e *Engine) Save(ctx context.Context, job Job) (Job, error) {
	job, err := e.register(job, StatusPending, "Saved")
	if err != nil {
		return Job{}, err
	}
	e.persist(ctx, job)
	return job, nil
}

// Start queues a pending job.
func (e *Engine) Start(ctx context.Context, id string) (Job, error) {
	snapshot, err := e.mutate(id, func(j *Job) error {
		if j.Status != StatusPending {
			return services.Wrap(services.ErrValidation, "jobs", "start", fmt.Sprintf("job is %s, not pending", j.Status), nil)
		}
		j.Status = StatusQueued
		j.appendLog(e.now(), LevelInfo, "Queued")
		return nil
	})
	if err != nil {
		return Job{}, err
	}
	e.publish(ctx, snapshot)
	e.mu.Lock()
	e.queue = append(e.queue, id)
	e.startWorkerLocked()
	e.mu.Unlock()
	return snapshot, nil
}

// Restore loads persisted jobs. Queued jobs and jobs interrupted mid-run are
// queued again in creation order; the rest are kept for listing. It returns
// the number of jobs queued.
func (e *Engine) Restore(ctx context.Context, saved []Job) int {
	saved = slices.Clone(saved)
	slices.SortStableFunc(saved, func(a, b Job) int { return a.CreatedAt.Compare(b.CreatedAt) })

	var requeued []Job
	e.mu.Lock()
	for _, job := range saved {
		if _, exists := e.jobs[job.ID]; exists || strings.TrimSpace(job.ID) == "" {
			continue
		}
		job := job.Clone()
		switch job.Status {
		case StatusProcessing:
			job.Status = StatusQueued
			job.Progress = 0
			job.Result = Result{}
			job.appendLog(e.now(), LevelWarn, "Interrupted by shutdown; requeued")
			fallthrough
		case StatusQueued:
			e.queue = append(e.queue, job.ID)
			requeued = append(requeued, job)
		}
		e.jobs[job.ID] = &job
	}
	if len(requeued) > 0 {
		e.startWorkerLocked()
	}
	e.mu.Unlock()

	for _, job := range requeued {
		e.publish(ctx, job.Clone())
	}
	if len(requeued) > 0 {
		e.logger.Info("restored queued jobs", logging.Int("count", len(requeued)))
	}
	return len(requeued)
}

// Wait blocks until the worker and background renders are idle.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Get returns a snapshot of job id.
func (e *Engine) Get(id string) (Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.Clone(), true
}

// Jobs returns snapshots of every known job, oldest first.
func (e *Engine) Jobs() []Job {
	e.mu.Lock()
	out := make([]Job, 0, len(e.jobs))
	for _, job := range e.jobs {
		out = append(out, job.Clone())
	}
	e.mu.Unlock()
	slices.SortStableFunc(out, func(a, b Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// QueueLength returns the number of jobs waiting for the worker.
func (e *Engine) QueueLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) register(job Job, status Status, message string) (Job, error) {
	job.Theme = strings.TrimSpace(job.Theme)
	if job.Theme == "" && strings.TrimSpace(job.ReferenceScript) == "" {
		return Job{}, services.Wrap(services.ErrValidation, "jobs", "register", "theme or reference script required", nil)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := e.now()
	job.Status = status
	job.Step = ""
	job.Progress = 0
	job.Error = ""
	job.Result = Result{}
	job.Logs = nil
	job.CreatedAt = now
	job.UpdatedAt = now
	job.appendLog(now, LevelInfo, message)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.jobs[job.ID]; exists {
		return Job{}, services.Wrap(services.ErrValidation, "jobs", "register", "job id already exists", nil)
	}
	stored := job.Clone()
	e.jobs[job.ID] = &stored
	return job.Clone(), nil
}

func (e *Engine) startWorkerLocked() {
	if e.running || e.closed {
		return
	}
	e.running = true
	e.wg.Add(1)
	go e.work()
}

func (e *Engine) work() {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		if len(e.queue) == 0 || e.baseCtx.Err() != nil {
			e.running = false
			e.mu.Unlock()
			return
		}
		id := e.queue[0]
		e.queue = e.queue[1:]
		job, ok := e.jobs[id]
		var snapshot Job
		if ok {
			snapshot = job.Clone()
		}
		e.mu.Unlock()

		if !ok || snapshot.Status != StatusQueued {
			continue
		}
		e.ProcessJob(e.baseCtx, snapshot)
	}
}

// mutate applies fn to the stored job under the lock, bumps UpdatedAt, and
// returns the resulting snapshot.
func (e *Engine) mutate(id string, fn func(*Job) error) (Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[id]
	if !ok {
		return Job{}, services.Wrap(services.ErrNotFound, "jobs", "lookup", "job "+id+" not found", nil)
	}
	if err := fn(job); err != nil {
		return Job{}, err
	}
	job.UpdatedAt = e.now()
	return job.Clone(), nil
}

// update mutates, persists, and notifies observers.
func (e *Engine) update(ctx context.Context, id string, fn func(*Job)) Job {
	snapshot, err := e.mutate(id, func(j *Job) error {
		fn(j)
		return nil
	})
	if err != nil {
		e.logger.Debug("job update skipped", logging.String(logging.FieldJobID, id), logging.Error(err))
		return Job{}
	}
	e.publish(ctx, snapshot)
	return snapshot
}

func (e *Engine) publish(ctx context.Context, snapshot Job) {
	e.persist(ctx, snapshot)
	for _, observer := range e.observers {
		observer.OnJobUpdate(snapshot.Clone())
	}
}

func (e *Engine) persist(ctx context.Context, job Job) {
	if e.repo == nil {
		return
	}
	if err := e.repo.SaveJob(context.WithoutCancel(ctx), job); err != nil {
		logging.WarnWithContext(e.logger, "job persistence failed", "job_persist_failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database permissions and disk space"),
			logging.String(logging.FieldImpact, "job state will not survive a restart"),
		)
	}
}

func (e *Engine) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		e.logger.Debug("job notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func (e *Engine) currentConfig() *config.Config {
	if e.config != nil {
		if cfg := e.config(); cfg != nil {
			return cfg
		}
	}
	cfg := config.Default()
	return &cfg
}

func (e *Engine) profile(channelID string) config.Profile {
	if e.profiles != nil {
		if profile, ok := e.profiles(channelID); ok {
			return profile
		}
	}
	cfg := e.currentConfig()
	if profile, ok := cfg.Profile(channelID); ok {
		return profile
	}
	if len(cfg.Profiles) > 0 {
		return cfg.Profiles[0]
	}
	return config.Profile{ID: "default", Language: "en"}
}

func (j *Job) appendLog(now time.Time, level LogLevel, message string) {
	j.Logs = append(j.Logs, LogEntry{Time: now, Level: level, Step: j.Step, Message: message})
}
