package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"shortforge/internal/config"
	"shortforge/internal/deps"
	"shortforge/internal/jobs"
	"shortforge/internal/logging"
	"shortforge/internal/pipeline"
	"shortforge/internal/projects"
	"shortforge/internal/services"
	"shortforge/internal/store"
)

// ErrAlreadyRunning reports that another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another shortforge daemon instance is already running")

// Daemon owns the job engine and HTTP API and enforces single-instance execution.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *store.Store
	engine       *jobs.Engine
	dependencies []deps.Status

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	mu      sync.Mutex
	running atomic.Bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	QueueLength  int
	Projects     int
	Jobs         []jobs.Job
	Dependencies []deps.Status
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithDependencies sets the external binary snapshot reported by Status.
func WithDependencies(statuses []deps.Status) Option {
	return func(d *Daemon) { d.dependencies = statuses }
}

// New constructs a daemon. The engine must persist to st.
func New(cfg *config.Config, st *store.Store, engine *jobs.Engine, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || st == nil || engine == nil {
		return nil, errors.New("daemon requires config, store, and job engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		engine:   engine,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the lock, restores persisted jobs, and starts the API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if d.stopped {
		return errors.New("daemon was stopped; construct a new one")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	saved, err := d.store.ListJobs(d.ctx)
	if err != nil {
		d.abortStartLocked()
		return fmt.Errorf("load jobs: %w", err)
	}
	requeued := d.engine.Restore(d.ctx, saved)

	if err := d.api.start(d.ctx); err != nil {
		d.abortStartLocked()
		return err
	}

	d.running.Store(true)
	d.logger.Info("shortforge daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("jobs_loaded", len(saved)),
		logging.Int("jobs_requeued", requeued),
	)
	return nil
}

func (d *Daemon) abortStartLocked() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop shuts down the API and engine and releases the lock. A stopped daemon
// cannot be started again.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.engine.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
			logging.Error(err),
		)
	}
	d.ctx = nil
	d.stopped = true
	d.running.Store(false)
	d.logger.Info("shortforge daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Addr returns the API listen address, or "" when the API is disabled.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		QueueLength:  d.engine.QueueLength(),
		Jobs:         d.engine.Jobs(),
		Dependencies: d.dependencies,
	}
	if list, err := d.store.ListProjects(ctx); err == nil {
		status.Projects = len(list)
	}
	return status
}

// Projects lists projects from the store. The CLI writes projects directly, so
// the daemon never caches them.
func (d *Daemon) Projects(ctx context.Context) ([]*pipeline.Project, error) {
	return d.store.ListProjects(ctx)
}

// Project resolves a project by id or unique prefix.
func (d *Daemon) Project(ctx context.Context, idOrPrefix string) (*pipeline.Project, error) {
	manager := projects.NewManager(d.store, d.logger)
	if err := manager.Load(ctx); err != nil {
		return nil, err
	}
	return manager.Resolve(idOrPrefix)
}

// Jobs returns every job the engine knows.
func (d *Daemon) Jobs() []jobs.Job {
	return d.engine.Jobs()
}

// Job returns one job.
func (d *Daemon) Job(id string) (jobs.Job, error) {
	job, ok := d.engine.Get(id)
	if !ok {
		return jobs.Job{}, services.Wrap(services.ErrNotFound, "", "get job", "job "+id+" not found", nil)
	}
	return job, nil
}

// SubmitJob queues a new job.
func (d *Daemon) SubmitJob(ctx context.Context, job jobs.Job) (jobs.Job, error) {
	return d.engine.Enqueue(ctx, job)
}

// StartRender validates that id awaits review and renders it in the background.
func (d *Daemon) StartRender(id string) (jobs.Job, error) {
	job, err := d.Job(id)
	if err != nil {
		return jobs.Job{}, err
	}
	if job.Status != jobs.StatusReviewPending {
		return jobs.Job{}, services.Wrap(services.ErrValidation, "", "render job", fmt.Sprintf("job is %s, not review_pending", job.Status), nil)
	}
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()
	if ctx == nil {
		return jobs.Job{}, errors.New("daemon is not running")
	}
	logger := logging.WithContext(services.WithJobID(ctx, id), d.logger)
	err = d.engine.RenderAsync(id, func(_ jobs.Job, err error) {
		if err != nil {
			logging.WarnWithContext(logger, "render failed", "job_render_failed",
				logging.String(logging.FieldImpact, "job marked failed; submit it again to retry"),
				logging.Error(err),
			)
		}
	})
	if err != nil {
		return jobs.Job{}, err
	}
	return job, nil
}
