package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shortforge/internal/logging"
	"shortforge/internal/metrics"
	"shortforge/internal/notifications"
	"shortforge/internal/pipeline"
	"shortforge/internal/projects"
	"shortforge/internal/providers"
	"shortforge/internal/providers/ytdlp"
	"shortforge/internal/services"
)

// ErrMixedStages reports a manual batch whose projects are at different stages.
var ErrMixedStages = errors.New("projects are at different stages")

// Generator produces the payload for a target stage.
type Generator interface {
	Generate(ctx context.Context, p *pipeline.Project, target pipeline.Stage) (pipeline.Payload, error)
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier publishes a batch summary on completion.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *Orchestrator) { o.notifier = notifier }
}

// WithClock overrides the report time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator runs batch operations over managed projects.
type Orchestrator struct {
	projects    *projects.Manager
	generator   Generator
	transcripts providers.TranscriptFetcher
	notifier    notifications.Service
	logger      *slog.Logger
	now         func() time.Time

	// Selection holds the projects picked for the next operation. Operations
	// called with no ids use it.
	Selection *Selection
}

// New constructs an orchestrator.
func New(manager *projects.Manager, generator Generator, transcripts providers.TranscriptFetcher, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		projects:    manager,
		generator:   generator,
		transcripts: transcripts,
		logger:      logging.NewComponentLogger(logger, "batch"),
		now:         time.Now,
		Selection:   &Selection{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Select adds projects to the selection by id or id prefix, in order. It
// reports how many times a stage change replaced the selection.
func (o *Orchestrator) Select(ids ...string) (int, error) {
	replaced := 0
	for _, id := range ids {
		p, err := o.projects.Resolve(id)
		if err != nil {
			return replaced, err
		}
		if o.Selection.Add(p) {
			replaced++
		}
	}
	return replaced, nil
}

// AutoAdvance advances each project with its stage's generator. Projects at
// the reference stage without a transcript fetch one; projects with a
// transcript are handed to review.
func (o *Orchestrator) AutoAdvance(ctx context.Context, ids []string) Report {
	return o.run(ctx, "auto", ids, o.autoOne)
}

// ApproveReferences accepts reviewed references and generates their scripts.
func (o *Orchestrator) ApproveReferences(ctx context.Context, ids []string) Report {
	return o.run(ctx, "approve", ids, o.approveOne)
}

// ManualAdvance advances every project with a payload built from input. All
// projects must share a stage; otherwise ErrMixedStages is returned and
// nothing changes. The selection is cleared either way.
func (o *Orchestrator) ManualAdvance(ctx context.Context, ids []string, input pipeline.ManualInput) (Report, error) {
	ids = o.targets(ids)
	defer o.Selection.Clear()
	var stage pipeline.Stage
	for i, id := range ids {
		p, err := o.projects.Resolve(id)
		if err != nil {
			return Report{}, err
		}
		if i > 0 && p.CurrentStage != stage {
			return Report{}, fmt.Errorf("%w: %s is at %s, expected %s", ErrMixedStages, p.ID, p.CurrentStage, stage)
		}
		stage = p.CurrentStage
	}
	if len(ids) == 0 {
		return Report{}, services.Wrap(services.ErrValidation, "", "manual advance", "no projects selected", nil)
	}
	next, ok := stage.Next()
	if !ok {
		return Report{}, fmt.Errorf("manual advance from %s: %w", stage, pipeline.ErrTerminalStage)
	}
	entry, ok := pipeline.Lookup(next)
	if !ok {
		return Report{}, fmt.Errorf("manual advance: no registry entry for %s", next)
	}
	payload, err := entry.FromManual(input)
	if err != nil {
		return Report{}, err
	}

	report := o.run(ctx, "manual", ids, func(ctx context.Context, p *pipeline.Project) Result {
		return o.advance(ctx, p, payload)
	})
	return report, nil
}

type step func(ctx context.Context, p *pipeline.Project) Result

func (o *Orchestrator) targets(ids []string) []string {
	if len(ids) == 0 {
		return o.Selection.IDs()
	}
	return ids
}

func (o *Orchestrator) run(ctx context.Context, operation string, ids []string, fn step) Report {
	ids = o.targets(ids)
	defer o.Selection.Clear()

	report := Report{Operation: operation, Started: o.now()}
	logger := o.logger.With(logging.String("operation", operation))
	logger.Info("batch started", logging.Int("projects", len(ids)))

	for _, id := range ids {
		var res Result
		p, err := o.projects.Resolve(id)
		switch {
		case err != nil:
			res = Result{ProjectID: id, Outcome: OutcomeSkipped, Message: err.Error()}
		case ctx.Err() != nil:
			res = Result{ProjectID: p.ID, Title: p.Title, From: p.CurrentStage, Outcome: OutcomeSkipped, Message: "batch cancelled"}
		case pipeline.EffectiveStatus(p) == pipeline.StatusProcessing:
			res = Result{ProjectID: p.ID, Title: p.Title, From: p.CurrentStage, Outcome: OutcomeSkipped, Message: "already processing"}
		default:
			res = fn(services.WithProjectID(ctx, p.ID), p)
			res.ProjectID, res.Title, res.From = p.ID, p.Title, p.CurrentStage
		}
		metrics.BatchOutcome(operation, string(res.Outcome))
		report.Results = append(report.Results, res)
	}
	report.Finished = o.now()

	logger.Info("batch finished",
		logging.Int(string(OutcomeAdvanced), report.Count(OutcomeAdvanced)),
		logging.Int(string(OutcomeReview), report.Count(OutcomeReview)),
		logging.Int(string(OutcomeError), report.Count(OutcomeError)),
		logging.Int(string(OutcomeSkipped), report.Count(OutcomeSkipped)),
		logging.Duration("duration", report.Duration()),
	)
	if o.notifier != nil && len(report.Results) > 0 {
		if err := o.notifier.Publish(context.WithoutCancel(ctx), notifications.EventBatchCompleted, notifications.Payload{
			"operation": operation,
			"advanced":  report.Count(OutcomeAdvanced),
			"review":    report.Count(OutcomeReview),
			"failed":    report.Count(OutcomeError),
		}); err != nil {
			logger.Debug("batch notification failed", logging.Error(err))
		}
	}
	return report
}

func (o *Orchestrator) autoOne(ctx context.Context, p *pipeline.Project) Result {
	if p.CurrentStage == pipeline.StageReference {
		return o.reference(ctx, p)
	}
	next, ok := p.CurrentStage.Next()
	if !ok {
		return Result{Outcome: OutcomeSkipped, Message: "already at the final stage"}
	}
	return o.generate(ctx, p, next)
}

func (o *Orchestrator) approveOne(ctx context.Context, p *pipeline.Project) Result {
	if p.CurrentStage != pipeline.StageReference {
		return Result{Outcome: OutcomeSkipped, Message: "not at the reference stage"}
	}
	if ref, ok := p.Reference(); !ok || !ref.HasContent() {
		return Result{Outcome: OutcomeSkipped, Message: "reference has no transcript to approve"}
	}
	return o.generate(ctx, p, pipeline.StageScript)
}

func (o *Orchestrator) reference(ctx context.Context, p *pipeline.Project) Result {
	ref, ok := p.Reference()
	if ok && ref.HasContent() {
		if pipeline.EffectiveStatus(p) == pipeline.StatusReview {
			return Result{Outcome: OutcomeSkipped, Message: "awaiting approval"}
		}
		return o.handToReview(ctx, p.ID)
	}
	if !ok || (strings.TrimSpace(ref.VideoID) == "" && strings.TrimSpace(ref.URL) == "") {
		return o.failed(ctx, p.ID, services.Wrap(services.ErrValidation, string(pipeline.StageReference), "fetch transcript", "no reference video set", nil))
	}
	if o.transcripts == nil {
		return o.failed(ctx, p.ID, services.Wrap(services.ErrConfiguration, string(pipeline.StageReference), "fetch transcript", "transcript provider not configured", nil))
	}
	source := ref.VideoID
	if strings.TrimSpace(source) == "" {
		source = ref.URL
	}
	videoID, err := ytdlp.ParseVideoID(source)
	if err != nil {
		return o.failed(ctx, p.ID, services.Wrap(services.ErrValidation, string(pipeline.StageReference), "fetch transcript", "reference is not a YouTube video", err))
	}
	if _, err := o.projects.MarkProcessing(ctx, p.ID); err != nil {
		return Result{Outcome: OutcomeError, Message: err.Error()}
	}
	transcript, err := o.transcripts.Fetch(ctx, videoID)
	if err != nil {
		return o.failed(ctx, p.ID, err)
	}
	filled := &pipeline.ReferencePayload{
		Mode:            ref.Mode,
		VideoID:         firstNonEmpty(transcript.VideoID, videoID),
		URL:             firstNonEmpty(transcript.URL, ref.URL, ytdlp.WatchURL(videoID)),
		Title:           firstNonEmpty(transcript.Title, ref.Title),
		Channel:         firstNonEmpty(transcript.Channel, ref.Channel),
		Language:        firstNonEmpty(transcript.Language, ref.Language),
		Transcript:      transcript.Text,
		DurationSeconds: transcript.DurationSeconds,
	}
	if filled.Mode == "" {
		filled.Mode = pipeline.ModeAuto
	}
	if _, err := o.projects.SetCurrentData(ctx, p.ID, filled); err != nil {
		return o.failed(ctx, p.ID, err)
	}
	return o.handToReview(ctx, p.ID)
}

func (o *Orchestrator) handToReview(ctx context.Context, id string) Result {
	if _, err := o.projects.MarkReview(ctx, id); err != nil {
		return Result{Outcome: OutcomeError, Message: err.Error()}
	}
	return Result{To: pipeline.StageReference, Outcome: OutcomeReview, Message: "transcript ready for review"}
}

func (o *Orchestrator) generate(ctx context.Context, p *pipeline.Project, target pipeline.Stage) Result {
	if o.generator == nil {
		return o.failed(ctx, p.ID, services.Wrap(services.ErrConfiguration, string(target), "generate", "no stage generator configured", nil))
	}
	if _, err := o.projects.MarkProcessing(ctx, p.ID); err != nil {
		return Result{Outcome: OutcomeError, Message: err.Error()}
	}
	payload, err := o.generator.Generate(services.WithStage(ctx, string(target)), p, target)
	if err != nil {
		return o.failed(ctx, p.ID, err)
	}
	return o.advance(ctx, p, payload)
}

func (o *Orchestrator) advance(ctx context.Context, p *pipeline.Project, payload pipeline.Payload) Result {
	next, err := o.projects.Advance(ctx, p.ID, payload)
	if err != nil {
		return o.failed(ctx, p.ID, err)
	}
	return Result{To: next.CurrentStage, Outcome: OutcomeAdvanced}
}

// failed records err on the project and returns the error result.
func (o *Orchestrator) failed(ctx context.Context, id string, err error) Result {
	message := err.Error()
	if details := services.Details(err); details.Message != "" && details.Kind != services.KindUnknown {
		message = details.Message
		if details.Cause != nil {
			message += ": " + details.Cause.Error()
		}
	}
	logging.WarnWithContext(logging.WithContext(ctx, o.logger), "project failed in batch", "batch_project_failed",
		append(logging.ErrorDetails(err),
			logging.String(logging.FieldImpact, "project left in error state; the rest of the batch continues"),
		)...,
	)
	if _, markErr := o.projects.MarkError(ctx, id, message); markErr != nil {
		message += " (could not record error: " + markErr.Error() + ")"
	}
	return Result{Outcome: OutcomeError, Message: message}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
