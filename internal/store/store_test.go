package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"shortforge/internal/jobs"
	"shortforge/internal/pipeline"
	"shortforge/internal/services"
	"shortforge/internal/store"
	"shortforge/internal/testsupport"
)

func TestProjectRoundTripKeepsStageVariants(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	p := pipeline.NewProject("p-1", "default", "Cats", now)
	p, err := pipeline.SetCurrentData(p, &pipeline.ReferencePayload{Mode: pipeline.ModeAuto, VideoID: "abc", Transcript: "cats"}, now)
	if err != nil {
		t.Fatal(err)
	}
	p, err = pipeline.Advance(p, pipeline.NewScriptPayload("Cats nap.", pipeline.ModeManual), now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	p = pipeline.MarkError(p, "voice failed", now.Add(2*time.Minute))

	if err := s.SaveProject(ctx, p); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	got, err := s.GetProject(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.CurrentStage != pipeline.StageScript || got.Status != pipeline.StatusError || got.ErrorMessage != "voice failed" {
		t.Fatalf("unexpected project %+v", got)
	}
	script, ok := got.Script()
	if !ok || script.Text != "Cats nap." || script.Mode != pipeline.ModeManual {
		t.Fatalf("unexpected script payload %+v", got.StageData[pipeline.StageScript])
	}
	if !got.UpdatedAt.Equal(now.Add(2 * time.Minute)) {
		t.Fatalf("updated_at = %v", got.UpdatedAt)
	}
	if err := pipeline.CheckPrefix(got); err != nil {
		t.Fatalf("prefix invariant after load: %v", err)
	}
}

func TestSaveProjectRejectsDerivedStatus(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	p := pipeline.NewProject("p-2", "", "", time.Now())
	p.Status = pipeline.StatusReady
	err := s.SaveProject(context.Background(), p)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := s.GetProject(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndDeleteProjects(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.SaveProject(ctx, pipeline.NewProject(id, "", id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(list) != 3 || list[0].ID != "c" {
		t.Fatalf("unexpected order %v", []string{list[0].ID})
	}
	if err := s.DeleteProject(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	list, _ = s.ListProjects(ctx)
	if len(list) != 2 {
		t.Fatalf("expected 2 projects after delete, got %d", len(list))
	}
}

func TestJobRoundTripAndStatusFilter(t *testing.T) {
	s := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	queued := jobs.Job{ID: "j1", Theme: "cats", Status: jobs.StatusQueued, CreatedAt: now, UpdatedAt: now}
	review := jobs.Job{
		ID: "j2", Theme: "dogs", Status: jobs.StatusReviewPending, Step: jobs.StepReview, Progress: 90,
		Logs:      []jobs.LogEntry{{Time: now, Level: jobs.LevelWarn, Step: jobs.StepVoice, Message: "voice skipped"}},
		Result:    jobs.Result{Script: "Dogs run.", Storyboard: []jobs.Segment{{Text: "Dogs run.", VisualPrompt: "dog"}}},
		CreatedAt: now.Add(time.Minute), UpdatedAt: now.Add(time.Minute),
	}
	for _, job := range []jobs.Job{queued, review} {
		if err := s.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}

	got, err := s.GetJob(ctx, "j2")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Progress != 90 || got.WarningCount() != 1 || len(got.Result.Storyboard) != 1 {
		t.Fatalf("unexpected job %+v", got)
	}

	pending, err := s.ListJobs(ctx, jobs.StatusQueued, jobs.StatusProcessing)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "j1" {
		t.Fatalf("unexpected filtered jobs %+v", pending)
	}
	all, _ := s.ListJobs(ctx)
	if len(all) != 2 || all[0].ID != "j1" {
		t.Fatalf("unexpected job list %+v", all)
	}

	queued.Status = jobs.StatusCompleted
	if err := s.SaveJob(ctx, queued); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.GetJob(ctx, "j1"); got.Status != jobs.StatusCompleted {
		t.Fatalf("upsert did not update status: %s", got.Status)
	}
	if _, err := s.GetJob(ctx, "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReopenKeepsSchemaAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s, err := store.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveProject(context.Background(), pipeline.NewProject("x", "", "", time.Now())); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = store.OpenPath(filepath.Join(cfg.Paths.DataDir, "shortforge.db"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	health := s.CheckHealth(context.Background())
	if !health.IntegrityOK || health.SchemaVersion != 1 || health.Projects != 1 || health.Error != "" {
		t.Fatalf("unexpected health %+v", health)
	}
}
