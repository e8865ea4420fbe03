package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"shortforge/internal/api"
	"shortforge/internal/config"
	"shortforge/internal/daemon"
	"shortforge/internal/jobs"
	"shortforge/internal/logging"
	"shortforge/internal/projects"
	"shortforge/internal/store"
	"shortforge/internal/testsupport"
)

type fixture struct {
	cfg      *config.Config
	store    *store.Store
	engine   *jobs.Engine
	renderer *testsupport.FakeRenderer
	daemon   *daemon.Daemon
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	renderer := &testsupport.FakeRenderer{}
	engine := jobs.NewEngine(jobs.Providers{
		Text: testsupport.TextFunc(func(context.Context, string, string, string) (string, error) {
			return "Octopuses have three hearts. They taste with their arms. Their blood is blue.", nil
		}),
		Images: testsupport.ImageFunc(func(context.Context, string, int, int, int) ([]string, error) {
			return []string{"/img/1.png"}, nil
		}),
		Voice: testsupport.VoiceFunc(func(context.Context, string, string) ([]byte, error) {
			return []byte("mp3"), nil
		}),
		Renderer: renderer,
	}, func() *config.Config { return cfg }, cfg.Profile, logging.NewNop(), jobs.WithRepository(st))

	d, err := daemon.New(cfg, st, engine, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return &fixture{cfg: cfg, store: st, engine: engine, renderer: renderer, daemon: d}
}

func (f *fixture) start(t *testing.T) string {
	t.Helper()
	if err := f.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return "http://" + f.daemon.Addr()
}

func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestDaemonStartStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.start(t)

	status := f.daemon.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != f.cfg.LockPath() || status.DatabasePath != f.cfg.DatabasePath() {
		t.Fatalf("unexpected paths: %+v", status)
	}
	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	f.daemon.Stop()
	if f.daemon.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("a stopped daemon must not restart")
	}
}

func TestSecondInstanceIsLockedOut(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	other := jobs.NewEngine(jobs.Providers{}, func() *config.Config { return f.cfg }, nil, logging.NewNop())
	t.Cleanup(other.Close)
	second, err := daemon.New(f.cfg, f.store, other, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStartRequeuesInterruptedJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := time.Now().Add(-time.Hour)
	interrupted := jobs.Job{
		ID:        "job-interrupted",
		Theme:     "octopus",
		Status:    jobs.StatusProcessing,
		Step:      jobs.StepImages,
		Progress:  40,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := f.store.SaveJob(ctx, interrupted); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	f.start(t)
	f.engine.Wait()

	job, err := f.store.GetJob(ctx, interrupted.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != jobs.StatusReviewPending {
		t.Fatalf("status = %s, want review_pending (error %q)", job.Status, job.Error)
	}
	if !strings.Contains(job.Logs[0].Message, "Interrupted") {
		t.Fatalf("expected interruption log first, got %+v", job.Logs[0])
	}
}

func TestAPISubmitReviewAndRender(t *testing.T) {
	f := newFixture(t)
	base := f.start(t)

	var submitted api.JobResponse
	if code := doJSON(t, http.MethodPost, base+"/api/jobs", "", api.SubmitJobRequest{Theme: "Octopus hearts", ChannelID: "default"}, &submitted); code != http.StatusAccepted {
		t.Fatalf("submit status = %d", code)
	}
	if submitted.Item.ID == "" || submitted.Item.Status != string(jobs.StatusQueued) {
		t.Fatalf("unexpected submit response %+v", submitted.Item)
	}
	f.engine.Wait()

	var got api.JobResponse
	if code := doJSON(t, http.MethodGet, base+"/api/jobs/"+submitted.Item.ID, "", nil, &got); code != http.StatusOK {
		t.Fatalf("get status = %d", code)
	}
	if got.Item.Status != string(jobs.StatusReviewPending) || got.Item.Progress != jobs.ProgressReview {
		t.Fatalf("unexpected job %+v", got.Item)
	}
	if len(got.Item.Storyboard) != f.cfg.Jobs.Segments {
		t.Fatalf("storyboard = %d entries", len(got.Item.Storyboard))
	}

	if code := doJSON(t, http.MethodPost, base+"/api/jobs/"+submitted.Item.ID+"/render", "", nil, nil); code != http.StatusAccepted {
		t.Fatalf("render status = %d", code)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		var polled api.JobResponse
		doJSON(t, http.MethodGet, base+"/api/jobs/"+submitted.Item.ID, "", nil, &polled)
		if polled.Item.Status == string(jobs.StatusCompleted) {
			if polled.Item.VideoURL == "" || polled.Item.Progress != jobs.ProgressCompleted {
				t.Fatalf("unexpected completed job %+v", polled.Item)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed, last status %s", polled.Item.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if f.renderer.RenderCount() != 1 {
		t.Fatalf("render calls = %d", f.renderer.RenderCount())
	}

	var list api.JobListResponse
	doJSON(t, http.MethodGet, base+"/api/jobs?status=completed", "", nil, &list)
	if len(list.Items) != 1 {
		t.Fatalf("completed jobs = %d", len(list.Items))
	}
	var status api.DaemonStatus
	doJSON(t, http.MethodGet, base+"/api/status", "", nil, &status)
	if !status.Running || status.JobCounts["completed"] != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAPIErrors(t *testing.T) {
	f := newFixture(t)
	base := f.start(t)

	var errResp api.ErrorResponse
	if code := doJSON(t, http.MethodPost, base+"/api/jobs", "", api.SubmitJobRequest{}, &errResp); code != http.StatusBadRequest {
		t.Fatalf("empty theme status = %d", code)
	}
	if !strings.Contains(errResp.Error, "theme") {
		t.Fatalf("error = %q", errResp.Error)
	}
	if code := doJSON(t, http.MethodGet, base+"/api/jobs/missing", "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("missing job status = %d", code)
	}
	if code := doJSON(t, http.MethodPost, base+"/api/jobs/missing/render", "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("missing render status = %d", code)
	}
	if code := doJSON(t, http.MethodGet, base+"/api/projects/nope", "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("missing project status = %d", code)
	}
}

func TestAPIProjectsReadThroughStore(t *testing.T) {
	f := newFixture(t)
	base := f.start(t)

	// Projects created after the daemon started must still be visible.
	manager := projects.NewManager(f.store, logging.NewNop())
	created, err := manager.Create(context.Background(), "default", "Deep sea facts")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var list api.ProjectListResponse
	if code := doJSON(t, http.MethodGet, base+"/api/projects", "", nil, &list); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if len(list.Items) != 1 || list.Items[0].Status != "waiting" {
		t.Fatalf("unexpected projects %+v", list.Items)
	}

	var one api.ProjectResponse
	if code := doJSON(t, http.MethodGet, base+"/api/projects/"+created.ID[:8], "", nil, &one); code != http.StatusOK {
		t.Fatalf("prefix lookup status = %d", code)
	}
	if one.Item.ID != created.ID || one.Item.Stage != "reference" {
		t.Fatalf("unexpected project %+v", one.Item)
	}

	var filtered api.ProjectListResponse
	doJSON(t, http.MethodGet, base+"/api/projects?stage=script", "", nil, &filtered)
	if len(filtered.Items) != 0 {
		t.Fatalf("stage filter returned %d", len(filtered.Items))
	}
}

func TestAPIRequiresToken(t *testing.T) {
	f := newFixture(t, testsupport.WithAPIToken("s3cret"))
	base := f.start(t)

	if code := doJSON(t, http.MethodGet, base+"/api/status", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", code)
	}
	if code := doJSON(t, http.MethodGet, base+"/api/status", "wrong", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", code)
	}
	if code := doJSON(t, http.MethodGet, base+"/api/status", "s3cret", nil, nil); code != http.StatusOK {
		t.Fatalf("valid token status = %d", code)
	}

	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}
