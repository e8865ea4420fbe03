package main

import (
	"context"
	"errors"
	"testing"

	"shortforge/internal/api"
	"shortforge/internal/config"
	"shortforge/internal/daemon"
	"shortforge/internal/daemonctl"
	"shortforge/internal/jobs"
	"shortforge/internal/logging"
	"shortforge/internal/testsupport"
)

// startTestDaemon runs a daemon with fake providers and returns a config
// file pointing the CLI at it.
func startTestDaemon(t *testing.T) (string, *testsupport.FakeRenderer) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
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
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	cfg.API.Bind = d.Addr()
	return writeTestConfig(t, cfg), renderer
}

func TestJobAddWaitListShowRender(t *testing.T) {
	configPath, renderer := startTestDaemon(t)

	var added api.Job
	decodeJSON(t, mustRunCLI(t, configPath, "job", "add", "Octopus", "hearts", "--wait", "--json"), &added)
	if added.Status != string(jobs.StatusReviewPending) || added.Theme != "Octopus hearts" || added.ChannelID != "default" {
		t.Fatalf("unexpected job after wait %+v", added)
	}

	var list api.JobListResponse
	decodeJSON(t, mustRunCLI(t, configPath, "job", "list", "--json", "--status", "review_pending"), &list)
	if len(list.Items) != 1 || list.Items[0].ID != added.ID {
		t.Fatalf("unexpected job list %+v", list.Items)
	}

	out := mustRunCLI(t, configPath, "job", "show", added.ID[:8])
	requireContains(t, out, added.ID)
	requireContains(t, out, "Octopuses have three hearts.")

	var rendered api.Job
	decodeJSON(t, mustRunCLI(t, configPath, "job", "render", added.ID, "--wait", "--json"), &rendered)
	if rendered.Status != string(jobs.StatusCompleted) || rendered.VideoURL == "" {
		t.Fatalf("unexpected rendered job %+v", rendered)
	}
	if renderer.RenderCount() != 1 {
		t.Fatalf("render calls = %d", renderer.RenderCount())
	}
}

func TestJobListRejectsUnknownStatus(t *testing.T) {
	configPath := newProjectEnv(t)
	if _, _, err := runCLI(t, configPath, "job", "list", "--status", "sleeping"); err == nil {
		t.Fatal("expected an unknown status error")
	}
}

func TestJobAddWithoutDaemon(t *testing.T) {
	configPath := newProjectEnv(t)
	_, _, err := runCLI(t, configPath, "job", "add", "Octopus")
	if !errors.Is(err, daemonctl.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestRenderProgressLine(t *testing.T) {
	line := renderProgressLine(api.Job{ID: "0123456789", Status: "processing", StepLabel: "Images", Progress: 50, Warnings: 2}, false)
	requireContains(t, line, "01234567 [############............]  50% Images")
	requireContains(t, line, "(2 warning(s))")
}
