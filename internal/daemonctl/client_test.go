package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"shortforge/internal/api"
	"shortforge/internal/config"
)

func TestNewClientRewritesWildcardHost(t *testing.T) {
	cfg := config.Default()
	cfg.API.Bind = "0.0.0.0:7410"
	client, err := NewClient(&cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.base != "http://127.0.0.1:7410" {
		t.Fatalf("base = %q", client.base)
	}

	cfg.API.Bind = ""
	if _, err := NewClient(&cfg); err == nil {
		t.Fatal("expected error without bind")
	}
}

func TestSubmitJobSendsTokenAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req api.SubmitJobRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(api.JobResponse{Item: api.Job{ID: "j1", Theme: req.Theme, Status: "queued"}})
	}))
	defer srv.Close()

	job, err := NewClientURL(srv.URL, "tok").SubmitJob(context.Background(), api.SubmitJobRequest{Theme: "octopus"})
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	if job.ID != "j1" || job.Theme != "octopus" {
		t.Fatalf("job = %+v", job)
	}
}

func TestErrorResponsesCarryHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "renderer unavailable", Hint: "install ffmpeg"})
	}))
	defer srv.Close()

	_, err := NewClientURL(srv.URL, "").RenderJob(context.Background(), "j1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Hint != "install ffmpeg" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestUnreachableDaemonIsNotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := NewClientURL(base, "").Status(context.Background())
	if !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestWaitForJobPollsUntilDone(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		job := api.Job{ID: "j1", Status: "processing", Progress: int(n) * 20}
		if n >= 3 {
			job.Status = "review_pending"
			job.Progress = 90
		}
		_ = json.NewEncoder(w).Encode(api.JobResponse{Item: job})
	}))
	defer srv.Close()

	var updates []int
	job, err := NewClientURL(srv.URL, "").WaitForJob(context.Background(), "j1", time.Millisecond,
		func(j api.Job) bool { return j.Status == "review_pending" },
		func(j api.Job) { updates = append(updates, j.Progress) },
	)
	if err != nil {
		t.Fatalf("WaitForJob: %v", err)
	}
	if job.Progress != 90 || len(updates) != 3 {
		t.Fatalf("job=%+v updates=%v", job, updates)
	}
}
