package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"shortforge/internal/retry"
)

func noSleepPolicy(attempts int) retry.Policy {
	return retry.Policy{Attempts: attempts, Sleep: func(context.Context, time.Duration) error { return nil }}
}

func writeContent(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestClientGenerateSendsPromptsAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "shortforge" {
			t.Errorf("x-title = %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "override-model" || len(req.Messages) != 2 || req.ResponseFormat != nil {
			t.Errorf("unexpected request: %+v", req)
		}
		writeContent(t, w, "A script about cats.")
	}))
	defer server.Close()

	client := NewClient(Config{APIKeys: "test", BaseURL: server.URL, Model: "demo", Title: "shortforge"})
	out, err := client.Generate(context.Background(), "system", "user", "override-model")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != "A script about cats." {
		t.Fatalf("unexpected content %q", out)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeContent(t, w, "```json\n{\"ok\":true}\n```")
	}))
	defer server.Close()

	client := NewClient(Config{APIKeys: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKeys: "bad", BaseURL: server.URL, Model: "demo"}, WithRetryPolicy(noSleepPolicy(3)))
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestClientRequiresCredentials(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Model: "demo"})
	_, err := client.Generate(context.Background(), "s", "u", "")
	if !errors.Is(err, retry.ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestClientToolCallArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "tool_calls",
					"message": map[string]any{
						"content": "",
						"tool_calls": []any{
							map[string]any{"function": map[string]any{"arguments": `{"title":"Cats"}`}},
						},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKeys: "test", BaseURL: server.URL, Model: "demo"})
	out, err := client.CompleteJSON(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if out != `{"title":"Cats"}` {
		t.Fatalf("unexpected content %q", out)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		writeContent(t, w, "ok")
	}))
	defer server.Close()

	var slept []time.Duration
	policy := retry.Policy{Attempts: 3, MaxDelay: 5 * time.Second, Sleep: func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}}
	client := NewClient(Config{APIKeys: "test", BaseURL: server.URL, Model: "demo"}, WithRetryPolicy(policy))
	out, err := client.Generate(context.Background(), "s", "u", "")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != "ok" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("out=%q calls=%d", out, calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected Retry-After sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			writeContent(t, w, "")
			return
		}
		writeContent(t, w, "ok")
	}))
	defer server.Close()

	client := NewClient(Config{APIKeys: "test", BaseURL: server.URL, Model: "demo"}, WithRetryPolicy(noSleepPolicy(2)))
	out, err := client.Generate(context.Background(), "s", "u", "")
	if err != nil || out != "ok" {
		t.Fatalf("out=%q err=%v", out, err)
	}
}

func TestClientRotatesCredentialsOnQuota(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		seen = append(seen, key)
		if key == "k1" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
			return
		}
		writeContent(t, w, "from k2")
	}))
	defer server.Close()

	client := NewClient(Config{APIKeys: "k1, k2", BaseURL: server.URL, Model: "demo"}, WithRetryPolicy(noSleepPolicy(1)))
	out, err := client.Generate(context.Background(), "s", "u", "")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != "from k2" || strings.Join(seen, ",") != "k1,k2" {
		t.Fatalf("out=%q seen=%v", out, seen)
	}
}

func TestDecodeLLMJSONStripsFence(t *testing.T) {
	var parsed struct {
		Title string `json:"title"`
	}
	if err := DecodeLLMJSON("Here you go:\n```json\n{\"title\":\"Cats\"}\n```", &parsed); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if parsed.Title != "Cats" {
		t.Fatalf("title = %q", parsed.Title)
	}
	if err := DecodeLLMJSON("   ", &parsed); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
