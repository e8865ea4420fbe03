package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shortforge/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shortforge.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Errorf("open append: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Errorf("append log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("offset = %d, want 6", result.Offset)
	}
}

func TestTailLeavesPartialLine(t *testing.T) {
	path := writeLog(t, "done\nhalf")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 0})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 1 || result.Offset != 5 {
		t.Fatalf("unexpected result %#v", result)
	}

	appendLog(t, path, "-written\n")
	result, err = logs.Tail(context.Background(), path, logs.TailOptions{Offset: result.Offset})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "half-written" {
		t.Fatalf("unexpected lines %#v", result.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "none.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil || len(result.Lines) != 0 {
		t.Fatalf("expected empty result, got %#v %v", result, err)
	}
}

func TestTailTruncatedFileRestarts(t *testing.T) {
	path := writeLog(t, "short\n")
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 1000})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "short" {
		t.Fatalf("unexpected lines %#v", result.Lines)
	}
}

func TestTailFilterAppliesToLastLines(t *testing.T) {
	path := writeLog(t, ""+
		"2026-01-02 10:00:00 INFO [jobs] Job 0123abcd – job queued\n"+
		"2026-01-02 10:00:01 WARN [jobs] Job 0123abcd – image failed\n"+
		"2026-01-02 10:00:02 INFO [batch] Project ffff0000 – batch started\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: -1,
		Limit:  10,
		Filter: logs.Filter{JobID: "0123abcd-full-id"},
	})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected the job's two lines, got %#v", result.Lines)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu    sync.Mutex
		lines []string
	)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, logs.TailOptions{Limit: 1, Wait: 200 * time.Millisecond}, func(line string) {
			mu.Lock()
			lines = append(lines, line)
			n := len(lines)
			mu.Unlock()
			if n == 2 {
				cancel()
			}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	appendLog(t, path, "later\n")

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Follow: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not return")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 || lines[0] != "start" || lines[1] != "later" {
		t.Fatalf("unexpected lines %#v", lines)
	}
}
