package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"shortforge/internal/config"
	"shortforge/internal/services"
)

func TestParseVideoID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ", true},
		{"youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://m.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", false},
		{"not a video", "", false},
	}
	for _, tc := range cases {
		got, err := ParseVideoID(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseVideoID(%q) = %q, %v", tc.in, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidVideoID) {
			t.Fatalf("ParseVideoID(%q) expected ErrInvalidVideoID, got %q, %v", tc.in, got, err)
		}
	}
}

func TestParseVTTCollapsesRollingCues(t *testing.T) {
	vtt := `WEBVTT
Kind: captions
Language: en

NOTE generated
by a tool

1
00:00:00.000 --> 00:00:02.000
<c>cats are</c> great

00:00:02.000 --> 00:00:04.000
cats are great

00:00:04.000 --> 00:00:06.000
they sleep &amp; purr
`
	got := ParseVTT(vtt)
	if got != "cats are great they sleep & purr" {
		t.Fatalf("ParseVTT = %q", got)
	}
}

const stubScript = `#!/bin/sh
dir=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-P" ]; then dir="$2"; shift; fi
  shift
done
cat > "$dir/dQw4w9WgXcQ.info.json" <<'JSON'
{"id":"dQw4w9WgXcQ","title":"Cat facts","channel":"Cats Daily","duration":61.5,"webpage_url":"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}
JSON
printf 'WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nhello cats\n' > "$dir/dQw4w9WgXcQ.en.vtt"
printf 'WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nauto text\n' > "$dir/dQw4w9WgXcQ.en-orig.vtt"
`

func writeStub(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestFetchReadsSubtitlesAndInfo(t *testing.T) {
	stub := writeStub(t, stubScript)
	client := New(config.Transcript{Binary: stub, Language: "en", TimeoutSeconds: 10})

	transcript, err := client.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if transcript.Text != "hello cats" {
		t.Fatalf("text = %q", transcript.Text)
	}
	if transcript.Title != "Cat facts" || transcript.Channel != "Cats Daily" || transcript.DurationSeconds != 61.5 {
		t.Fatalf("unexpected metadata %+v", transcript)
	}
	if transcript.Language != "en" {
		t.Fatalf("language = %q", transcript.Language)
	}
}

func TestFetchWithoutSubtitlesIsNotFound(t *testing.T) {
	stub := writeStub(t, "#!/bin/sh\nexit 0\n")
	client := New(config.Transcript{Binary: stub})

	_, err := client.Fetch(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchFailureIncludesStderr(t *testing.T) {
	stub := writeStub(t, "#!/bin/sh\necho 'ERROR: Private video' >&2\nexit 1\n")
	client := New(config.Transcript{Binary: stub})

	_, err := client.Fetch(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "Private video") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestFetchTimesOut(t *testing.T) {
	stub := writeStub(t, "#!/bin/sh\nexec sleep 5\n")
	client := New(config.Transcript{Binary: stub})
	client.Timeout = 50 * time.Millisecond

	_, err := client.Fetch(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestFetchRejectsBadInput(t *testing.T) {
	client := New(config.Transcript{})
	_, err := client.Fetch(context.Background(), "nope")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if client.Timeout != defaultTimeout || client.Binary != "yt-dlp" {
		t.Fatalf("unexpected defaults %+v", client)
	}
}
