package logs

import "testing"

func TestFilterMatch(t *testing.T) {
	console := "2026-01-02 10:00:01 WARN [jobs] Job 0123abcd (images) – image failed"
	jsonLine := `{"time":"2026-01-02T10:00:01Z","level":"ERROR","msg":"render failed","job_id":"0123abcd-9999","project_id":"p-1"}`

	tests := []struct {
		name   string
		filter Filter
		line   string
		want   bool
	}{
		{"empty matches", Filter{}, console, true},
		{"console level at threshold", Filter{Level: "warn"}, console, true},
		{"console level below threshold", Filter{Level: "error"}, console, false},
		{"console job prefix", Filter{JobID: "0123abcd-9999"}, console, true},
		{"console other job", Filter{JobID: "ffffffff"}, console, false},
		{"console project absent", Filter{ProjectID: "p-1"}, console, false},
		{"search is case-insensitive", Filter{Search: "IMAGE"}, console, true},
		{"json level", Filter{Level: "error"}, jsonLine, true},
		{"json job prefix", Filter{JobID: "0123"}, jsonLine, true},
		{"json project", Filter{ProjectID: "p-1"}, jsonLine, true},
		{"json project mismatch", Filter{ProjectID: "p-2"}, jsonLine, false},
		{"unparseable json falls back to console", Filter{Level: "info"}, "{broken", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.line); got != tt.want {
				t.Fatalf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}
