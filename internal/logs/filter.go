package logs

import (
	"encoding/json"
	"strings"

	"shortforge/internal/logging"
)

var levelRank = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "WARNING": 2, "ERROR": 3}

// Filter selects log lines. Zero fields match everything; IDs match by prefix.
type Filter struct {
	ProjectID string
	JobID     string
	Level     string
	Search    string
}

// Empty reports whether f matches every line.
func (f Filter) Empty() bool {
	return strings.TrimSpace(f.ProjectID) == "" &&
		strings.TrimSpace(f.JobID) == "" &&
		strings.TrimSpace(f.Level) == "" &&
		strings.TrimSpace(f.Search) == ""
}

// Match reports whether line passes every set predicate.
func (f Filter) Match(line string) bool {
	if f.Empty() {
		return true
	}
	if search := strings.TrimSpace(f.Search); search != "" && !strings.Contains(strings.ToLower(line), strings.ToLower(search)) {
		return false
	}
	entry, structured := parseJSONLine(line)
	if min := strings.ToUpper(strings.TrimSpace(f.Level)); min != "" {
		level := consoleLevel(line)
		if structured {
			level = strings.ToUpper(entry["level"])
		}
		if levelRank[level] < levelRank[min] {
			return false
		}
	}
	if id := strings.TrimSpace(f.ProjectID); id != "" && !matchID(line, entry, structured, logging.FieldProjectID, "Project ", id) {
		return false
	}
	if id := strings.TrimSpace(f.JobID); id != "" && !matchID(line, entry, structured, logging.FieldJobID, "Job ", id) {
		return false
	}
	return true
}

func matchID(line string, entry map[string]string, structured bool, field, subject, id string) bool {
	if structured {
		return strings.HasPrefix(entry[field], id)
	}
	// Console lines carry only the 8-character short form.
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return strings.Contains(line, subject+short)
}

func parseJSONLine(line string) (map[string]string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		if s, ok := value.(string); ok {
			out[key] = s
		}
	}
	return out, true
}

// consoleLevel finds the level label following the timestamp.
func consoleLevel(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return ""
	}
	label := fields[2]
	if _, ok := levelRank[label]; ok {
		return label
	}
	return ""
}
