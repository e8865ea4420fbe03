package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

const jsonTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// secretKeys never reach the log in clear; credentials are referenced by
// position through FieldCredential instead.
var secretKeys = map[string]bool{
	"api_key":       true,
	"api_keys":      true,
	"api_token":     true,
	"token":         true,
	"authorization": true,
}

const redacted = "[redacted]"

// newJSONHandler writes one object per line with the keys the logs filter
// reads: ts, level (lowercase), msg, and the project/job/stage context fields
// at the top level.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	})
}

func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			attr.Key = "ts"
			if attr.Value.Kind() == slog.KindTime {
				attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(jsonTimeFormat))
			}
			return attr
		case slog.LevelKey:
			attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			return attr
		case slog.SourceKey:
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
			}
			return attr
		}
	}
	if secretKeys[strings.ToLower(attr.Key)] {
		return slog.String(attr.Key, redacted)
	}
	if attr.Value.Kind() == slog.KindDuration {
		attr.Value = slog.StringValue(attr.Value.Duration().Round(time.Millisecond).String())
	}
	return attr
}
