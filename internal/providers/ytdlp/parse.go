package ytdlp

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
)

// ErrInvalidVideoID reports input that is neither an id nor a YouTube URL.
var ErrInvalidVideoID = errors.New("invalid video id")

// ParseVideoID accepts a bare 11-character id or a watch, shorts, embed, or
// youtu.be URL.
func ParseVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if videoIDPattern.MatchString(input) {
		return input, nil
	}
	if !strings.Contains(input, "://") {
		input = "https://" + input
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", ErrInvalidVideoID
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	var candidate string
	switch host {
	case "youtu.be":
		candidate = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			candidate = v
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
			candidate = parts[1]
		}
	}
	if !videoIDPattern.MatchString(candidate) {
		return "", ErrInvalidVideoID
	}
	return candidate, nil
}

// WatchURL returns the canonical watch URL for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ParseVTT flattens WebVTT cues into plain text. Auto-generated captions repeat
// each line across rolling cues; consecutive duplicates are collapsed.
func ParseVTT(data string) string {
	var lines []string
	last := ""
	inNote := false
	for _, raw := range strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			inNote = false
			continue
		}
		switch {
		case inNote:
			continue
		case strings.HasPrefix(line, "NOTE"):
			inNote = true
			continue
		case line == "WEBVTT" || strings.HasPrefix(line, "WEBVTT "),
			strings.HasPrefix(line, "Kind:"),
			strings.HasPrefix(line, "Language:"),
			strings.Contains(line, "-->"),
			isCueNumber(line):
			continue
		}
		text := strings.TrimSpace(tagPattern.ReplaceAllString(line, ""))
		text = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&nbsp;", " ").Replace(text)
		if text == "" || text == last {
			continue
		}
		lines = append(lines, text)
		last = text
	}
	return strings.Join(lines, " ")
}

func isCueNumber(line string) bool {
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
