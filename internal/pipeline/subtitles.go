package pipeline

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// ParseSubtitles accepts SRT blocks or plain text with one caption per line.
func ParseSubtitles(text string) ([]SubtitleSegment, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.Contains(text, "-->") {
		return parseSRT(text)
	}
	var segments []SubtitleSegment
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			segments = append(segments, SubtitleSegment{Index: len(segments) + 1, Text: line})
		}
	}
	return segments, nil
}

func parseSRT(text string) ([]SubtitleSegment, error) {
	var segments []SubtitleSegment
	for _, block := range strings.Split(strings.TrimSpace(text), "\n\n") {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}
		timingIdx := -1
		for idx, line := range lines {
			if strings.Contains(line, "-->") {
				timingIdx = idx
				break
			}
		}
		if timingIdx < 0 {
			return nil, fmt.Errorf("subtitle block %d has no timing line", len(segments)+1)
		}
		start, end, err := parseTiming(lines[timingIdx])
		if err != nil {
			return nil, fmt.Errorf("subtitle block %d: %w", len(segments)+1, err)
		}
		body := strings.TrimSpace(strings.Join(lines[timingIdx+1:], " "))
		if body == "" {
			continue
		}
		segments = append(segments, SubtitleSegment{Index: len(segments) + 1, Start: start, End: end, Text: body})
	}
	return segments, nil
}

func nonEmptyLines(block string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(block))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func parseTiming(line string) (float64, float64, error) {
	parts := strings.SplitN(line, "-->", 2)
	start, err := parseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp reads HH:MM:SS,mmm (a dot is accepted for the fraction).
func parseTimestamp(value string) (float64, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.Replace(fields[0], ",", ".", 1)
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}

// TimeSegments spreads lines over total seconds proportionally to their length.
func TimeSegments(lines []string, total float64) []SubtitleSegment {
	chars := 0
	for _, line := range lines {
		chars += len([]rune(line))
	}
	segments := make([]SubtitleSegment, 0, len(lines))
	cursor := 0.0
	for idx, line := range lines {
		share := 0.0
		if chars > 0 && total > 0 {
			share = total * float64(len([]rune(line))) / float64(chars)
		}
		end := cursor + share
		if idx == len(lines)-1 && total > 0 {
			end = total
		}
		segments = append(segments, SubtitleSegment{Index: idx + 1, Start: cursor, End: end, Text: line})
		cursor = end
	}
	return segments
}

// FormatSRT renders segments as an SRT document.
func FormatSRT(segments []SubtitleSegment) string {
	var b strings.Builder
	for idx, seg := range segments {
		if idx > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", idx+1, formatTimestamp(seg.Start), formatTimestamp(seg.End), seg.Text)
	}
	return b.String()
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3_600_000
	millis -= h * 3_600_000
	m := millis / 60_000
	millis -= m * 60_000
	s := millis / 1000
	millis -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, millis)
}
