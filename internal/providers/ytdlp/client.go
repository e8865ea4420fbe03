// Package ytdlp fetches reference transcripts by running yt-dlp with
// subtitle download enabled and media download disabled.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"shortforge/internal/config"
	"shortforge/internal/metrics"
	"shortforge/internal/providers"
	"shortforge/internal/services"
)

const defaultTimeout = 60 * time.Second

// Client implements providers.TranscriptFetcher.
type Client struct {
	Binary   string
	Language string
	Timeout  time.Duration
}

// New builds a client from the [transcript] config section.
func New(cfg config.Transcript) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = "en"
	}
	return &Client{Binary: binary, Language: language, Timeout: timeout}
}

type infoJSON struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Channel  string  `json:"channel"`
	Uploader string  `json:"uploader"`
	Duration float64 `json:"duration"`
	URL      string  `json:"webpage_url"`
}

// Fetch downloads subtitles and metadata for videoID (an id or any YouTube URL).
func (c *Client) Fetch(ctx context.Context, videoID string) (providers.Transcript, error) {
	started := time.Now()
	transcript, err := c.fetch(ctx, videoID)
	metrics.ObserveProviderCall("ytdlp", "transcript", started, err)
	return transcript, err
}

func (c *Client) fetch(ctx context.Context, input string) (providers.Transcript, error) {
	id, err := ParseVideoID(input)
	if err != nil {
		return providers.Transcript{}, services.Wrap(services.ErrValidation, "reference", "parse video id", "unrecognized video reference", err)
	}
	workDir, err := os.MkdirTemp("", "shortforge-ytdlp-*")
	if err != nil {
		return providers.Transcript{}, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	args := []string{
		"--skip-download",
		"--no-playlist",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", c.Language + ".*," + c.Language,
		"--sub-format", "vtt",
		"--write-info-json",
		"-P", workDir,
		"-o", "%(id)s.%(ext)s",
		WatchURL(id),
	}
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return providers.Transcript{}, services.Wrap(services.ErrTimeout, "reference", "fetch transcript",
				fmt.Sprintf("yt-dlp exceeded %s", c.Timeout), ctx.Err())
		}
		if errors.Is(err, exec.ErrNotFound) {
			return providers.Transcript{}, services.WithHint(
				services.Wrap(services.ErrExternalTool, "reference", "fetch transcript", "yt-dlp not found", err),
				"install yt-dlp or set transcript.binary")
		}
		return providers.Transcript{}, services.Wrap(services.ErrExternalTool, "reference", "fetch transcript",
			strings.TrimSpace(stderr.String()), err)
	}

	transcript := providers.Transcript{VideoID: id, URL: WatchURL(id), Language: c.Language}
	if info, err := readInfo(filepath.Join(workDir, id+".info.json")); err == nil {
		transcript.Title = info.Title
		transcript.Channel = firstNonEmpty(info.Channel, info.Uploader)
		transcript.DurationSeconds = info.Duration
		if info.URL != "" {
			transcript.URL = info.URL
		}
	}

	subtitle, lang, err := findSubtitle(workDir, id)
	if err != nil {
		return providers.Transcript{}, services.Wrap(services.ErrNotFound, "reference", "fetch transcript",
			"no subtitles available for "+id, err)
	}
	data, err := os.ReadFile(subtitle)
	if err != nil {
		return providers.Transcript{}, fmt.Errorf("read subtitles: %w", err)
	}
	transcript.Text = ParseVTT(string(data))
	if lang != "" {
		transcript.Language = lang
	}
	if transcript.Text == "" {
		return providers.Transcript{}, services.Wrap(services.ErrNotFound, "reference", "fetch transcript",
			"subtitles for "+id+" contained no text", nil)
	}
	return transcript, nil
}

func readInfo(path string) (infoJSON, error) {
	var info infoJSON
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	err = json.Unmarshal(data, &info)
	return info, err
}

// findSubtitle prefers manual subtitles (<id>.<lang>.vtt) over auto-generated
// variants, which yt-dlp writes with a longer language suffix.
func findSubtitle(dir, id string) (string, string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, id+".*.vtt"))
	if err != nil {
		return "", "", err
	}
	if len(matches) == 0 {
		return "", "", os.ErrNotExist
	}
	best := matches[0]
	for _, match := range matches[1:] {
		if len(match) < len(best) {
			best = match
		}
	}
	lang := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(best), id+"."), ".vtt")
	return best, lang, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
