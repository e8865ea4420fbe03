package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	AssetsDir  string `toml:"assets_dir"`
	LogDir     string `toml:"log_dir"`
	PublishDir string `toml:"publish_dir"`
}

// Text contains the script/metadata generation provider settings. APIKeys may
// hold several credentials separated by commas, semicolons, or newlines.
type Text struct {
	Provider       string `toml:"provider"`
	APIKeys        string `toml:"api_keys"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Image contains image generation settings.
type Image struct {
	APIKeys string `toml:"api_keys"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Count   int    `toml:"count"`
}

// Voice contains text-to-speech settings.
type Voice struct {
	APIKeys string `toml:"api_keys"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	VoiceID string `toml:"voice_id"`
}

// Transcript contains reference transcript retrieval settings.
type Transcript struct {
	Binary         string `toml:"binary"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Render contains video assembly settings.
type Render struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	FPS          int    `toml:"fps"`
	AudioBitrate string `toml:"audio_bitrate"`
}

// Retry contains the per-credential backoff policy applied to provider calls.
type Retry struct {
	Attempts       int `toml:"attempts"`
	BaseDelayMilli int `toml:"base_delay_ms"`
	MaxDelayMilli  int `toml:"max_delay_ms"`
}

// Jobs contains single-shot job engine settings.
type Jobs struct {
	Segments int `toml:"segments"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Review         bool   `toml:"review"`
	Completion     bool   `toml:"completion"`
	Batch          bool   `toml:"batch"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// API contains the daemon HTTP API settings.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Profile describes a publishing channel: tone, language, and voice used when
// generating content for projects and jobs tied to it.
type Profile struct {
	ID           string `toml:"id"`
	Name         string `toml:"name"`
	Language     string `toml:"language"`
	Tone         string `toml:"tone"`
	VoiceID      string `toml:"voice_id"`
	ImageStyle   string `toml:"image_style"`
	SystemPrompt string `toml:"system_prompt"`
}

// Config encapsulates all configuration values for shortforge.
//
// Configuration sections by subsystem:
//   - Paths: data, asset, log, and publish directories
//   - Text, Image, Voice: generation providers and their credential sets
//   - Transcript: yt-dlp reference transcript retrieval
//   - Render: ffmpeg video assembly
//   - Retry: per-credential backoff policy
//   - Jobs: single-shot job engine
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//   - API: daemon HTTP API
//   - Profiles: channel profiles
type Config struct {
	Paths         Paths         `toml:"paths"`
	Text          Text          `toml:"text"`
	Image         Image         `toml:"image"`
	Voice         Voice         `toml:"voice"`
	Transcript    Transcript    `toml:"transcript"`
	Render        Render        `toml:"render"`
	Retry         Retry         `toml:"retry"`
	Jobs          Jobs          `toml:"jobs"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	API           API           `toml:"api"`
	Profiles      []Profile     `toml:"profiles"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shortforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for CLI and daemon operation.
// PublishDir is created on a best-effort basis so generation keeps working when
// the publish target is a temporarily unavailable mount.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.AssetsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.PublishDir) != "" {
		_ = os.MkdirAll(c.Paths.PublishDir, 0o755)
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "shortforge.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "shortforge.lock")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "shortforge.log")
}

// ProjectAssetsDir returns the directory holding generated files for one project or job.
func (c *Config) ProjectAssetsDir(id string) string {
	return filepath.Join(c.Paths.AssetsDir, id)
}

// Profile returns the channel profile with the given id.
func (c *Config) Profile(id string) (Profile, bool) {
	id = strings.TrimSpace(id)
	for _, p := range c.Profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
