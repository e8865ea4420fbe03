package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"shortforge/internal/config"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEYS", "OPENAI_API_KEY", "OPENROUTER_API_KEY", "SHORTFORGE_API_TOKEN"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPathsAndUsesEnvKeys(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "shortforge", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "shortforge")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "shortforge.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
	if cfg.Text.Provider != config.ProviderOpenAI {
		t.Fatalf("unexpected provider %q", cfg.Text.Provider)
	}
	if cfg.Text.APIKeys != "sk-env" || cfg.Image.APIKeys != "sk-env" || cfg.Voice.APIKeys != "sk-env" {
		t.Fatalf("expected env keys for all openai providers, got %+v", cfg)
	}
	if cfg.Text.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected text base url %q", cfg.Text.BaseURL)
	}
	if cfg.Transcript.TimeoutSeconds != 60 {
		t.Fatalf("transcript timeout = %d, want 60", cfg.Transcript.TimeoutSeconds)
	}
	if len(cfg.Profiles) != 1 || cfg.Profiles[0].ID != "default" {
		t.Fatalf("expected default profile, got %+v", cfg.Profiles)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.AssetsDir, cfg.Paths.LogDir, cfg.Paths.PublishDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearProviderEnv(t)
	configPath := filepath.Join(t.TempDir(), "shortforge.toml")

	type profile struct {
		ID   string `toml:"id"`
		Tone string `toml:"tone"`
	}
	type payload struct {
		Text struct {
			Provider string `toml:"provider"`
			APIKeys  string `toml:"api_keys"`
		} `toml:"text"`
		Jobs struct {
			Segments int `toml:"segments"`
		} `toml:"jobs"`
		Profiles []profile `toml:"profiles"`
	}
	custom := payload{}
	custom.Text.Provider = "OpenRouter"
	custom.Text.APIKeys = "k1;k2"
	custom.Jobs.Segments = 3
	custom.Profiles = []profile{{ID: "science", Tone: "calm"}, {ID: "history"}}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q %v", resolved, exists)
	}
	if cfg.Text.Provider != config.ProviderOpenRouter {
		t.Fatalf("expected provider to be normalized, got %q", cfg.Text.Provider)
	}
	if !strings.Contains(cfg.Text.BaseURL, "openrouter.ai") {
		t.Fatalf("expected openrouter base url, got %q", cfg.Text.BaseURL)
	}
	if cfg.Text.APIKeys != "k1;k2" {
		t.Fatalf("expected file keys, got %q", cfg.Text.APIKeys)
	}
	if cfg.Jobs.Segments != 3 {
		t.Fatalf("segments = %d, want 3", cfg.Jobs.Segments)
	}
	if len(cfg.Profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(cfg.Profiles))
	}
	science, ok := cfg.Profile("science")
	if !ok || science.Tone != "calm" || science.Language != "en" {
		t.Fatalf("unexpected science profile: %+v %v", science, ok)
	}
	history, ok := cfg.Profile("history")
	if !ok || history.Name != "history" || history.VoiceID != cfg.Voice.VoiceID {
		t.Fatalf("unexpected history profile defaults: %+v", history)
	}
	if _, ok := cfg.Profile("default"); ok {
		t.Fatal("expected configured profiles to replace the default")
	}
}

func TestOpenRouterKeyFallback(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	configPath := filepath.Join(t.TempDir(), "shortforge.toml")
	if err := os.WriteFile(configPath, []byte("[text]\nprovider = \"openrouter\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Text.APIKeys != "or-key" {
		t.Fatalf("expected OPENROUTER_API_KEY fallback, got %q", cfg.Text.APIKeys)
	}
	if cfg.Image.APIKeys != "" {
		t.Fatalf("expected image keys to stay empty, got %q", cfg.Image.APIKeys)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"provider", func(c *config.Config) { c.Text.Provider = "acme" }, "text.provider"},
		{"image width", func(c *config.Config) { c.Image.Width = 0 }, "image.width"},
		{"retry attempts", func(c *config.Config) { c.Retry.Attempts = 0 }, "retry.attempts"},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"duplicate profile", func(c *config.Config) {
			c.Profiles = []config.Profile{{ID: "a"}, {ID: "a"}}
		}, "duplicate"},
		{"blank profile", func(c *config.Config) {
			c.Profiles = []config.Profile{{ID: ""}}
		}, "profiles[0].id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	clearProviderEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[[profiles]]") {
		t.Fatalf("sample missing profiles section:\n%s", contents)
	}

	t.Setenv("HOME", t.TempDir())
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}
