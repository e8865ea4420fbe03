// Package testsupport provides shared fixtures for package tests: isolated
// configs, an opened store, and func-backed fakes of the provider contracts.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"shortforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test,
// fast retry timings, and a single default profile.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.AssetsDir = filepath.Join(base, "assets")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.PublishDir = filepath.Join(base, "published")
	cfgVal.Text.APIKeys = "test-key"
	cfgVal.Text.BaseURL = "http://127.0.0.1:0/v1"
	cfgVal.Text.Model = "test-model"
	cfgVal.Image.APIKeys = "test-key"
	cfgVal.Voice.APIKeys = "test-key"
	cfgVal.Retry = config.Retry{Attempts: 1, BaseDelayMilli: 1, MaxDelayMilli: 1}
	cfgVal.Jobs.Segments = 3
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Profiles = []config.Profile{{
		ID:       "default",
		Name:     "Default",
		Language: "en",
		Tone:     "curious",
		VoiceID:  "alloy",
	}}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithProfile appends a channel profile.
func WithProfile(profile config.Profile) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Profiles = append(b.cfg.Profiles, profile)
	}
}

// WithSegments sets the job segment count.
func WithSegments(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Jobs.Segments = n
	}
}

// WithAPIToken requires bearer authentication on the daemon API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and yt-dlp are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "yt-dlp"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
