package daemonrun

import (
	"log/slog"
	"path/filepath"
	"strings"

	"shortforge/internal/config"
	"shortforge/internal/jobs"
	"shortforge/internal/providers"
	"shortforge/internal/providers/openai"
	"shortforge/internal/providers/ytdlp"
	"shortforge/internal/render"
	"shortforge/internal/retry"
	"shortforge/internal/services/llm"
	"shortforge/internal/stagegen"
)

// Providers is the concrete adapter set selected by configuration.
type Providers struct {
	Text        providers.TextGenerator
	Images      providers.ImageGenerator
	Voice       providers.VoiceSynthesizer
	Transcripts providers.TranscriptFetcher
	Renderer    providers.Renderer
	Publisher   providers.Publisher
}

// BuildProviders constructs the adapters for cfg. Text goes through OpenRouter
// when configured, otherwise OpenAI; images and speech always use OpenAI.
func BuildProviders(cfg *config.Config, logger *slog.Logger) Providers {
	policy := retry.PolicyFromConfig(cfg.Retry)

	var text providers.TextGenerator
	switch strings.ToLower(strings.TrimSpace(cfg.Text.Provider)) {
	case config.ProviderOpenRouter:
		text = llm.NewClient(llm.ConfigFromText(cfg.Text), llm.WithRetryPolicy(policy), llm.WithLogger(logger))
	default:
		text = openai.NewTextGenerator(cfg.Text, openai.WithRetryPolicy(policy), openai.WithLogger(logger))
	}

	return Providers{
		Text: text,
		Images: openai.NewImageGenerator(cfg.Image, filepath.Join(cfg.Paths.AssetsDir, "images"),
			openai.WithRetryPolicy(policy), openai.WithLogger(logger)),
		Voice:       openai.NewVoiceSynthesizer(cfg.Voice, openai.WithRetryPolicy(policy), openai.WithLogger(logger)),
		Transcripts: ytdlp.New(cfg.Transcript),
		Renderer:    render.New(cfg.Render),
		Publisher:   providers.NewDirectoryPublisher(cfg.Paths.PublishDir),
	}
}

// JobProviders returns the subset the job engine calls.
func (p Providers) JobProviders() jobs.Providers {
	return jobs.Providers{Text: p.Text, Images: p.Images, Voice: p.Voice, Renderer: p.Renderer}
}

// StageDeps returns the stage generator dependencies.
func (p Providers) StageDeps(cfg *config.Config) stagegen.Deps {
	return stagegen.Deps{
		Config:    func() *config.Config { return cfg },
		Text:      p.Text,
		Images:    p.Images,
		Voice:     p.Voice,
		Renderer:  p.Renderer,
		Publisher: p.Publisher,
	}
}
