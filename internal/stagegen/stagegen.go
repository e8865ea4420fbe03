// Package stagegen produces the payload for a project's next stage on the
// automatic path, with one provider call (or one short sequential loop) per
// stage. Reference acquisition is handled by the batch orchestrator and has
// no generator here.
package stagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"shortforge/internal/config"
	"shortforge/internal/logging"
	"shortforge/internal/pipeline"
	"shortforge/internal/providers"
	"shortforge/internal/services"
)

// ErrNoGenerator reports a stage with no automatic generator.
var ErrNoGenerator = errors.New("no generator for stage")

// Deps are the collaborators generators call. Nil providers make the stages
// that need them fail with a configuration error.
type Deps struct {
	Config    func() *config.Config
	Text      providers.TextGenerator
	Images    providers.ImageGenerator
	Voice     providers.VoiceSynthesizer
	Renderer  providers.Renderer
	Publisher providers.Publisher
}

type generateFunc func(ctx context.Context, g *Generators, p *pipeline.Project) (pipeline.Payload, error)

var generators = map[pipeline.Stage]generateFunc{
	pipeline.StageScript:           generateScript,
	pipeline.StageAudio:            generateAudio,
	pipeline.StageAudioCompress:    generateAudioCompress,
	pipeline.StageSubtitles:        generateSubtitles,
	pipeline.StageImages:           generateImages,
	pipeline.StageVideo:            generateVideo,
	pipeline.StagePublishVideo:     publishVideo,
	pipeline.StageThumbnail:        generateThumbnail,
	pipeline.StagePublishThumbnail: publishThumbnail,
}

// Generators dispatches to the generator registered for a target stage.
type Generators struct {
	deps   Deps
	logger *slog.Logger
}

// New builds the generator set.
func New(deps Deps, logger *slog.Logger) *Generators {
	return &Generators{deps: deps, logger: logging.NewComponentLogger(logger, "stagegen")}
}

// Supports reports whether target has an automatic generator.
func Supports(target pipeline.Stage) bool {
	_, ok := generators[target]
	return ok
}

// Next generates the payload for the stage after p's current stage.
func (g *Generators) Next(ctx context.Context, p *pipeline.Project) (pipeline.Payload, error) {
	target, ok := p.CurrentStage.Next()
	if !ok {
		return nil, fmt.Errorf("generate after %s: %w", p.CurrentStage, pipeline.ErrTerminalStage)
	}
	return g.Generate(ctx, p, target)
}

// Generate produces a payload for target from p's stored data.
func (g *Generators) Generate(ctx context.Context, p *pipeline.Project, target pipeline.Stage) (pipeline.Payload, error) {
	fn, ok := generators[target]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoGenerator, target)
	}
	ctx = services.WithProjectID(ctx, p.ID)
	ctx = services.WithStage(ctx, string(target))
	logging.WithContext(ctx, g.logger).Debug("generating stage payload")
	return fn(ctx, g, p)
}

func (g *Generators) config() *config.Config {
	if g.deps.Config != nil {
		if cfg := g.deps.Config(); cfg != nil {
			return cfg
		}
	}
	cfg := config.Default()
	return &cfg
}

func (g *Generators) profile(channelID string) config.Profile {
	cfg := g.config()
	if profile, ok := cfg.Profile(channelID); ok {
		return profile
	}
	if len(cfg.Profiles) > 0 {
		return cfg.Profiles[0]
	}
	return config.Profile{ID: "default", Language: "en"}
}

func (g *Generators) assetPath(p *pipeline.Project, name string) string {
	return filepath.Join(g.config().ProjectAssetsDir(p.ID), name)
}

func missing(stage pipeline.Stage, what string) error {
	return services.Wrap(services.ErrValidation, string(stage), "generate", what+" missing", nil)
}

func unconfigured(stage pipeline.Stage, provider string) error {
	return services.WithHint(
		services.Wrap(services.ErrConfiguration, string(stage), "generate", provider+" provider not configured", nil),
		"set api keys for the "+provider+" provider in the config file",
	)
}

func payloadOf[T pipeline.Payload](p *pipeline.Project, stage pipeline.Stage) (T, bool) {
	payload, ok := p.StageData[stage].(T)
	return payload, ok
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, ".!?"); idx >= 0 {
		return strings.TrimSpace(text[:idx+1])
	}
	return text
}
