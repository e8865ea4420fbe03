package stagegen_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shortforge/internal/config"
	"shortforge/internal/logging"
	"shortforge/internal/pipeline"
	"shortforge/internal/providers"
	"shortforge/internal/services"
	"shortforge/internal/stagegen"
	"shortforge/internal/testsupport"
)

const transcript = "Cats sleep for most of the day. They hunt at dawn and dusk. Their whiskers sense tiny air currents."

func newGenerators(t *testing.T, cfg *config.Config, deps stagegen.Deps) *stagegen.Generators {
	t.Helper()
	deps.Config = func() *config.Config { return cfg }
	return stagegen.New(deps, logging.NewNop())
}

func seeded(t *testing.T, payloads ...pipeline.Payload) *pipeline.Project {
	t.Helper()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := pipeline.NewProject("proj-1", "default", "Cat facts", now)
	for i, payload := range payloads {
		var err error
		if i == 0 {
			p, err = pipeline.SetCurrentData(p, payload, now)
		} else {
			p, err = pipeline.Advance(p, payload, now)
		}
		if err != nil {
			t.Fatalf("seed %s: %v", payload.Stage(), err)
		}
	}
	return p
}

func reference() *pipeline.ReferencePayload {
	return &pipeline.ReferencePayload{Mode: pipeline.ModeAuto, VideoID: "dQw4w9WgXcQ", Title: "Cats", Transcript: transcript}
}

func TestSupports(t *testing.T) {
	if stagegen.Supports(pipeline.StageReference) {
		t.Fatal("reference has no generator")
	}
	for _, stage := range pipeline.Stages()[1:] {
		if !stagegen.Supports(stage) {
			t.Fatalf("expected generator for %s", stage)
		}
	}
}

func TestGenerateReferenceHasNoGenerator(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	g := newGenerators(t, cfg, stagegen.Deps{})
	_, err := g.Generate(context.Background(), seeded(t), pipeline.StageReference)
	if !errors.Is(err, stagegen.ErrNoGenerator) {
		t.Fatalf("expected ErrNoGenerator, got %v", err)
	}
}

func TestScriptUsesProfilePromptAndTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var gotSystem, gotUser string
	g := newGenerators(t, cfg, stagegen.Deps{
		Text: testsupport.TextFunc(func(_ context.Context, system, user, _ string) (string, error) {
			gotSystem, gotUser = system, user
			return "```\nA cat naps sixteen hours a day. It wakes to hunt.\n```", nil
		}),
	})
	p := seeded(t, reference())

	payload, err := g.Next(context.Background(), p)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	script, ok := payload.(*pipeline.ScriptPayload)
	if !ok {
		t.Fatalf("unexpected payload %T", payload)
	}
	if script.Text != "A cat naps sixteen hours a day. It wakes to hunt." {
		t.Fatalf("code fence not stripped: %q", script.Text)
	}
	if script.WordCount != 11 || script.Mode != pipeline.ModeAuto || script.Model != "test-model" {
		t.Fatalf("unexpected script payload %+v", script)
	}
	if !strings.Contains(gotSystem, "curious") {
		t.Fatalf("system prompt missing profile tone: %q", gotSystem)
	}
	if !strings.Contains(gotUser, transcript) {
		t.Fatalf("user prompt missing transcript: %q", gotUser)
	}
}

func TestScriptRequiresTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	g := newGenerators(t, cfg, stagegen.Deps{
		Text: testsupport.TextFunc(func(context.Context, string, string, string) (string, error) {
			t.Fatal("text provider should not be called")
			return "", nil
		}),
	})
	_, err := g.Generate(context.Background(), seeded(t), pipeline.StageScript)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestScriptWithoutProviderIsConfigurationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	g := newGenerators(t, cfg, stagegen.Deps{})
	_, err := g.Generate(context.Background(), seeded(t, reference()), pipeline.StageScript)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if services.Details(err).Hint == "" {
		t.Fatal("expected a hint")
	}
}

func TestScriptProviderFailureIsWrapped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	boom := errors.New("upstream down")
	g := newGenerators(t, cfg, stagegen.Deps{
		Text: testsupport.TextFunc(func(context.Context, string, string, string) (string, error) {
			return "", boom
		}),
	})
	_, err := g.Generate(context.Background(), seeded(t, reference()), pipeline.StageScript)
	if !errors.Is(err, boom) || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestAudioWritesNarration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var gotVoice string
	g := newGenerators(t, cfg, stagegen.Deps{
		Voice: testsupport.VoiceFunc(func(_ context.Context, _ string, voice string) ([]byte, error) {
			gotVoice = voice
			return []byte("mp3-bytes"), nil
		}),
	})
	p := seeded(t, reference(), pipeline.NewScriptPayload(transcript, pipeline.ModeManual))

	payload, err := g.Next(context.Background(), p)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	audio := payload.(*pipeline.AudioPayload)
	if gotVoice != "alloy" || audio.VoiceID != "alloy" {
		t.Fatalf("expected profile voice, got %q / %q", gotVoice, audio.VoiceID)
	}
	if audio.Path != filepath.Join(cfg.ProjectAssetsDir("proj-1"), "narration.mp3") {
		t.Fatalf("unexpected path %q", audio.Path)
	}
	data, err := os.ReadFile(audio.Path)
	if err != nil || string(data) != "mp3-bytes" {
		t.Fatalf("narration not written: %q %v", data, err)
	}
	if audio.DurationSeconds <= 0 {
		t.Fatalf("expected estimated duration, got %v", audio.DurationSeconds)
	}
}

func TestAudioCompressRecordsSizes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	renderer := &testsupport.FakeRenderer{}
	g := newGenerators(t, cfg, stagegen.Deps{Renderer: renderer})
	src := testsupport.WriteFile(t, filepath.Join(cfg.ProjectAssetsDir("proj-1"), "narration.mp3"), 64)
	p := seeded(t, reference(), pipeline.NewScriptPayload(transcript, pipeline.ModeManual),
		&pipeline.AudioPayload{Mode: pipeline.ModeManual, Path: src, DurationSeconds: 12})

	payload, err := g.Next(context.Background(), p)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	compressed := payload.(*pipeline.AudioCompressPayload)
	if compressed.OriginalBytes != 64 || compressed.CompressedBytes != 3 {
		t.Fatalf("unexpected sizes %+v", compressed)
	}
	if len(renderer.Compressions) != 1 || renderer.Compressions[0][0] != src {
		t.Fatalf("unexpected compressions %v", renderer.Compressions)
	}
}

func TestSubtitlesSpanNarration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	g := newGenerators(t, cfg, stagegen.Deps{})
	p := seeded(t, reference(), pipeline.NewScriptPayload(transcript, pipeline.ModeManual),
		&pipeline.AudioPayload{Mode: pipeline.ModeManual, Path: "/tmp/a.mp3", DurationSeconds: 9})

	payload, err := g.Generate(context.Background(), p, pipeline.StageSubtitles)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	subs := payload.(*pipeline.SubtitlesPayload)
	if len(subs.Segments) != 3 {
		t.Fatalf("expected one segment per sentence, got %d", len(subs.Segments))
	}
	last := subs.Segments[len(subs.Segments)-1]
	if last.End < 8.99 || last.End > 9.01 {
		t.Fatalf("expected captions to end at 9s, got %v", last.End)
	}
	data, err := os.ReadFile(subs.Path)
	if err != nil || !strings.Contains(string(data), "-->") {
		t.Fatalf("srt not written: %q %v", data, err)
	}
}

func TestImagesOneCallPerGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Image.Count = 2
	var prompts []string
	g := newGenerators(t, cfg, stagegen.Deps{
		Images: testsupport.ImageFunc(func(_ context.Context, prompt string, _, _, count int) ([]string, error) {
			if count != 1 {
				t.Fatalf("expected one image per call, got %d", count)
			}
			prompts = append(prompts, prompt)
			return []string{"/img/" + string(rune('a'+len(prompts)-1)) + ".png"}, nil
		}),
	})
	p := seeded(t, reference(), pipeline.NewScriptPayload(transcript, pipeline.ModeManual))

	payload, err := g.Generate(context.Background(), p, pipeline.StageImages)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	images := payload.(*pipeline.ImagesPayload)
	if len(images.References) != 2 || images.References[0] != "/img/a.png" || images.References[1] != "/img/b.png" {
		t.Fatalf("unexpected references %v", images.References)
	}
	if !strings.Contains(prompts[0], "Cats sleep") || !strings.Contains(prompts[0], "hunt at dawn") {
		t.Fatalf("first group should hold the first two sentences: %q", prompts[0])
	}
	if !strings.Contains(prompts[1], "whiskers") {
		t.Fatalf("second group should hold the last sentence: %q", prompts[1])
	}
}

func TestImagesFailureStopsLoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Image.Count = 3
	calls := 0
	g := newGenerators(t, cfg, stagegen.Deps{
		Images: testsupport.ImageFunc(func(context.Context, string, int, int, int) ([]string, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("quota")
			}
			return []string{"/img.png"}, nil
		}),
	})
	p := seeded(t, reference(), pipeline.NewScriptPayload(transcript, pipeline.ModeManual))
	if _, err := g.Generate(context.Background(), p, pipeline.StageImages); err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Fatalf("expected loop to stop after failure, got %d calls", calls)
	}
}

func videoReady(t *testing.T, cfg *config.Config) *pipeline.Project {
	t.Helper()
	dir := cfg.ProjectAssetsDir("proj-1")
	audio := testsupport.WriteFile(t, filepath.Join(dir, "narration.mp3"), 10)
	compressed := testsupport.WriteFile(t, filepath.Join(dir, "narration.compressed.mp3"), 5)
	return seeded(t,
		reference(),
		pipeline.NewScriptPayload(transcript, pipeline.ModeManual),
		&pipeline.AudioPayload{Mode: pipeline.ModeManual, Path: audio, DurationSeconds: 20},
		&pipeline.AudioCompressPayload{Mode: pipeline.ModeManual, Path: compressed},
		&pipeline.SubtitlesPayload{Mode: pipeline.ModeManual, Segments: []pipeline.SubtitleSegment{{Index: 1, End: 2, Text: "hi"}}, Path: filepath.Join(dir, "subtitles.srt")},
		&pipeline.ImagesPayload{Mode: pipeline.ModeManual, References: []string{"/a.png", "/b.png"}},
	)
}

func TestVideoRendersWithCompressedAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	renderer := &testsupport.FakeRenderer{}
	g := newGenerators(t, cfg, stagegen.Deps{Renderer: renderer})
	p := videoReady(t, cfg)

	payload, err := g.Next(context.Background(), p)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	video := payload.(*pipeline.VideoPayload)
	if renderer.RenderCount() != 1 {
		t.Fatalf("expected one render, got %d", renderer.RenderCount())
	}
	input := renderer.Renders[0]
	if !strings.HasSuffix(input.AudioPath, "narration.compressed.mp3") {
		t.Fatalf("expected compressed audio, got %q", input.AudioPath)
	}
	if input.SubtitlePath == "" || input.DurationSeconds != 20 || len(input.ImagePaths) != 2 {
		t.Fatalf("unexpected render input %+v", input)
	}
	if video.Path != input.OutputPath || video.DurationSeconds != 20 {
		t.Fatalf("unexpected video payload %+v", video)
	}
}

func TestVideoUnavailableRenderer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	unavailable := errors.New("ffmpeg missing")
	renderer := &testsupport.FakeRenderer{Unavailable: unavailable}
	g := newGenerators(t, cfg, stagegen.Deps{Renderer: renderer})

	_, err := g.Next(context.Background(), videoReady(t, cfg))
	if !errors.Is(err, unavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if renderer.RenderCount() != 0 {
		t.Fatal("render should not run")
	}
}

func TestPublishVideoAndThumbnail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	publisher := providers.NewDirectoryPublisher(cfg.Paths.PublishDir)
	g := newGenerators(t, cfg, stagegen.Deps{
		Publisher: publisher,
		Images: testsupport.ImageFunc(func(context.Context, string, int, int, int) ([]string, error) {
			return []string{testsupport.WriteFile(t, filepath.Join(cfg.ProjectAssetsDir("proj-1"), "thumb.png"), 8)}, nil
		}),
	})
	video := testsupport.WriteFile(t, filepath.Join(cfg.ProjectAssetsDir("proj-1"), "video.mp4"), 32)
	now := time.Now()
	p, err := pipeline.Advance(videoReady(t, cfg), &pipeline.VideoPayload{Mode: pipeline.ModeManual, Path: video}, now)
	if err != nil {
		t.Fatalf("advance video: %v", err)
	}

	payload, err := g.Next(context.Background(), p)
	if err != nil {
		t.Fatalf("publish video: %v", err)
	}
	published := payload.(*pipeline.PublishVideoPayload)
	if published.Platform != "directory" || published.ExternalID == "" || !published.HasContent() {
		t.Fatalf("unexpected publish payload %+v", published)
	}
	if p, err = pipeline.Advance(p, published, now); err != nil {
		t.Fatalf("advance publish: %v", err)
	}

	thumb, err := g.Next(context.Background(), p)
	if err != nil {
		t.Fatalf("thumbnail: %v", err)
	}
	if p, err = pipeline.Advance(p, thumb, now); err != nil {
		t.Fatalf("advance thumbnail: %v", err)
	}
	confirmed, err := g.Next(context.Background(), p)
	if err != nil {
		t.Fatalf("publish thumbnail: %v", err)
	}
	if !confirmed.HasContent() {
		t.Fatalf("expected confirmed thumbnail, got %+v", confirmed)
	}
}

func TestNextAtLastStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	g := newGenerators(t, cfg, stagegen.Deps{})
	p := seeded(t)
	p.CurrentStage = pipeline.LastStage()
	if _, err := g.Next(context.Background(), p); !errors.Is(err, pipeline.ErrTerminalStage) {
		t.Fatalf("expected ErrTerminalStage, got %v", err)
	}
}
