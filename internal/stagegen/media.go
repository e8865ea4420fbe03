package stagegen

import (
	"context"
	"fmt"
	"os"
	"strings"

	"shortforge/internal/fileutil"
	"shortforge/internal/pipeline"
	"shortforge/internal/providers"
	"shortforge/internal/services"
	"shortforge/internal/textutil"
)

func generateAudio(ctx context.Context, g *Generators, p *pipeline.Project) (pipeline.Payload, error) {
	script, ok := p.Script()
	if !ok || !script.HasContent() {
		return nil, missing(pipeline.StageAudio, "script")
	}
	if g.deps.Voice == nil {
		return nil, unconfigured(pipeline.StageAudio, "voice")
	}
	profile := g.profile(p.ChannelID)
	audio, err := g.deps.Voice.Synthesize(ctx, script.Text, profile.VoiceID)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, string(pipeline.StageAudio), "synthesize narration", "voice provider failed", err)
	}
	path := g.assetPath(p, "narration.mp3")
	if err := fileutil.WriteFile(path, audio); err != nil {
		return nil, err
	}
	return &pipeline.AudioPayload{
		Mode:            pipeline.ModeAuto,
		Path:            path,
		DurationSeconds: textutil.EstimateSpeechSeconds(script.Text),
		VoiceID:         profile.VoiceID,
	}, nil
}

func generateAudioCompress(ctx context.Context, g *Generators, p *pipeline.Project) (pipeline.Payload, error) {
	audio, ok := payloadOf[*pipeline.AudioPayload](p, pipeline.StageAudio)
	if !ok || !audio.HasContent() {
		return nil, missing(pipeline.StageAudioCompress, "narration audio")
	}
	if g.deps.Renderer == nil {
		return nil, unconfigured(pipeline.StageAudioCompress, "render")
	}
	dst := g.assetPath(p, "narration.compressed.mp3")
	if err := g.deps.Renderer.CompressAudio(ctx, audio.Path, dst); err != nil {
		return nil, err
	}
	return &pipeline.AudioCompressPayload{
		Mode:            pipeline.ModeAuto,
		Path:            dst,
		OriginalBytes:   fileSize(audio.Path),
		CompressedBytes: fileSize(dst),
	}, nil
}

func generateSubtitles(_ context.Context, g *Generators, p *pipeline.Project) (pipeline.Payload, error) {
	script, ok := p.Script()
	if !ok || !script.HasContent() {
		return nil, missing(pipeline.StageSubtitles, "script")
	}
	duration := textutil.EstimateSpeechSeconds(script.Text)
	if audio, ok := payloadOf[*pipeline.AudioPayload](p, pipeline.StageAudio); ok && audio.DurationSeconds > 0 {
		duration = audio.DurationSeconds
	}
	segments := pipeline.TimeSegments(textutil.SplitSentences(script.Text), duration)
	path := g.assetPath(p, "subtitles.srt")
	if err := fileutil.WriteFile(path, []byte(pipeline.FormatSRT(segments))); err != nil {
		return nil, err
	}
	return &pipeline.SubtitlesPayload{Mode: pipeline.ModeAuto, Segments: segments, Path: path}, nil
}

// ImagePrompt builds the illustration prompt for one script fragment.
func ImagePrompt(fragment, style string) string {
	prompt := "Vertical illustration for a short video narration: " + strings.TrimSpace(fragment)
	if style = strings.TrimSpace(style); style != "" {
		prompt += " Style: " + style + "."
	}
	return prompt + " No text or captions in the image."
}

func generateImages(ctx context.Context, g *Generators, p *pipeline.Project) (pipeline.Payload, error) {
	script, ok := p.Script()
	if !ok || !script.HasContent() {
		return nil, missing(pipeline.StageImages, "script")
	}
	if g.deps.Images == nil {
		return nil, unconfigured(pipeline.StageImages, "image")
	}
	cfg := g.config()
	profile := g.profile(p.ChannelID)
	payload := &pipeline.ImagesPayload{Mode: pipeline.ModeAuto}
	for idx, group := range textutil.Distribute(textutil.SplitSentences(script.Text), cfg.Image.Count) {
		if len(group) == 0 {
			continue
		}
		prompt := ImagePrompt(strings.Join(group, " "), profile.ImageStyle)
		refs, err := g.deps.Images.Generate(ctx, prompt, cfg.Image.Width, cfg.Image.Height, 1)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, string(pipeline.StageImages), "generate images",
				fmt.Sprintf("image %d failed", idx+1), err)
		}
		if len(refs) == 0 {
			return nil, services.Wrap(services.ErrExternalTool, string(pipeline.StageImages), "generate images",
				fmt.Sprintf("image %d returned no reference", idx+1), nil)
		}
		payload.References = append(payload.References, refs[0])
		payload.Prompts = append(payload.Prompts, prompt)
	}
	return payload, nil
}

func generateVideo(ctx context.Context, g *Generators, p *pipeline.Project) (pipeline.Payload, error) {
	images, ok := payloadOf[*pipeline.ImagesPayload](p, pipeline.StageImages)
	if !ok || !images.HasContent() {
		return nil, missing(pipeline.StageVideo, "images")
	}
	audioPath, duration := narration(p)
	if audioPath == "" {
		return nil, missing(pipeline.StageVideo, "narration audio")
	}
	if g.deps.Renderer == nil {
		return nil, unconfigured(pipeline.StageVideo, "render")
	}
	if err := g.deps.Renderer.Available(); err != nil {
		return nil, err
	}
	input := providers.RenderInput{
		OutputPath:      g.assetPath(p, "video.mp4"),
		ImagePaths:      images.References,
		AudioPath:       audioPath,
		Width:           g.config().Render.Width,
		Height:          g.config().Render.Height,
		FPS:             g.config().Render.FPS,
		DurationSeconds: duration,
	}
	if subs, ok := payloadOf[*pipeline.SubtitlesPayload](p, pipeline.StageSubtitles); ok {
		input.SubtitlePath = subs.Path
	}
	out, err := g.deps.Renderer.Render(ctx, input)
	if err != nil {
		return nil, err
	}
	return &pipeline.VideoPayload{Mode: pipeline.ModeAuto, Path: out, DurationSeconds: duration}, nil
}

// narration prefers the compressed audio and falls back to the original.
func narration(p *pipeline.Project) (string, float64) {
	var duration float64
	path := ""
	if audio, ok := payloadOf[*pipeline.AudioPayload](p, pipeline.StageAudio); ok {
		path, duration = audio.Path, audio.DurationSeconds
	}
	if compressed, ok := payloadOf[*pipeline.AudioCompressPayload](p, pipeline.StageAudioCompress); ok && compressed.HasContent() {
		if _, err := os.Stat(compressed.Path); err == nil {
			path = compressed.Path
		}
	}
	return path, duration
}

func generateThumbnail(ctx context.Context, g *Generators, p *pipeline.Project) (pipeline.Payload, error) {
	if g.deps.Images == nil {
		return nil, unconfigured(pipeline.StageThumbnail, "image")
	}
	subject := p.Title
	if script, ok := p.Script(); ok && subject == "" {
		subject = firstSentence(script.Text)
	}
	if strings.TrimSpace(subject) == "" {
		return nil, missing(pipeline.StageThumbnail, "title")
	}
	cfg := g.config()
	prompt := "Eye-catching vertical video thumbnail about: " + subject + ". Bold composition, no text."
	refs, err := g.deps.Images.Generate(ctx, prompt, cfg.Image.Width, cfg.Image.Height, 1)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, string(pipeline.StageThumbnail), "generate thumbnail", "image provider failed", err)
	}
	if len(refs) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, string(pipeline.StageThumbnail), "generate thumbnail", "image provider returned no reference", nil)
	}
	return &pipeline.ThumbnailPayload{Mode: pipeline.ModeAuto, Path: refs[0]}, nil
}
