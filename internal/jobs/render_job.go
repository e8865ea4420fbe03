package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"shortforge/internal/fileutil"
	"shortforge/internal/logging"
	"shortforge/internal/metrics"
	"shortforge/internal/notifications"
	"shortforge/internal/pipeline"
	"shortforge/internal/providers"
	"shortforge/internal/render"
	"shortforge/internal/services"
	"shortforge/internal/textutil"
)

// RenderAsync renders job id in the background on the engine's context.
// done, when non-nil, receives the outcome. Close waits for the render.
func (e *Engine) RenderAsync(id string, done func(Job, error)) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return services.Wrap(services.ErrValidation, string(StepRender), "render job", "engine is closed", nil)
	}
	e.wg.Add(1)
	e.mu.Unlock()
	go func() {
		defer e.wg.Done()
		job, err := e.RenderJob(e.baseCtx, id)
		if done != nil {
			done(job, err)
		}
	}()
	return nil
}

// RenderJob assembles the video for a job in review_pending. It waits for any
// job being generated to finish first. An unavailable renderer or a failed
// render fails the job and keeps its result; the unavailable case returns an
// error wrapping render.ErrRenderUnavailable with a hint.
func (e *Engine) RenderJob(ctx context.Context, id string) (Job, error) {
	e.exec.Lock()
	defer e.exec.Unlock()

	job, ok := e.Get(id)
	if !ok {
		return Job{}, services.Wrap(services.ErrNotFound, string(StepRender), "render job", "job "+id+" not found", nil)
	}
	if job.Status != StatusReviewPending {
		return job, services.Wrap(services.ErrValidation, string(StepRender), "render job",
			fmt.Sprintf("job is %s; only jobs awaiting review can be rendered", job.Status), nil)
	}
	ctx = services.WithJobID(ctx, id)
	logger := logging.WithContext(services.WithStage(ctx, string(StepRender)), e.logger)

	if err := e.renderAvailable(); err != nil {
		return e.fail(ctx, id, StepRender, err), err
	}

	e.update(ctx, id, func(j *Job) {
		j.Status = StatusProcessing
		j.Step = StepRender
		j.appendLog(e.now(), LevelInfo, "Rendering video")
	})

	cfg := e.currentConfig()
	audio := job.Result.MasterAudioURL
	if strings.TrimSpace(audio) == "" {
		profile := e.profile(job.ChannelID)
		path, err := e.synthesize(ctx, cfg, id, job.Result.Script, profile.VoiceID)
		if err != nil {
			failed := e.fail(ctx, id, StepRender, fmt.Errorf("narration unavailable: %w", err))
			return failed, err
		}
		audio = path
		e.update(ctx, id, func(j *Job) {
			j.Result.MasterAudioURL = path
			j.appendLog(e.now(), LevelInfo, "Narration ready")
		})
	}

	images := make([]string, 0, len(job.Result.Storyboard))
	texts := make([]string, 0, len(job.Result.Storyboard))
	for _, segment := range job.Result.Storyboard {
		if segment.ImageURL != "" {
			images = append(images, segment.ImageURL)
		}
		if segment.Text != "" {
			texts = append(texts, segment.Text)
		}
	}
	dir := jobDir(cfg, id)
	duration := textutil.EstimateSpeechSeconds(job.Result.Script)
	subtitles := filepath.Join(dir, "subtitles.srt")
	if err := fileutil.WriteFile(subtitles, []byte(pipeline.FormatSRT(pipeline.TimeSegments(texts, duration)))); err != nil {
		subtitles = ""
	}

	name := textutil.SanitizeFileName(job.Theme)
	if job.Result.Metadata != nil && job.Result.Metadata.Title != "" {
		name = textutil.SanitizeFileName(job.Result.Metadata.Title)
	}
	out, err := e.providers.Renderer.Render(ctx, providers.RenderInput{
		OutputPath:      filepath.Join(dir, name+".mp4"),
		ImagePaths:      images,
		AudioPath:       audio,
		SubtitlePath:    subtitles,
		Width:           cfg.Render.Width,
		Height:          cfg.Render.Height,
		FPS:             cfg.Render.FPS,
		DurationSeconds: duration,
	})
	if err != nil {
		return e.fail(ctx, id, StepRender, err), err
	}

	done := e.update(ctx, id, func(j *Job) {
		j.Status = StatusCompleted
		j.Step = StepRender
		j.Progress = ProgressCompleted
		j.Result.VideoURL = out
		j.appendLog(e.now(), LevelInfo, "Video rendered")
	})
	metrics.JobOutcome(string(StatusCompleted))
	e.notify(ctx, notifications.EventJobCompleted, notifications.Payload{"theme": done.Theme, "video": out})
	logger.Info("job rendered", logging.String("video", out))
	return done, nil
}

func (e *Engine) renderAvailable() error {
	const hint = "install ffmpeg or set render.ffmpeg_binary, then render the job again"
	if e.providers.Renderer == nil {
		return services.WithHint(services.Wrap(render.ErrRenderUnavailable, string(StepRender), "check renderer", "no renderer configured", nil), hint)
	}
	err := e.providers.Renderer.Available()
	if err == nil || errors.Is(err, render.ErrRenderUnavailable) {
		return err
	}
	return services.WithHint(services.Wrap(render.ErrRenderUnavailable, string(StepRender), "check renderer", "renderer unavailable", err), hint)
}
