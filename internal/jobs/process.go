package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"shortforge/internal/config"
	"shortforge/internal/fileutil"
	"shortforge/internal/language"
	"shortforge/internal/logging"
	"shortforge/internal/metrics"
	"shortforge/internal/notifications"
	"shortforge/internal/services"
	"shortforge/internal/services/llm"
)

type scriptResponse struct {
	Script        string   `json:"script"`
	VisualPrompts []string `json:"visual_prompts"`
}

type metadataResponse struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ProcessJob runs scripting, images, voice, and metadata for job, then parks
// it in review_pending. Scripting and image failures fail the job; voice and
// metadata failures are recorded as warnings.
func (e *Engine) ProcessJob(ctx context.Context, job Job) Job {
	e.exec.Lock()
	defer e.exec.Unlock()

	if _, ok := e.Get(job.ID); !ok {
		e.mu.Lock()
		stored := job.Clone()
		e.jobs[job.ID] = &stored
		e.mu.Unlock()
	}
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, e.logger)
	cfg := e.currentConfig()
	profile := e.profile(job.ChannelID)
	segments := max(cfg.Jobs.Segments, 1)

	e.update(ctx, job.ID, func(j *Job) {
		j.Status = StatusProcessing
		j.Step = StepScripting
		j.Progress = 0
		j.Error = ""
		j.Result = Result{}
		j.appendLog(e.now(), LevelInfo, "Generating script")
	})
	logger.Info("job processing started", logging.String("theme", job.Theme), logging.Int("segments", segments))

	storyboard, script, err := e.generateScript(ctx, job, cfg, profile, segments)
	if err != nil {
		return e.fail(ctx, job.ID, StepScripting, err)
	}
	e.update(ctx, job.ID, func(j *Job) {
		j.Result.Script = script
		j.Result.Storyboard = storyboard
		j.Progress = ProgressScripting
		j.appendLog(e.now(), LevelInfo, fmt.Sprintf("Script ready (%d words, %d segments)", len(strings.Fields(script)), len(storyboard)))
		j.Step = StepImages
	})

	for i, segment := range storyboard {
		url, err := e.generateImage(ctx, cfg, segment.VisualPrompt)
		if err != nil {
			return e.fail(ctx, job.ID, StepImages, fmt.Errorf("segment %d: %w", i+1, err))
		}
		e.update(ctx, job.ID, func(j *Job) {
			j.Result.Storyboard[i].ImageURL = url
			j.Progress = ImagesProgress(i, len(storyboard))
			j.appendLog(e.now(), LevelInfo, fmt.Sprintf("Image %d/%d ready", i+1, len(storyboard)))
		})
	}

	e.update(ctx, job.ID, func(j *Job) { j.Step = StepVoice })
	audio, err := e.synthesize(ctx, cfg, job.ID, script, profile.VoiceID)
	e.update(ctx, job.ID, func(j *Job) {
		j.Progress = ProgressVoice
		if err != nil {
			j.appendLog(e.now(), LevelWarn, "Voice synthesis failed, continuing without narration: "+err.Error())
			return
		}
		j.Result.MasterAudioURL = audio
		j.appendLog(e.now(), LevelInfo, "Narration ready")
	})
	if err != nil {
		logging.WarnWithContext(logger, "voice synthesis failed", "job_voice_failed",
			logging.String(logging.FieldStage, string(StepVoice)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job continues without narration"),
			logging.String(logging.FieldErrorHint, "narration is retried when the job is rendered"),
		)
	}

	e.update(ctx, job.ID, func(j *Job) { j.Step = StepMetadata })
	meta, err := e.generateMetadata(ctx, job, script, profile)
	e.update(ctx, job.ID, func(j *Job) {
		j.Progress = ProgressMetadata
		if err != nil {
			j.appendLog(e.now(), LevelWarn, "Metadata generation failed: "+err.Error())
			return
		}
		j.Result.Metadata = meta
		j.appendLog(e.now(), LevelInfo, "Metadata ready")
	})
	if err != nil {
		logging.WarnWithContext(logger, "metadata generation failed", "job_metadata_failed",
			logging.String(logging.FieldStage, string(StepMetadata)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job continues without title, description, or tags"),
		)
	}

	final := e.update(ctx, job.ID, func(j *Job) {
		j.Status = StatusReviewPending
		j.Step = StepReview
		j.Progress = ProgressReview
		j.appendLog(e.now(), LevelInfo, "Awaiting review")
	})
	metrics.JobOutcome(string(StatusReviewPending))
	e.notify(ctx, notifications.EventJobReview, notifications.Payload{
		"theme":    final.Theme,
		"segments": len(final.Result.Storyboard),
	})
	logger.Info("job awaiting review",
		logging.Int("warnings", final.WarningCount()),
		logging.Int("segments", len(final.Result.Storyboard)),
	)
	return final
}

// fail marks the job failed at step. Partial results are cleared unless the
// failure happened while rendering a reviewed job.
func (e *Engine) fail(ctx context.Context, id string, step Step, err error) Job {
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = "unknown error"
	}
	snapshot := e.update(ctx, id, func(j *Job) {
		j.Status = StatusFailed
		j.Step = step
		j.Error = message
		if step != StepRender {
			j.Result = Result{}
		}
		j.appendLog(e.now(), LevelError, fmt.Sprintf("%s failed: %s", step.Label(), message))
	})
	metrics.JobOutcome(string(StatusFailed))
	logging.ErrorWithContext(logging.WithContext(services.WithStage(ctx, string(step)), e.logger), "job failed", "job_failed",
		append(logging.ErrorDetails(err), logging.String(logging.FieldJobID, id))...)
	e.notify(ctx, notifications.EventJobFailed, notifications.Payload{
		"theme": snapshot.Theme,
		"step":  string(step),
		"error": message,
	})
	return snapshot
}

func (e *Engine) generateScript(ctx context.Context, job Job, cfg *config.Config, profile config.Profile, segments int) ([]Segment, string, error) {
	if e.providers.Text == nil {
		return nil, "", services.Wrap(services.ErrConfiguration, string(StepScripting), "generate script", "text provider not configured", nil)
	}
	system := fmt.Sprintf("You write narration for vertical short-form videos under 60 seconds in %s with a %s tone. "+
		"Respond with JSON: {\"script\": string, \"visual_prompts\": [string]} with exactly %d visual prompts, one per part of the script in order.",
		language.DisplayName(profile.Language), fallback(profile.Tone, "engaging"), segments)
	if prompt := strings.TrimSpace(profile.SystemPrompt); prompt != "" {
		system = prompt + "\n\n" + system
	}
	user := "Theme: " + job.Theme
	if ref := strings.TrimSpace(job.ReferenceScript); ref != "" {
		user += "\n\nReference script (rewrite, do not copy):\n" + ref
	}
	for key, value := range job.ReferenceMetadata {
		user += fmt.Sprintf("\n%s: %s", key, value)
	}

	content, err := e.providers.Text.Generate(ctx, system, user, cfg.Text.Model)
	if err != nil {
		return nil, "", services.Wrap(services.ErrExternalTool, string(StepScripting), "generate script", "text provider failed", err)
	}
	resp := parseScript(content)
	if strings.TrimSpace(resp.Script) == "" {
		return nil, "", services.Wrap(services.ErrExternalTool, string(StepScripting), "generate script", "text provider returned an empty script", nil)
	}

	storyboard := make([]Segment, 0, segments)
	for i, text := range SplitScript(resp.Script, segments) {
		prompt := ""
		if i < len(resp.VisualPrompts) {
			prompt = strings.TrimSpace(resp.VisualPrompts[i])
		}
		if prompt == "" {
			prompt = fallback(text, job.Theme)
		}
		if style := strings.TrimSpace(profile.ImageStyle); style != "" {
			prompt += " Style: " + style + "."
		}
		storyboard = append(storyboard, Segment{Text: text, VisualPrompt: prompt})
	}
	return storyboard, strings.TrimSpace(resp.Script), nil
}

// parseScript accepts the JSON shape or falls back to treating the reply as
// plain narration.
func parseScript(content string) scriptResponse {
	var resp scriptResponse
	if err := llm.DecodeLLMJSON(content, &resp); err == nil && strings.TrimSpace(resp.Script) != "" {
		return resp
	}
	return scriptResponse{Script: llm.StripCodeFence(content)}
}

func (e *Engine) generateImage(ctx context.Context, cfg *config.Config, prompt string) (string, error) {
	if e.providers.Images == nil {
		return "", services.Wrap(services.ErrConfiguration, string(StepImages), "generate image", "image provider not configured", nil)
	}
	refs, err := e.providers.Images.Generate(ctx, prompt, cfg.Image.Width, cfg.Image.Height, 1)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, string(StepImages), "generate image", "image provider failed", err)
	}
	if len(refs) == 0 || strings.TrimSpace(refs[0]) == "" {
		return "", services.Wrap(services.ErrExternalTool, string(StepImages), "generate image", "image provider returned no reference", nil)
	}
	return refs[0], nil
}

func (e *Engine) synthesize(ctx context.Context, cfg *config.Config, id, script, voiceID string) (string, error) {
	if e.providers.Voice == nil {
		return "", services.Wrap(services.ErrConfiguration, string(StepVoice), "synthesize", "voice provider not configured", nil)
	}
	audio, err := e.providers.Voice.Synthesize(ctx, script, voiceID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(jobDir(cfg, id), "narration.mp3")
	if err := fileutil.WriteFile(path, audio); err != nil {
		return "", err
	}
	return path, nil
}

func (e *Engine) generateMetadata(ctx context.Context, job Job, script string, profile config.Profile) (*Metadata, error) {
	if e.providers.Text == nil {
		return nil, services.Wrap(services.ErrConfiguration, string(StepMetadata), "generate metadata", "text provider not configured", nil)
	}
	system := fmt.Sprintf("You write publishing metadata for short-form videos in %s. "+
		"Respond with JSON: {\"title\": string, \"description\": string, \"tags\": [string]}. "+
		"Title under 70 characters, at most 8 tags without '#'.", language.DisplayName(profile.Language))
	content, err := e.providers.Text.Generate(ctx, system, "Theme: "+job.Theme+"\n\nScript:\n"+script, "")
	if err != nil {
		return nil, err
	}
	var resp metadataResponse
	if err := llm.DecodeLLMJSON(content, &resp); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if strings.TrimSpace(resp.Title) == "" {
		return nil, fmt.Errorf("metadata response has no title")
	}
	tags := make([]string, 0, len(resp.Tags))
	for _, tag := range resp.Tags {
		if tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#")); tag != "" {
			tags = append(tags, tag)
		}
	}
	return &Metadata{
		Title:       strings.TrimSpace(resp.Title),
		Description: strings.TrimSpace(resp.Description),
		Tags:        tags,
	}, nil
}

func jobDir(cfg *config.Config, id string) string {
	return filepath.Join(cfg.Paths.AssetsDir, "jobs", id)
}

func fallback(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
