package api

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"shortforge/internal/deps"
	"shortforge/internal/jobs"
	"shortforge/internal/pipeline"
)

// FromProject converts a pipeline project to its API representation.
func FromProject(p *pipeline.Project) Project {
	if p == nil {
		return Project{}
	}
	dto := Project{
		ID:         p.ID,
		ChannelID:  p.ChannelID,
		Title:      p.Title,
		Stage:      string(p.CurrentStage),
		StageLabel: p.CurrentStage.Label(),
		StageIndex: p.CurrentStage.Index() + 1,
		StageCount: len(pipeline.Stages()),
		Status:     string(pipeline.EffectiveStatus(p)),
		Error:      p.ErrorMessage,
		CreatedAt:  formatTime(p.CreatedAt),
		UpdatedAt:  formatTime(p.UpdatedAt),
	}
	for _, stage := range p.CurrentStage.Completed() {
		dto.Completed = append(dto.Completed, string(stage))
	}
	if payload, ok := p.Current(); ok {
		dto.HasData = payload.HasContent()
		dto.Summary = SummarizePayload(payload)
	}
	return dto
}

// FromProjects converts projects in order.
func FromProjects(projects []*pipeline.Project) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, FromProject(p))
	}
	return out
}

// SummarizePayload renders a one-line description of a stage payload.
func SummarizePayload(payload pipeline.Payload) string {
	switch p := payload.(type) {
	case *pipeline.ReferencePayload:
		label := firstNonEmpty(p.Title, p.URL, p.VideoID)
		if words := len(strings.Fields(p.Transcript)); words > 0 {
			return fmt.Sprintf("%s (%d transcript words)", label, words)
		}
		return label
	case *pipeline.ScriptPayload:
		return fmt.Sprintf("%d words", p.WordCount)
	case *pipeline.AudioPayload:
		return fmt.Sprintf("%s (%.1fs)", p.Path, p.DurationSeconds)
	case *pipeline.AudioCompressPayload:
		return fmt.Sprintf("%s (%d -> %d bytes)", p.Path, p.OriginalBytes, p.CompressedBytes)
	case *pipeline.SubtitlesPayload:
		return fmt.Sprintf("%d segments", len(p.Segments))
	case *pipeline.ImagesPayload:
		return fmt.Sprintf("%d images", len(p.References))
	case *pipeline.VideoPayload:
		return p.Path
	case *pipeline.PublishVideoPayload:
		return firstNonEmpty(p.URL, p.ExternalID)
	case *pipeline.ThumbnailPayload:
		return p.Path
	case *pipeline.PublishThumbnailPayload:
		if p.Confirmed {
			return firstNonEmpty(p.URL, p.Note, "confirmed")
		}
		return ""
	}
	return ""
}

// FromJob converts a job to its API representation.
func FromJob(job jobs.Job) Job {
	dto := Job{
		ID:        job.ID,
		Theme:     job.Theme,
		ChannelID: job.ChannelID,
		Status:    string(job.Status),
		Step:      string(job.Step),
		Progress:  job.Progress,
		Warnings:  job.WarningCount(),
		Error:     job.Error,
		Script:    job.Result.Script,
		AudioURL:  job.Result.MasterAudioURL,
		VideoURL:  job.Result.VideoURL,
		CreatedAt: formatTime(job.CreatedAt),
		UpdatedAt: formatTime(job.UpdatedAt),
	}
	if job.Step != "" {
		dto.StepLabel = job.Step.Label()
	}
	for _, seg := range job.Result.Storyboard {
		dto.Storyboard = append(dto.Storyboard, Segment{
			Text:         seg.Text,
			VisualPrompt: seg.VisualPrompt,
			ImageURL:     seg.ImageURL,
		})
	}
	if meta := job.Result.Metadata; meta != nil {
		dto.Metadata = &JobMetadata{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        slices.Clone(meta.Tags),
		}
	}
	for _, entry := range job.Logs {
		dto.Logs = append(dto.Logs, JobLog{
			Time:    formatTime(entry.Time),
			Level:   string(entry.Level),
			Step:    string(entry.Step),
			Message: entry.Message,
		})
	}
	return dto
}

// FromJobs converts jobs in order.
func FromJobs(list []jobs.Job) []Job {
	out := make([]Job, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}

// ToJob builds the engine job for a submit request.
func (r SubmitJobRequest) ToJob() jobs.Job {
	return jobs.Job{
		Theme:             strings.TrimSpace(r.Theme),
		ChannelID:         strings.TrimSpace(r.ChannelID),
		ReferenceScript:   strings.TrimSpace(r.ReferenceScript),
		ReferenceMetadata: r.ReferenceMetadata,
	}
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Path:        s.Path,
			Version:     s.Version,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Detail:      s.Detail,
		})
	}
	return out
}

// CountJobs tallies jobs by status, including zero counts for every status.
func CountJobs(list []jobs.Job) map[string]int {
	counts := map[string]int{}
	for _, status := range []jobs.Status{
		jobs.StatusPending, jobs.StatusQueued, jobs.StatusProcessing,
		jobs.StatusReviewPending, jobs.StatusCompleted, jobs.StatusFailed,
	} {
		counts[string(status)] = 0
	}
	for _, job := range list {
		counts[string(job.Status)]++
	}
	return counts
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
