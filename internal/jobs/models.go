package jobs

import (
	"maps"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending       Status = "pending"
	StatusQueued        Status = "queued"
	StatusProcessing    Status = "processing"
	StatusReviewPending Status = "review_pending"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusQueued,
	StatusProcessing,
	StatusReviewPending,
	StatusCompleted,
	StatusFailed,
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(allStatuses, normalized) {
		return normalized, true
	}
	return "", false
}

// Terminal reports whether no further automatic work happens for s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Step is the phase a job is in.
type Step string

const (
	StepScripting Step = "scripting"
	StepImages    Step = "images"
	StepVoice     Step = "voice"
	StepMetadata  Step = "metadata"
	StepReview    Step = "review"
	StepRender    Step = "render"
)

var titleCaser = cases.Title(language.English)

// Label renders the step for display.
func (s Step) Label() string {
	return titleCaser.String(string(s))
}

// Progress checkpoints.
const (
	ProgressScripting   = 20
	ProgressImagesStart = 20
	ProgressImagesEnd   = 70
	ProgressVoice       = 80
	ProgressMetadata    = 90
	ProgressReview      = 90
	ProgressCompleted   = 100
)

// ImagesProgress returns the checkpoint after the i-th (0-based) of n images.
func ImagesProgress(i, n int) int {
	if n <= 0 {
		return ProgressImagesEnd
	}
	return ProgressImagesStart + (ProgressImagesEnd-ProgressImagesStart)*(i+1)/n
}

// LogLevel is the severity of a job log entry.
type LogLevel string

const (
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// LogEntry is one append-only job log line.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   LogLevel  `json:"level"`
	Step    Step      `json:"step"`
	Message string    `json:"message"`
}

// Segment is one storyboard entry.
type Segment struct {
	Text         string `json:"text"`
	VisualPrompt string `json:"visual_prompt"`
	ImageURL     string `json:"image_url,omitempty"`
	AudioURL     string `json:"audio_url,omitempty"`
}

// Metadata is the publishing metadata generated for a job.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Result holds everything a job has produced so far.
type Result struct {
	Script         string    `json:"script,omitempty"`
	Storyboard     []Segment `json:"storyboard,omitempty"`
	MasterAudioURL string    `json:"master_audio_url,omitempty"`
	Metadata       *Metadata `json:"metadata,omitempty"`
	VideoURL       string    `json:"video_url,omitempty"`
}

// Job is one ad-hoc single-shot generation request.
type Job struct {
	ID                string            `json:"id"`
	Theme             string            `json:"theme"`
	ChannelID         string            `json:"channel_id"`
	ReferenceScript   string            `json:"reference_script,omitempty"`
	ReferenceMetadata map[string]string `json:"reference_metadata,omitempty"`
	Status            Status            `json:"status"`
	Step              Step              `json:"step"`
	Progress          int               `json:"progress"`
	Logs              []LogEntry        `json:"logs"`
	Result            Result            `json:"result"`
	Error             string            `json:"error,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to observers.
func (j Job) Clone() Job {
	cp := j
	cp.ReferenceMetadata = maps.Clone(j.ReferenceMetadata)
	cp.Logs = slices.Clone(j.Logs)
	cp.Result.Storyboard = slices.Clone(j.Result.Storyboard)
	if j.Result.Metadata != nil {
		meta := *j.Result.Metadata
		meta.Tags = slices.Clone(meta.Tags)
		cp.Result.Metadata = &meta
	}
	return cp
}

// WarningCount returns the number of WARN log entries.
func (j Job) WarningCount() int {
	count := 0
	for _, entry := range j.Logs {
		if entry.Level == LevelWarn {
			count++
		}
	}
	return count
}
