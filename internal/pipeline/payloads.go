package pipeline

import (
	"strings"
	"time"
)

// Mode records whether a payload came from a generator or from a human.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// Payload is the stage-specific data stored for a project. Each stage has
// exactly one concrete payload type, registered in the stage registry.
type Payload interface {
	Stage() Stage
	PayloadMode() Mode
	// HasContent reports whether the payload carries enough to count as ready.
	HasContent() bool
}

// ReferencePayload identifies the source video and its transcript.
type ReferencePayload struct {
	Mode            Mode    `json:"mode"`
	VideoID         string  `json:"video_id,omitempty"`
	URL             string  `json:"url,omitempty"`
	Title           string  `json:"title,omitempty"`
	Channel         string  `json:"channel,omitempty"`
	Language        string  `json:"language,omitempty"`
	Transcript      string  `json:"transcript,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

func (p *ReferencePayload) Stage() Stage      { return StageReference }
func (p *ReferencePayload) PayloadMode() Mode { return p.Mode }
func (p *ReferencePayload) HasContent() bool  { return strings.TrimSpace(p.Transcript) != "" }

// ScriptPayload is the narration script.
type ScriptPayload struct {
	Mode      Mode   `json:"mode"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	Model     string `json:"model,omitempty"`
}

// NewScriptPayload trims text and computes its word count.
func NewScriptPayload(text string, mode Mode) *ScriptPayload {
	text = strings.TrimSpace(text)
	return &ScriptPayload{Mode: mode, Text: text, WordCount: len(strings.Fields(text))}
}

func (p *ScriptPayload) Stage() Stage      { return StageScript }
func (p *ScriptPayload) PayloadMode() Mode { return p.Mode }
func (p *ScriptPayload) HasContent() bool  { return strings.TrimSpace(p.Text) != "" }

// AudioPayload is the synthesized or uploaded narration.
type AudioPayload struct {
	Mode            Mode    `json:"mode"`
	Path            string  `json:"path"`
	DurationSeconds float64 `json:"duration_seconds"`
	VoiceID         string  `json:"voice_id,omitempty"`
}

func (p *AudioPayload) Stage() Stage      { return StageAudio }
func (p *AudioPayload) PayloadMode() Mode { return p.Mode }
func (p *AudioPayload) HasContent() bool  { return strings.TrimSpace(p.Path) != "" }

// AudioCompressPayload is the size-reduced narration.
type AudioCompressPayload struct {
	Mode            Mode   `json:"mode"`
	Path            string `json:"path"`
	OriginalBytes   int64  `json:"original_bytes"`
	CompressedBytes int64  `json:"compressed_bytes"`
}

func (p *AudioCompressPayload) Stage() Stage      { return StageAudioCompress }
func (p *AudioCompressPayload) PayloadMode() Mode { return p.Mode }
func (p *AudioCompressPayload) HasContent() bool  { return strings.TrimSpace(p.Path) != "" }

// SubtitleSegment is one timed caption. Plain-text input leaves times at zero.
type SubtitleSegment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// SubtitlesPayload holds caption segments and, once written, the SRT file.
type SubtitlesPayload struct {
	Mode     Mode              `json:"mode"`
	Segments []SubtitleSegment `json:"segments"`
	Path     string            `json:"path,omitempty"`
}

func (p *SubtitlesPayload) Stage() Stage      { return StageSubtitles }
func (p *SubtitlesPayload) PayloadMode() Mode { return p.Mode }
func (p *SubtitlesPayload) HasContent() bool  { return len(p.Segments) > 0 }

// ImagesPayload lists the illustration references (paths or URLs).
type ImagesPayload struct {
	Mode       Mode     `json:"mode"`
	References []string `json:"references"`
	Prompts    []string `json:"prompts,omitempty"`
}

func (p *ImagesPayload) Stage() Stage      { return StageImages }
func (p *ImagesPayload) PayloadMode() Mode { return p.Mode }
func (p *ImagesPayload) HasContent() bool  { return len(p.References) > 0 }

// VideoPayload is the rendered video file.
type VideoPayload struct {
	Mode            Mode    `json:"mode"`
	Path            string  `json:"path"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

func (p *VideoPayload) Stage() Stage      { return StageVideo }
func (p *VideoPayload) PayloadMode() Mode { return p.Mode }
func (p *VideoPayload) HasContent() bool  { return strings.TrimSpace(p.Path) != "" }

// PublishVideoPayload records where the video was published.
type PublishVideoPayload struct {
	Mode        Mode      `json:"mode"`
	Platform    string    `json:"platform,omitempty"`
	URL         string    `json:"url,omitempty"`
	ExternalID  string    `json:"external_id,omitempty"`
	PublishedAt time.Time `json:"published_at,omitzero"`
}

func (p *PublishVideoPayload) Stage() Stage      { return StagePublishVideo }
func (p *PublishVideoPayload) PayloadMode() Mode { return p.Mode }
func (p *PublishVideoPayload) HasContent() bool {
	return strings.TrimSpace(p.URL) != "" || strings.TrimSpace(p.ExternalID) != ""
}

// ThumbnailPayload is the thumbnail image file.
type ThumbnailPayload struct {
	Mode Mode   `json:"mode"`
	Path string `json:"path"`
}

func (p *ThumbnailPayload) Stage() Stage      { return StageThumbnail }
func (p *ThumbnailPayload) PayloadMode() Mode { return p.Mode }
func (p *ThumbnailPayload) HasContent() bool  { return strings.TrimSpace(p.Path) != "" }

// PublishThumbnailPayload confirms the thumbnail was attached to the video.
type PublishThumbnailPayload struct {
	Mode      Mode   `json:"mode"`
	Confirmed bool   `json:"confirmed"`
	URL       string `json:"url,omitempty"`
	Note      string `json:"note,omitempty"`
}

func (p *PublishThumbnailPayload) Stage() Stage      { return StagePublishThumbnail }
func (p *PublishThumbnailPayload) PayloadMode() Mode { return p.Mode }
func (p *PublishThumbnailPayload) HasContent() bool  { return p.Confirmed }
