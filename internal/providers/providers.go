// Package providers declares the contracts between the pipeline and the
// external generation services (text, image, speech, transcripts, rendering,
// publishing) plus small helpers shared by their implementations.
package providers

import (
	"context"
	"time"
)

// TextGenerator produces text from a system and user prompt. An empty model
// selects the provider's configured default.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
}

// ImageGenerator produces count images for prompt and returns one reference
// (file path or URL) per image.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, width, height, count int) ([]string, error)
}

// VoiceSynthesizer converts text to encoded audio bytes.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Transcript is the text and metadata retrieved for a reference video.
type Transcript struct {
	VideoID         string
	URL             string
	Title           string
	Channel         string
	Language        string
	Text            string
	DurationSeconds float64
}

// TranscriptFetcher retrieves a reference video's transcript. Implementations
// bound each call with their own timeout.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) (Transcript, error)
}

// RenderInput describes one video assembly.
type RenderInput struct {
	OutputPath   string
	ImagePaths   []string
	AudioPath    string
	SubtitlePath string
	Width        int
	Height       int
	FPS          int
	// DurationSeconds is the total target length; images share it evenly.
	DurationSeconds float64
}

// Renderer assembles videos and compresses audio.
type Renderer interface {
	// Available reports why the backend cannot render, or nil when it can.
	Available() error
	Render(ctx context.Context, input RenderInput) (string, error)
	CompressAudio(ctx context.Context, src, dst string) error
}

// PublishMetadata accompanies a published file.
type PublishMetadata struct {
	Title       string
	Description string
	Tags        []string
	ChannelID   string
}

// PublishRecord identifies a published artifact.
type PublishRecord struct {
	Platform    string
	URL         string
	ExternalID  string
	PublishedAt time.Time
}

// Publisher uploads a finished artifact.
type Publisher interface {
	Publish(ctx context.Context, file string, meta PublishMetadata) (PublishRecord, error)
}
