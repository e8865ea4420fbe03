package testsupport

import (
	"context"
	"sync"

	"shortforge/internal/fileutil"
	"shortforge/internal/providers"
)

// TextFunc adapts a function to providers.TextGenerator.
type TextFunc func(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)

func (f TextFunc) Generate(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	return f(ctx, systemPrompt, userPrompt, model)
}

// ImageFunc adapts a function to providers.ImageGenerator.
type ImageFunc func(ctx context.Context, prompt string, width, height, count int) ([]string, error)

func (f ImageFunc) Generate(ctx context.Context, prompt string, width, height, count int) ([]string, error) {
	return f(ctx, prompt, width, height, count)
}

// VoiceFunc adapts a function to providers.VoiceSynthesizer.
type VoiceFunc func(ctx context.Context, text, voiceID string) ([]byte, error)

func (f VoiceFunc) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	return f(ctx, text, voiceID)
}

// TranscriptFunc adapts a function to providers.TranscriptFetcher.
type TranscriptFunc func(ctx context.Context, videoID string) (providers.Transcript, error)

func (f TranscriptFunc) Fetch(ctx context.Context, videoID string) (providers.Transcript, error) {
	return f(ctx, videoID)
}

// FakeRenderer records calls and writes a small placeholder file at each
// output path unless the matching error is set.
type FakeRenderer struct {
	mu           sync.Mutex
	Unavailable  error
	RenderErr    error
	CompressErr  error
	Renders      []providers.RenderInput
	Compressions [][2]string
}

func (r *FakeRenderer) Available() error { return r.Unavailable }

func (r *FakeRenderer) Render(_ context.Context, input providers.RenderInput) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Renders = append(r.Renders, input)
	if r.RenderErr != nil {
		return "", r.RenderErr
	}
	if err := fileutil.WriteFile(input.OutputPath, []byte("video")); err != nil {
		return "", err
	}
	return input.OutputPath, nil
}

func (r *FakeRenderer) CompressAudio(_ context.Context, src, dst string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Compressions = append(r.Compressions, [2]string{src, dst})
	if r.CompressErr != nil {
		return r.CompressErr
	}
	return fileutil.WriteFile(dst, []byte("mp3"))
}

// RenderCount returns the number of Render calls.
func (r *FakeRenderer) RenderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Renders)
}
