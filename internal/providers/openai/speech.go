package openai

import (
	"context"
	"fmt"
	"io"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"

	"shortforge/internal/config"
)

// VoiceSynthesizer implements providers.VoiceSynthesizer with the speech endpoint.
type VoiceSynthesizer struct {
	base
	model        string
	defaultVoice string
}

// NewVoiceSynthesizer builds a TTS adapter from the [voice] config section.
func NewVoiceSynthesizer(cfg config.Voice, opts ...Option) *VoiceSynthesizer {
	return &VoiceSynthesizer{
		base:         newBase(cfg.APIKeys, cfg.BaseURL, providerName, opts),
		model:        strings.TrimSpace(cfg.Model),
		defaultVoice: strings.TrimSpace(cfg.VoiceID),
	}
}

// Synthesize returns MP3 audio for text.
func (s *VoiceSynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("speech: text required")
	}
	if voiceID = strings.TrimSpace(voiceID); voiceID == "" {
		voiceID = s.defaultVoice
	}
	req := gopenai.CreateSpeechRequest{
		Model:          gopenai.SpeechModel(s.model),
		Input:          text,
		Voice:          gopenai.SpeechVoice(voiceID),
		ResponseFormat: gopenai.SpeechResponseFormatMp3,
	}
	return invoke(ctx, s.base, "speech", func(ctx context.Context, client *gopenai.Client) ([]byte, error) {
		resp, err := client.CreateSpeech(ctx, req)
		if err != nil {
			return nil, err
		}
		defer resp.Close()
		audio, err := io.ReadAll(resp)
		if err != nil {
			return nil, fmt.Errorf("read speech audio: %w", err)
		}
		if len(audio) == 0 {
			return nil, fmt.Errorf("speech response was empty")
		}
		return audio, nil
	})
}
