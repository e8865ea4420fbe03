package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	gopenai "github.com/sashabaranov/go-openai"

	"shortforge/internal/config"
	"shortforge/internal/fileutil"
)

// ImageGenerator implements providers.ImageGenerator. Base64 responses are
// written under OutputDir; URL responses are returned as-is.
type ImageGenerator struct {
	base
	model     string
	outputDir string
}

// NewImageGenerator builds an image adapter from the [image] config section.
func NewImageGenerator(cfg config.Image, outputDir string, opts ...Option) *ImageGenerator {
	return &ImageGenerator{
		base:      newBase(cfg.APIKeys, cfg.BaseURL, providerName, opts),
		model:     strings.TrimSpace(cfg.Model),
		outputDir: outputDir,
	}
}

// Generate requests count images one at a time, since dall-e-3 accepts n=1 only.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string, width, height, count int) ([]string, error) {
	if count < 1 {
		count = 1
	}
	size := fmt.Sprintf("%dx%d", width, height)
	refs := make([]string, 0, count)
	for i := 0; i < count; i++ {
		ref, err := invoke(ctx, g.base, "image", func(ctx context.Context, client *gopenai.Client) (string, error) {
			resp, err := client.CreateImage(ctx, gopenai.ImageRequest{
				Prompt:         prompt,
				Model:          g.model,
				N:              1,
				Size:           size,
				ResponseFormat: gopenai.CreateImageResponseFormatB64JSON,
			})
			if err != nil {
				return "", err
			}
			if len(resp.Data) == 0 {
				return "", fmt.Errorf("image response contained no data")
			}
			return g.store(resp.Data[0])
		})
		if err != nil {
			return nil, fmt.Errorf("image %d/%d: %w", i+1, count, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (g *ImageGenerator) store(data gopenai.ImageResponseDataInner) (string, error) {
	if data.B64JSON == "" {
		if data.URL == "" {
			return "", fmt.Errorf("image response had neither b64_json nor url")
		}
		return data.URL, nil
	}
	raw, err := base64.StdEncoding.DecodeString(data.B64JSON)
	if err != nil {
		return "", fmt.Errorf("decode image payload: %w", err)
	}
	path := filepath.Join(g.outputDir, uuid.NewString()+".png")
	if err := fileutil.WriteFile(path, raw); err != nil {
		return "", err
	}
	return path, nil
}
