package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"shortforge/internal/config"
	"shortforge/internal/deps"
	"shortforge/internal/metrics"
	"shortforge/internal/providers"
	"shortforge/internal/services"
)

// ErrRenderUnavailable reports that no usable ffmpeg binary is configured.
var ErrRenderUnavailable = errors.New("render unavailable")

const defaultClipSeconds = 4.0

// FFmpeg implements providers.Renderer.
type FFmpeg struct {
	binary       string
	width        int
	height       int
	fps          int
	audioBitrate string
}

// New builds a renderer from the [render] config section.
func New(cfg config.Render) *FFmpeg {
	binary := strings.TrimSpace(cfg.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		binary:       binary,
		width:        cfg.Width,
		height:       cfg.Height,
		fps:          cfg.FPS,
		audioBitrate: cfg.AudioBitrate,
	}
}

// Available returns a hinted ErrRenderUnavailable when ffmpeg cannot be resolved.
func (f *FFmpeg) Available() error {
	status := deps.CheckBinaries([]deps.Requirement{{Name: "FFmpeg", Command: f.binary}})[0]
	if status.Available {
		return nil
	}
	return services.WithHint(
		services.Wrap(ErrRenderUnavailable, "render", "check renderer", status.Detail, nil),
		"install ffmpeg or set render.ffmpeg_binary in the config file",
	)
}

// Render builds a slideshow sharing the target duration evenly across images,
// muxes the narration, and burns in subtitles when provided.
func (f *FFmpeg) Render(ctx context.Context, input providers.RenderInput) (string, error) {
	if err := validateInput(input); err != nil {
		return "", err
	}
	if err := f.Available(); err != nil {
		return "", err
	}
	width, height, fps := f.dimensions(input)
	perClip := defaultClipSeconds
	if input.DurationSeconds > 0 {
		perClip = input.DurationSeconds / float64(len(input.ImagePaths))
	}

	clips := make([]*ffmpeg.Stream, 0, len(input.ImagePaths))
	for _, image := range input.ImagePaths {
		clip := ffmpeg.Input(image, ffmpeg.KwArgs{"loop": 1, "t": fmt.Sprintf("%.3f", perClip)}).
			Filter("scale", ffmpeg.Args{fmt.Sprintf("%d:%d", width, height)}, ffmpeg.KwArgs{"force_original_aspect_ratio": "increase"}).
			Filter("crop", ffmpeg.Args{fmt.Sprintf("%d:%d", width, height)}).
			Filter("setsar", ffmpeg.Args{"1"})
		clips = append(clips, clip)
	}
	video := ffmpeg.Concat(clips, ffmpeg.KwArgs{"v": 1, "a": 0})
	if strings.TrimSpace(input.SubtitlePath) != "" {
		video = video.Filter("subtitles", ffmpeg.Args{escapeFilterPath(input.SubtitlePath)})
	}
	audio := ffmpeg.Input(input.AudioPath).Audio()

	stream := ffmpeg.Output([]*ffmpeg.Stream{video, audio}, input.OutputPath, ffmpeg.KwArgs{
		"c:v":      "libx264",
		"pix_fmt":  "yuv420p",
		"r":        fps,
		"c:a":      "aac",
		"b:a":      f.audioBitrate,
		"shortest": "",
	}).OverWriteOutput()

	if err := os.MkdirAll(filepath.Dir(input.OutputPath), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	started := time.Now()
	err := f.run(ctx, "render video", stream.GetArgs(), input.OutputPath)
	metrics.ObserveProviderCall("ffmpeg", "render", started, err)
	if err != nil {
		return "", err
	}
	return input.OutputPath, nil
}

// CompressAudio re-encodes src as mono MP3 at the configured bitrate.
func (f *FFmpeg) CompressAudio(ctx context.Context, src, dst string) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dst) == "" {
		return services.Wrap(services.ErrValidation, "audio_compress", "compress audio", "source and destination required", nil)
	}
	if _, err := os.Stat(src); err != nil {
		return services.Wrap(services.ErrNotFound, "audio_compress", "compress audio", "source audio missing", err)
	}
	if err := f.Available(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	stream := ffmpeg.Input(src).
		Output(dst, ffmpeg.KwArgs{"c:a": "libmp3lame", "b:a": f.audioBitrate, "ac": 1}).
		OverWriteOutput()
	started := time.Now()
	err := f.run(ctx, "compress audio", stream.GetArgs(), dst)
	metrics.ObserveProviderCall("ffmpeg", "compress_audio", started, err)
	return err
}

func (f *FFmpeg) run(ctx context.Context, operation string, args []string, output string) error {
	cmd := exec.CommandContext(ctx, f.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "render", operation, "ffmpeg interrupted", ctx.Err())
		}
		return services.Wrap(services.ErrExternalTool, "render", operation, lastLine(stderr.String()), err)
	}
	if info, err := os.Stat(output); err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "render", operation, "ffmpeg produced no output", err)
	}
	return nil
}

func (f *FFmpeg) dimensions(input providers.RenderInput) (int, int, int) {
	width, height, fps := f.width, f.height, f.fps
	if input.Width > 0 {
		width = input.Width
	}
	if input.Height > 0 {
		height = input.Height
	}
	if input.FPS > 0 {
		fps = input.FPS
	}
	return width, height, fps
}

func validateInput(input providers.RenderInput) error {
	switch {
	case strings.TrimSpace(input.OutputPath) == "":
		return services.Wrap(services.ErrValidation, "video", "render video", "output path required", nil)
	case len(input.ImagePaths) == 0:
		return services.Wrap(services.ErrValidation, "video", "render video", "at least one image required", nil)
	case strings.TrimSpace(input.AudioPath) == "":
		return services.Wrap(services.ErrValidation, "video", "render video", "narration audio required", nil)
	}
	return nil
}

// escapeFilterPath quotes a path for use as a filter argument.
func escapeFilterPath(path string) string {
	path = filepath.ToSlash(path)
	return strings.NewReplacer(`\`, `\\`, ":", `\:`, "'", `\'`).Replace(path)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
