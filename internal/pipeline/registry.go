package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// InputKind is how a human supplies a stage payload manually.
type InputKind string

const (
	InputText InputKind = "text"
	InputFile InputKind = "file"
)

// ErrInvalidPayload marks a payload that failed its stage validator.
var ErrInvalidPayload = errors.New("invalid payload")

// ManualInput is pasted text or an uploaded file path.
type ManualInput struct {
	Text     string
	FilePath string
}

// Entry describes one stage's payload variant.
type Entry struct {
	Stage Stage
	Input InputKind

	newPayload func() Payload
	validate   func(Payload) error
	fromText   func(text string) (Payload, error)
	fromFile   func(path string, size int64) (Payload, error)
}

// Validate checks that p is this entry's variant and passes its validator.
func (e Entry) Validate(p Payload) error {
	if p == nil {
		return fmt.Errorf("%w: %s payload missing", ErrInvalidPayload, e.Stage)
	}
	if p.Stage() != e.Stage {
		return fmt.Errorf("%w: got %s payload for %s", ErrInvalidPayload, p.Stage(), e.Stage)
	}
	if err := e.validate(p); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidPayload, e.Stage, err)
	}
	return nil
}

// Decode unmarshals a JSON payload of this entry's variant.
func (e Entry) Decode(data []byte) (Payload, error) {
	p := e.newPayload()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.Stage, err)
	}
	return p, nil
}

// FromManual builds and validates a manual payload from input.
func (e Entry) FromManual(input ManualInput) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch e.Input {
	case InputFile:
		path := strings.TrimSpace(input.FilePath)
		if path == "" {
			return nil, fmt.Errorf("%w: %s requires a file", ErrInvalidPayload, e.Stage)
		}
		info, statErr := os.Stat(path)
		if statErr != nil {
			return nil, fmt.Errorf("%w: %s file: %w", ErrInvalidPayload, e.Stage, statErr)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s file %q is a directory", ErrInvalidPayload, e.Stage, path)
		}
		p, err = e.fromFile(path, info.Size())
	default:
		text := strings.TrimSpace(input.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: %s requires text", ErrInvalidPayload, e.Stage)
		}
		p, err = e.fromText(text)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, e.Stage, err)
	}
	if err := e.Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

var registry = map[Stage]Entry{}

func register[T Payload](stage Stage, input InputKind, newPayload func() T, validate func(T) error) Entry {
	entry := Entry{
		Stage:      stage,
		Input:      input,
		newPayload: func() Payload { return newPayload() },
		validate: func(p Payload) error {
			typed, ok := p.(T)
			if !ok {
				return fmt.Errorf("unexpected payload type %T", p)
			}
			return validate(typed)
		},
	}
	registry[stage] = entry
	return entry
}

// Lookup returns the registry entry for stage.
func Lookup(stage Stage) (Entry, bool) {
	entry, ok := registry[stage]
	return entry, ok
}

// DecodePayload unmarshals data as the payload variant registered for stage.
func DecodePayload(stage Stage, data []byte) (Payload, error) {
	entry, ok := Lookup(stage)
	if !ok {
		return nil, fmt.Errorf("no payload registered for stage %q", stage)
	}
	return entry.Decode(data)
}

// ValidatePayload runs the registered validator for p's own stage.
func ValidatePayload(p Payload) error {
	if p == nil {
		return fmt.Errorf("%w: payload missing", ErrInvalidPayload)
	}
	entry, ok := Lookup(p.Stage())
	if !ok {
		return fmt.Errorf("%w: no payload registered for stage %q", ErrInvalidPayload, p.Stage())
	}
	return entry.Validate(p)
}

func init() {
	setText := func(stage Stage, fn func(string) (Payload, error)) {
		e := registry[stage]
		e.fromText = fn
		registry[stage] = e
	}
	setFile := func(stage Stage, fn func(string, int64) (Payload, error)) {
		e := registry[stage]
		e.fromFile = fn
		registry[stage] = e
	}

	register(StageReference, InputText, func() *ReferencePayload { return &ReferencePayload{} },
		func(p *ReferencePayload) error {
			if strings.TrimSpace(p.VideoID) == "" && strings.TrimSpace(p.URL) == "" && strings.TrimSpace(p.Transcript) == "" {
				return errors.New("video id, url, or transcript required")
			}
			return nil
		})
	setText(StageReference, func(text string) (Payload, error) {
		// A single token is a link or id; anything longer is a pasted transcript.
		if len(strings.Fields(text)) == 1 {
			return &ReferencePayload{Mode: ModeManual, URL: text}, nil
		}
		return &ReferencePayload{Mode: ModeManual, Transcript: text}, nil
	})

	register(StageScript, InputText, func() *ScriptPayload { return &ScriptPayload{} },
		func(p *ScriptPayload) error {
			if strings.TrimSpace(p.Text) == "" {
				return errors.New("script text required")
			}
			return nil
		})
	setText(StageScript, func(text string) (Payload, error) {
		return NewScriptPayload(text, ModeManual), nil
	})

	register(StageAudio, InputFile, func() *AudioPayload { return &AudioPayload{} },
		func(p *AudioPayload) error {
			if strings.TrimSpace(p.Path) == "" {
				return errors.New("audio path required")
			}
			if p.DurationSeconds < 0 {
				return errors.New("audio duration must not be negative")
			}
			return nil
		})
	setFile(StageAudio, func(path string, _ int64) (Payload, error) {
		return &AudioPayload{Mode: ModeManual, Path: path}, nil
	})

	register(StageAudioCompress, InputFile, func() *AudioCompressPayload { return &AudioCompressPayload{} },
		func(p *AudioCompressPayload) error {
			if strings.TrimSpace(p.Path) == "" {
				return errors.New("compressed audio path required")
			}
			if p.OriginalBytes < 0 || p.CompressedBytes < 0 {
				return errors.New("byte counts must not be negative")
			}
			return nil
		})
	setFile(StageAudioCompress, func(path string, size int64) (Payload, error) {
		return &AudioCompressPayload{Mode: ModeManual, Path: path, OriginalBytes: size, CompressedBytes: size}, nil
	})

	register(StageSubtitles, InputText, func() *SubtitlesPayload { return &SubtitlesPayload{} },
		func(p *SubtitlesPayload) error {
			if len(p.Segments) == 0 {
				return errors.New("at least one subtitle segment required")
			}
			for _, seg := range p.Segments {
				if strings.TrimSpace(seg.Text) == "" {
					return fmt.Errorf("subtitle segment %d is empty", seg.Index)
				}
				if seg.End < seg.Start {
					return fmt.Errorf("subtitle segment %d ends before it starts", seg.Index)
				}
			}
			return nil
		})
	setText(StageSubtitles, func(text string) (Payload, error) {
		segments, err := ParseSubtitles(text)
		if err != nil {
			return nil, err
		}
		return &SubtitlesPayload{Mode: ModeManual, Segments: segments}, nil
	})

	register(StageImages, InputText, func() *ImagesPayload { return &ImagesPayload{} },
		func(p *ImagesPayload) error {
			if len(p.References) == 0 {
				return errors.New("at least one image reference required")
			}
			for idx, ref := range p.References {
				if strings.TrimSpace(ref) == "" {
					return fmt.Errorf("image reference %d is empty", idx+1)
				}
			}
			return nil
		})
	setText(StageImages, func(text string) (Payload, error) {
		var refs []string
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				refs = append(refs, line)
			}
		}
		return &ImagesPayload{Mode: ModeManual, References: refs}, nil
	})

	register(StageVideo, InputFile, func() *VideoPayload { return &VideoPayload{} },
		func(p *VideoPayload) error {
			if strings.TrimSpace(p.Path) == "" {
				return errors.New("video path required")
			}
			return nil
		})
	setFile(StageVideo, func(path string, _ int64) (Payload, error) {
		return &VideoPayload{Mode: ModeManual, Path: path}, nil
	})

	register(StagePublishVideo, InputText, func() *PublishVideoPayload { return &PublishVideoPayload{} },
		func(p *PublishVideoPayload) error {
			if !p.HasContent() {
				return errors.New("published url or external id required")
			}
			return nil
		})
	setText(StagePublishVideo, func(text string) (Payload, error) {
		if strings.Contains(text, "://") {
			return &PublishVideoPayload{Mode: ModeManual, URL: text}, nil
		}
		return &PublishVideoPayload{Mode: ModeManual, ExternalID: text}, nil
	})

	register(StageThumbnail, InputFile, func() *ThumbnailPayload { return &ThumbnailPayload{} },
		func(p *ThumbnailPayload) error {
			if strings.TrimSpace(p.Path) == "" {
				return errors.New("thumbnail path required")
			}
			return nil
		})
	setFile(StageThumbnail, func(path string, _ int64) (Payload, error) {
		return &ThumbnailPayload{Mode: ModeManual, Path: path}, nil
	})

	register(StagePublishThumbnail, InputText, func() *PublishThumbnailPayload { return &PublishThumbnailPayload{} },
		func(p *PublishThumbnailPayload) error {
			if !p.Confirmed {
				return errors.New("thumbnail publication must be confirmed")
			}
			return nil
		})
	setText(StagePublishThumbnail, func(text string) (Payload, error) {
		p := &PublishThumbnailPayload{Mode: ModeManual, Confirmed: true}
		if strings.Contains(text, "://") {
			p.URL = text
		} else {
			p.Note = text
		}
		return p, nil
	})
}
