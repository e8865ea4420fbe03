package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage tags one step of the production pipeline.
type Stage string

const (
	StageReference        Stage = "reference"
	StageScript           Stage = "script"
	StageAudio            Stage = "audio"
	StageAudioCompress    Stage = "audio_compress"
	StageSubtitles        Stage = "subtitles"
	StageImages           Stage = "images"
	StageVideo            Stage = "video"
	StagePublishVideo     Stage = "publish_video"
	StageThumbnail        Stage = "thumbnail"
	StagePublishThumbnail Stage = "publish_thumbnail"
)

var stageOrder = []Stage{
	StageReference,
	StageScript,
	StageAudio,
	StageAudioCompress,
	StageSubtitles,
	StageImages,
	StageVideo,
	StagePublishVideo,
	StageThumbnail,
	StagePublishThumbnail,
}

var stageIndex = func() map[Stage]int {
	idx := make(map[Stage]int, len(stageOrder))
	for i, stage := range stageOrder {
		idx[stage] = i
	}
	return idx
}()

var titleCaser = cases.Title(language.English)

// Stages returns the ordered stage list.
func Stages() []Stage {
	cp := make([]Stage, len(stageOrder))
	copy(cp, stageOrder)
	return cp
}

// FirstStage is where every new project starts.
func FirstStage() Stage { return stageOrder[0] }

// LastStage is the terminal stage.
func LastStage() Stage { return stageOrder[len(stageOrder)-1] }

// ParseStage converts user input ("Audio Compress", "audio-compress") into a Stage.
func ParseStage(value string) (Stage, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	stage := Stage(normalized)
	if _, ok := stageIndex[stage]; !ok {
		return "", fmt.Errorf("unknown stage %q", value)
	}
	return stage, nil
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageIndex[s]
	return ok
}

// Index returns the position of s in the pipeline, or -1.
func (s Stage) Index() int {
	if idx, ok := stageIndex[s]; ok {
		return idx
	}
	return -1
}

// Next returns the stage after s; false at the last stage.
func (s Stage) Next() (Stage, bool) {
	idx := s.Index()
	if idx < 0 || idx+1 >= len(stageOrder) {
		return "", false
	}
	return stageOrder[idx+1], true
}

// Prev returns the stage before s; false at the first stage.
func (s Stage) Prev() (Stage, bool) {
	idx := s.Index()
	if idx <= 0 {
		return "", false
	}
	return stageOrder[idx-1], true
}

// Completed lists the stages strictly before s.
func (s Stage) Completed() []Stage {
	idx := s.Index()
	if idx <= 0 {
		return nil
	}
	cp := make([]Stage, idx)
	copy(cp, stageOrder[:idx])
	return cp
}

// Label renders the stage for display ("Audio Compress").
func (s Stage) Label() string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}
