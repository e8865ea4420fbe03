package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func samplePayload(stage Stage) Payload {
	switch stage {
	case StageReference:
		return &ReferencePayload{Mode: ModeAuto, VideoID: "dQw4w9WgXcQ", Transcript: "cats are great"}
	case StageScript:
		return NewScriptPayload("Cats nap. Cats purr.", ModeAuto)
	case StageAudio:
		return &AudioPayload{Mode: ModeAuto, Path: "/tmp/voice.mp3", DurationSeconds: 12}
	case StageAudioCompress:
		return &AudioCompressPayload{Mode: ModeAuto, Path: "/tmp/voice.small.mp3", OriginalBytes: 10, CompressedBytes: 5}
	case StageSubtitles:
		return &SubtitlesPayload{Mode: ModeAuto, Segments: []SubtitleSegment{{Index: 1, Start: 0, End: 1, Text: "Cats nap."}}}
	case StageImages:
		return &ImagesPayload{Mode: ModeAuto, References: []string{"/tmp/a.png"}}
	case StageVideo:
		return &VideoPayload{Mode: ModeAuto, Path: "/tmp/video.mp4"}
	case StagePublishVideo:
		return &PublishVideoPayload{Mode: ModeAuto, URL: "file:///tmp/video.mp4"}
	case StageThumbnail:
		return &ThumbnailPayload{Mode: ModeAuto, Path: "/tmp/thumb.png"}
	case StagePublishThumbnail:
		return &PublishThumbnailPayload{Mode: ModeAuto, Confirmed: true}
	}
	return nil
}

func newReferenceProject(t *testing.T) *Project {
	t.Helper()
	p, err := SetCurrentData(NewProject("p1", "default", "Cats", t0), samplePayload(StageReference), t0)
	if err != nil {
		t.Fatalf("SetCurrentData: %v", err)
	}
	return p
}

func TestStageOrderArithmetic(t *testing.T) {
	stages := Stages()
	if len(stages) != 10 || stages[0] != StageReference || stages[9] != StagePublishThumbnail {
		t.Fatalf("unexpected order %v", stages)
	}
	if next, ok := StageAudio.Next(); !ok || next != StageAudioCompress {
		t.Fatalf("Next(audio) = %v, %v", next, ok)
	}
	if _, ok := LastStage().Next(); ok {
		t.Fatal("expected no stage after the last")
	}
	if _, ok := FirstStage().Prev(); ok {
		t.Fatal("expected no stage before the first")
	}
	if prev, ok := StageVideo.Prev(); !ok || prev != StageImages {
		t.Fatalf("Prev(video) = %v, %v", prev, ok)
	}
	if done := StageAudio.Completed(); len(done) != 2 || done[1] != StageScript {
		t.Fatalf("Completed(audio) = %v", done)
	}
	if got := StageAudioCompress.Label(); got != "Audio Compress" {
		t.Fatalf("Label = %q", got)
	}
	if got, err := ParseStage(" Publish-Video "); err != nil || got != StagePublishVideo {
		t.Fatalf("ParseStage = %v, %v", got, err)
	}
	if _, err := ParseStage("encode"); err == nil {
		t.Fatal("expected unknown stage error")
	}
}

func TestAdvanceWalksEveryStageMonotonically(t *testing.T) {
	p := newReferenceProject(t)
	for i := 1; i < len(stageOrder); i++ {
		next := stageOrder[i]
		before := p.CurrentStage.Index()
		advanced, err := Advance(p, samplePayload(next), t0.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("Advance to %s: %v", next, err)
		}
		if advanced.CurrentStage.Index() != before+1 {
			t.Fatalf("stage moved from %d to %d", before, advanced.CurrentStage.Index())
		}
		if err := CheckPrefix(advanced); err != nil {
			t.Fatalf("prefix invariant: %v", err)
		}
		if EffectiveStatus(advanced) != StatusReady {
			t.Fatalf("expected ready after advance, got %s", EffectiveStatus(advanced))
		}
		p = advanced
	}
	_, err := Advance(p, samplePayload(StagePublishThumbnail), t0)
	if !errors.Is(err, ErrTerminalStage) {
		t.Fatalf("expected ErrTerminalStage, got %v", err)
	}
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	p := newReferenceProject(t)
	p.Status = StatusReview
	advanced, err := Advance(p, samplePayload(StageScript), t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if p.CurrentStage != StageReference || p.Status != StatusReview || len(p.StageData) != 1 {
		t.Fatalf("input mutated: %+v", p)
	}
	if advanced.Status != StatusNone || !advanced.UpdatedAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("unexpected advanced project %+v", advanced)
	}
}

func TestAdvanceWithWrongVariantIsStageMismatch(t *testing.T) {
	p := newReferenceProject(t)
	p, err := Advance(p, samplePayload(StageScript), t0)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	// audio is expected next; a second script is rejected
	_, err = Advance(p, samplePayload(StageScript), t0)
	if !errors.Is(err, ErrStageMismatch) {
		t.Fatalf("expected ErrStageMismatch, got %v", err)
	}
	if p.CurrentStage != StageScript {
		t.Fatalf("stage changed on failure: %s", p.CurrentStage)
	}
}

func TestAdvanceWithInvalidPayloadIsStageMismatch(t *testing.T) {
	p := newReferenceProject(t)
	_, err := Advance(p, &ScriptPayload{Mode: ModeManual, Text: "   "}, t0)
	if !errors.Is(err, ErrStageMismatch) || !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected mismatch wrapping invalid payload, got %v", err)
	}
}

func TestAdvanceAfterForwardMove(t *testing.T) {
	moved, err := MoveStage(newReferenceProject(t), StageImages, t0)
	if err != nil {
		t.Fatalf("MoveStage: %v", err)
	}
	next, err := Advance(moved, samplePayload(StageVideo), t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("Advance after move: %v", err)
	}
	if next.CurrentStage != StageVideo || EffectiveStatus(next) != StatusReady {
		t.Fatalf("unexpected project %+v", next)
	}
	if _, err := Advance(moved, samplePayload(StageImages), t0); !errors.Is(err, ErrStageMismatch) {
		t.Fatalf("expected ErrStageMismatch, got %v", err)
	}
}

func TestEffectiveStatus(t *testing.T) {
	withTranscript := newReferenceProject(t)
	urlOnly, err := SetCurrentData(NewProject("p2", "", "", t0), &ReferencePayload{Mode: ModeManual, URL: "https://youtu.be/x"}, t0)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name    string
		project *Project
		want    Status
	}{
		{"no data", NewProject("p", "", "", t0), StatusWaiting},
		{"reference without transcript", urlOnly, StatusWaiting},
		{"reference with transcript", withTranscript, StatusReady},
		{"processing", MarkProcessing(withTranscript, t0), StatusProcessing},
		{"error", MarkError(withTranscript, "boom", t0), StatusError},
		{"review", MarkReview(urlOnly, t0), StatusReview},
		{"nil", nil, StatusWaiting},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			first := EffectiveStatus(tc.project)
			second := EffectiveStatus(tc.project)
			if first != tc.want || second != first {
				t.Fatalf("EffectiveStatus = %s then %s, want %s", first, second, tc.want)
			}
		})
	}
}

func TestResetAndMarkError(t *testing.T) {
	p := MarkError(newReferenceProject(t), "", t0)
	if p.ErrorMessage != "unknown error" {
		t.Fatalf("error message = %q", p.ErrorMessage)
	}
	reset := ResetStage(p, t0.Add(time.Minute))
	if reset.Status != StatusNone || reset.ErrorMessage != "" || reset.CurrentStage != StageReference || len(reset.StageData) != 1 {
		t.Fatalf("unexpected reset project %+v", reset)
	}
	if p.Status != StatusError {
		t.Fatal("ResetStage mutated its input")
	}
}

func TestMoveStage(t *testing.T) {
	p := newReferenceProject(t)
	moved, err := MoveStage(p, StageVideo, t0)
	if err != nil {
		t.Fatalf("MoveStage: %v", err)
	}
	if moved.CurrentStage != StageVideo || EffectiveStatus(moved) != StatusWaiting {
		t.Fatalf("unexpected moved project %+v", moved)
	}
	if err := CheckPrefix(moved); err != nil {
		t.Fatalf("prefix after forward move: %v", err)
	}
	if _, err := MoveStage(p, Stage("encode"), t0); err == nil {
		t.Fatal("expected unknown stage error")
	}
}

func TestCheckPrefixDetectsGaps(t *testing.T) {
	p := NewProject("p", "", "", t0)
	p.CurrentStage = StageAudio
	p.StageData[StageScript] = samplePayload(StageScript)
	if err := CheckPrefix(p); err == nil {
		t.Fatal("expected gap error")
	}
	p.StageData[StageReference] = samplePayload(StageReference)
	p.StageData[StageImages] = samplePayload(StageImages)
	if err := CheckPrefix(p); err == nil {
		t.Fatal("expected beyond-current error")
	}
}

func TestSetCurrentDataRejectsOtherStages(t *testing.T) {
	_, err := SetCurrentData(NewProject("p", "", "", t0), samplePayload(StageScript), t0)
	if !errors.Is(err, ErrStageMismatch) {
		t.Fatalf("expected ErrStageMismatch, got %v", err)
	}
}

func TestManualInputByKind(t *testing.T) {
	ref, _ := Lookup(StageReference)
	p, err := ref.FromManual(ManualInput{Text: "https://youtu.be/dQw4w9WgXcQ"})
	if err != nil {
		t.Fatalf("reference url: %v", err)
	}
	if got := p.(*ReferencePayload); got.URL == "" || got.HasContent() {
		t.Fatalf("unexpected reference payload %+v", got)
	}
	p, err = ref.FromManual(ManualInput{Text: "a pasted transcript about cats"})
	if err != nil || !p.HasContent() {
		t.Fatalf("reference transcript: %v %+v", err, p)
	}

	images, _ := Lookup(StageImages)
	p, err = images.FromManual(ManualInput{Text: "a.png\n\n b.png \n"})
	if err != nil {
		t.Fatalf("images: %v", err)
	}
	if refs := p.(*ImagesPayload).References; len(refs) != 2 || refs[1] != "b.png" {
		t.Fatalf("unexpected refs %v", refs)
	}
	if _, err := images.FromManual(ManualInput{Text: "  "}); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for blank text, got %v", err)
	}

	audio, _ := Lookup(StageAudioCompress)
	if audio.Input != InputFile {
		t.Fatalf("audio_compress input = %s", audio.Input)
	}
	file := filepath.Join(t.TempDir(), "voice.mp3")
	if err := os.WriteFile(file, []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err = audio.FromManual(ManualInput{FilePath: file})
	if err != nil {
		t.Fatalf("audio_compress: %v", err)
	}
	if got := p.(*AudioCompressPayload); got.CompressedBytes != 5 || got.Mode != ModeManual {
		t.Fatalf("unexpected payload %+v", got)
	}
	if _, err := audio.FromManual(ManualInput{FilePath: filepath.Join(t.TempDir(), "missing.mp3")}); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for missing file, got %v", err)
	}

	publish, _ := Lookup(StagePublishVideo)
	p, _ = publish.FromManual(ManualInput{Text: "abc123"})
	if p.(*PublishVideoPayload).ExternalID != "abc123" {
		t.Fatalf("unexpected publish payload %+v", p)
	}
}

func TestEveryStageIsRegistered(t *testing.T) {
	for _, stage := range Stages() {
		entry, ok := Lookup(stage)
		if !ok {
			t.Fatalf("stage %s not registered", stage)
		}
		if err := entry.Validate(samplePayload(stage)); err != nil {
			t.Fatalf("sample %s payload invalid: %v", stage, err)
		}
	}
}

func TestSubtitlesParseAndFormat(t *testing.T) {
	srt := "1\n00:00:00,000 --> 00:00:01,500\nCats nap.\n\n2\n00:00:01,500 --> 00:00:03,000\nCats\npurr.\n"
	segments, err := ParseSubtitles(srt)
	if err != nil {
		t.Fatalf("ParseSubtitles: %v", err)
	}
	if len(segments) != 2 || segments[1].Text != "Cats purr." || segments[1].Start != 1.5 || segments[1].End != 3 {
		t.Fatalf("unexpected segments %+v", segments)
	}
	if got := FormatSRT(segments); got != "1\n00:00:00,000 --> 00:00:01,500\nCats nap.\n\n2\n00:00:01,500 --> 00:00:03,000\nCats purr.\n" {
		t.Fatalf("FormatSRT =\n%s", got)
	}

	plain, err := ParseSubtitles("one\n\ntwo")
	if err != nil || len(plain) != 2 || plain[1].Index != 2 {
		t.Fatalf("plain parse = %+v, %v", plain, err)
	}
	if _, err := ParseSubtitles("1\n00:00:xx,000 --> 00:00:01,000\nbad"); err == nil {
		t.Fatal("expected timestamp error")
	}
}

func TestTimeSegmentsCoversTotal(t *testing.T) {
	segments := TimeSegments([]string{"aa", "aaaa", "aa"}, 8)
	if len(segments) != 3 || segments[0].End != 2 || segments[1].End != 6 || segments[2].End != 8 {
		t.Fatalf("unexpected segments %+v", segments)
	}
}

func TestStageDataCodecRestoresVariants(t *testing.T) {
	data := map[Stage]Payload{
		StageReference: samplePayload(StageReference),
		StageScript:    samplePayload(StageScript),
	}
	raw, err := EncodeStageData(data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	restored, err := DecodeStageData(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	script, ok := restored[StageScript].(*ScriptPayload)
	if !ok || script.WordCount != 4 || script.Mode != ModeAuto {
		t.Fatalf("unexpected script %+v", restored[StageScript])
	}
	if _, err := DecodeStageData([]byte(`{"encode":{}}`)); err == nil || !strings.Contains(err.Error(), "encode") {
		t.Fatalf("expected unknown stage error, got %v", err)
	}
}

func TestParseStoredStatusDropsDerivedValues(t *testing.T) {
	if ParseStoredStatus("READY") != StatusNone || ParseStoredStatus("review") != StatusReview {
		t.Fatal("unexpected stored status mapping")
	}
}
