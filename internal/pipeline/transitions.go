package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrStageMismatch reports a payload that is not the valid variant for the
	// stage a transition expects.
	ErrStageMismatch = errors.New("stage mismatch")
	// ErrTerminalStage reports an advance attempted from the last stage.
	ErrTerminalStage = errors.New("project is at the final stage")
)

// Advance stores payload for the stage after p.CurrentStage and moves the
// project there. The stored flag is cleared so the new stage's status derives
// from its data. p is not modified.
func Advance(p *Project, payload Payload, now time.Time) (*Project, error) {
	next, ok := p.CurrentStage.Next()
	if !ok {
		return nil, fmt.Errorf("advance %s: %w", p.CurrentStage, ErrTerminalStage)
	}
	if err := checkVariant(next, payload); err != nil {
		return nil, err
	}
	out := p.Clone()
	out.StageData[next] = payload
	out.CurrentStage = next
	out.Status = StatusNone
	out.ErrorMessage = ""
	out.UpdatedAt = now
	return out, nil
}

// SetCurrentData replaces the payload of the current stage without moving.
func SetCurrentData(p *Project, payload Payload, now time.Time) (*Project, error) {
	if err := checkVariant(p.CurrentStage, payload); err != nil {
		return nil, err
	}
	out := p.Clone()
	out.StageData[p.CurrentStage] = payload
	out.UpdatedAt = now
	return out, nil
}

func checkVariant(expected Stage, payload Payload) error {
	if payload == nil {
		return fmt.Errorf("%w: expected %s payload, got none", ErrStageMismatch, expected)
	}
	if payload.Stage() != expected {
		return fmt.Errorf("%w: expected %s payload, got %s", ErrStageMismatch, expected, payload.Stage())
	}
	if err := ValidatePayload(payload); err != nil {
		return fmt.Errorf("%w: %w", ErrStageMismatch, err)
	}
	return nil
}

// ResetStage clears the error message and stored flag; stage and data are kept.
func ResetStage(p *Project, now time.Time) *Project {
	out := p.Clone()
	out.Status = StatusNone
	out.ErrorMessage = ""
	out.UpdatedAt = now
	return out
}

// MoveStage reassigns the current stage unconditionally. Stage data is kept,
// so the prefix invariant may not hold afterwards.
func MoveStage(p *Project, target Stage, now time.Time) (*Project, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("move stage: unknown stage %q", target)
	}
	out := p.Clone()
	out.CurrentStage = target
	out.Status = StatusNone
	out.ErrorMessage = ""
	out.UpdatedAt = now
	return out, nil
}

// MarkProcessing flags p as having work in flight.
func MarkProcessing(p *Project, now time.Time) *Project {
	out := p.Clone()
	out.Status = StatusProcessing
	out.ErrorMessage = ""
	out.UpdatedAt = now
	return out
}

// MarkError flags p as failed with message.
func MarkError(p *Project, message string, now time.Time) *Project {
	out := p.Clone()
	out.Status = StatusError
	out.ErrorMessage = strings.TrimSpace(message)
	if out.ErrorMessage == "" {
		out.ErrorMessage = "unknown error"
	}
	out.UpdatedAt = now
	return out
}

// MarkReview flags p as awaiting human review.
func MarkReview(p *Project, now time.Time) *Project {
	out := p.Clone()
	out.Status = StatusReview
	out.ErrorMessage = ""
	out.UpdatedAt = now
	return out
}

// CheckPrefix verifies that populated stage data forms a prefix of the stage
// order ending at or before the current stage, and that an error message is
// only present alongside the error flag.
func CheckPrefix(p *Project) error {
	if !p.CurrentStage.Valid() {
		return fmt.Errorf("project %s: unknown current stage %q", p.ID, p.CurrentStage)
	}
	current := p.CurrentStage.Index()
	for stage, payload := range p.StageData {
		if payload == nil {
			return fmt.Errorf("project %s: nil payload for %s", p.ID, stage)
		}
		if stage.Index() > current {
			return fmt.Errorf("project %s: data for %s beyond current stage %s", p.ID, stage, p.CurrentStage)
		}
	}
	seenGap := false
	for _, stage := range stageOrder[:current+1] {
		_, ok := p.StageData[stage]
		if !ok {
			seenGap = true
			continue
		}
		if seenGap {
			return fmt.Errorf("project %s: data for %s follows a stage without data", p.ID, stage)
		}
	}
	if p.ErrorMessage != "" && p.Status != StatusError {
		return fmt.Errorf("project %s: error message without error status", p.ID)
	}
	return nil
}
