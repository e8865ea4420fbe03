package pipeline

import "strings"

// Status is a project's display status. Only StatusProcessing, StatusError,
// and StatusReview are ever stored; StatusNone is stored for "no flag".
type Status string

const (
	StatusNone       Status = ""
	StatusWaiting    Status = "waiting"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
	StatusReview     Status = "review"
)

// Stored reports whether s is a value that may be persisted.
func (s Status) Stored() bool {
	switch s {
	case StatusNone, StatusProcessing, StatusError, StatusReview:
		return true
	default:
		return false
	}
}

// ParseStoredStatus maps a persisted value onto a stored flag. Derived values
// and unknown text collapse to StatusNone so stale rows cannot pin ready/waiting.
func ParseStoredStatus(value string) Status {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if status.Stored() {
		return status
	}
	return StatusNone
}

// EffectiveStatus resolves the display status of p: stored flags verbatim,
// otherwise ready when the current stage holds content and waiting when not.
func EffectiveStatus(p *Project) Status {
	if p == nil {
		return StatusWaiting
	}
	switch p.Status {
	case StatusProcessing, StatusError, StatusReview:
		return p.Status
	}
	if payload, ok := p.StageData[p.CurrentStage]; ok && payload != nil && payload.HasContent() {
		return StatusReady
	}
	return StatusWaiting
}
