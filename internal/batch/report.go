package batch

import (
	"time"

	"shortforge/internal/pipeline"
)

// Outcome is what happened to one project in a batch.
type Outcome string

const (
	OutcomeAdvanced Outcome = "advanced"
	OutcomeReview   Outcome = "review"
	OutcomeError    Outcome = "error"
	OutcomeSkipped  Outcome = "skipped"
)

// Result describes one project's outcome.
type Result struct {
	ProjectID string         `json:"project_id"`
	Title     string         `json:"title,omitempty"`
	From      pipeline.Stage `json:"from,omitempty"`
	To        pipeline.Stage `json:"to,omitempty"`
	Outcome   Outcome        `json:"outcome"`
	Message   string         `json:"message,omitempty"`
}

// Report summarizes a batch operation.
type Report struct {
	Operation string    `json:"operation"`
	Results   []Result  `json:"results"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
}

// Count returns how many results had outcome.
func (r Report) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Result returns the entry for id.
func (r Report) Result(id string) (Result, bool) {
	for _, res := range r.Results {
		if res.ProjectID == id {
			return res, true
		}
	}
	return Result{}, false
}

// Duration returns the wall time the batch took.
func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
