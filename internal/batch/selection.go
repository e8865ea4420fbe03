package batch

import (
	"slices"
	"sync"

	"shortforge/internal/pipeline"
)

// Selection is the set of projects a user has picked for the next batch
// operation. All members share one stage.
type Selection struct {
	mu    sync.Mutex
	stage pipeline.Stage
	ids   []string
}

// Add selects p. A project at a different stage than the current selection
// replaces it; Add reports whether that happened.
func (s *Selection) Add(p *pipeline.Project) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) > 0 && s.stage != p.CurrentStage {
		s.stage = p.CurrentStage
		s.ids = []string{p.ID}
		return true
	}
	s.stage = p.CurrentStage
	if !slices.Contains(s.ids, p.ID) {
		s.ids = append(s.ids, p.ID)
	}
	return false
}

// Remove drops id from the selection.
func (s *Selection) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = slices.DeleteFunc(s.ids, func(v string) bool { return v == id })
	if len(s.ids) == 0 {
		s.stage = ""
	}
}

// IDs returns the selected project ids in selection order.
func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

// Stage returns the shared stage, if anything is selected.
func (s *Selection) Stage() (pipeline.Stage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage, len(s.ids) > 0
}

// Len returns the number of selected projects.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.stage = ""
}
