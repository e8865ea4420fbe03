package pipeline

import (
	"maps"
	"strings"
	"time"
)

// Project is one piece of content moving through the pipeline.
type Project struct {
	ID           string            `json:"id"`
	ChannelID    string            `json:"channel_id"`
	Title        string            `json:"title"`
	CurrentStage Stage             `json:"current_stage"`
	Status       Status            `json:"status"`
	StageData    map[Stage]Payload `json:"stage_data"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewProject returns a project at the first stage with no data.
func NewProject(id, channelID, title string, now time.Time) *Project {
	return &Project{
		ID:           strings.TrimSpace(id),
		ChannelID:    strings.TrimSpace(channelID),
		Title:        strings.TrimSpace(title),
		CurrentStage: FirstStage(),
		StageData:    map[Stage]Payload{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a copy whose stage data map can be changed independently.
// Payload values are shared; transitions replace them rather than editing.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.StageData = make(map[Stage]Payload, len(p.StageData))
	maps.Copy(cp.StageData, p.StageData)
	return &cp
}

// Current returns the payload stored for the current stage.
func (p *Project) Current() (Payload, bool) {
	payload, ok := p.StageData[p.CurrentStage]
	return payload, ok && payload != nil
}

// Reference returns the reference payload if one is stored.
func (p *Project) Reference() (*ReferencePayload, bool) {
	ref, ok := p.StageData[StageReference].(*ReferencePayload)
	return ref, ok && ref != nil
}

// Script returns the script payload if one is stored.
func (p *Project) Script() (*ScriptPayload, bool) {
	script, ok := p.StageData[StageScript].(*ScriptPayload)
	return script, ok && script != nil
}
