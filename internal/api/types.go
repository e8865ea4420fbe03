package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Project describes a pipeline project in a transport-friendly format.
type Project struct {
	ID         string   `json:"id"`
	ChannelID  string   `json:"channelId"`
	Title      string   `json:"title"`
	Stage      string   `json:"stage"`
	StageLabel string   `json:"stageLabel"`
	StageIndex int      `json:"stageIndex"`
	StageCount int      `json:"stageCount"`
	Status     string   `json:"status"`
	Error      string   `json:"error,omitempty"`
	Completed  []string `json:"completedStages,omitempty"`
	HasData    bool     `json:"hasData"`
	Summary    string   `json:"summary,omitempty"`
	CreatedAt  string   `json:"createdAt,omitempty"`
	UpdatedAt  string   `json:"updatedAt,omitempty"`
}

// Segment is one storyboard entry of a job.
type Segment struct {
	Text         string `json:"text"`
	VisualPrompt string `json:"visualPrompt"`
	ImageURL     string `json:"imageUrl,omitempty"`
}

// JobMetadata carries generated publishing metadata.
type JobMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// JobLog is one job log line.
type JobLog struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Step    string `json:"step"`
	Message string `json:"message"`
}

// Job describes a single-shot generation job.
type Job struct {
	ID         string       `json:"id"`
	Theme      string       `json:"theme"`
	ChannelID  string       `json:"channelId"`
	Status     string       `json:"status"`
	Step       string       `json:"step"`
	StepLabel  string       `json:"stepLabel"`
	Progress   int          `json:"progress"`
	Warnings   int          `json:"warnings"`
	Error      string       `json:"error,omitempty"`
	Script     string       `json:"script,omitempty"`
	Storyboard []Segment    `json:"storyboard,omitempty"`
	AudioURL   string       `json:"audioUrl,omitempty"`
	Metadata   *JobMetadata `json:"metadata,omitempty"`
	VideoURL   string       `json:"videoUrl,omitempty"`
	Logs       []JobLog     `json:"logs,omitempty"`
	CreatedAt  string       `json:"createdAt,omitempty"`
	UpdatedAt  string       `json:"updatedAt,omitempty"`
}

// SubmitJobRequest is the body of POST /api/jobs.
type SubmitJobRequest struct {
	Theme             string            `json:"theme"`
	ChannelID         string            `json:"channelId"`
	ReferenceScript   string            `json:"referenceScript,omitempty"`
	ReferenceMetadata map[string]string `json:"referenceMetadata,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Path        string `json:"path,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	QueueLength  int                `json:"queueLength"`
	Projects     int                `json:"projects"`
	JobCounts    map[string]int     `json:"jobCounts"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ProjectListResponse wraps a collection of projects.
type ProjectListResponse struct {
	Items []Project `json:"items"`
}

// ProjectResponse wraps a single project.
type ProjectResponse struct {
	Item Project `json:"item"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Items []Job `json:"items"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Item Job `json:"item"`
}

// ErrorResponse is returned for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}
