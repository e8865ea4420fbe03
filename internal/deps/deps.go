// Package deps reports on the external binaries shortforge shells out to.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"shortforge/internal/config"
)

// Requirement names one external binary.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Path        string
	Version     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configured pipeline uses.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Render.FFmpegBinary, Description: "Renders videos and compresses narration"},
		{Name: "yt-dlp", Command: cfg.Transcript.Binary, Description: "Fetches reference transcripts", Optional: true},
	}
}

// CheckBinaries resolves each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Path = path
	status.Available = true
	return status
}

// Snapshot checks every requirement and probes the ffmpeg version.
func Snapshot(ctx context.Context, cfg *config.Config) []Status {
	statuses := CheckBinaries(Requirements(cfg))
	for i, status := range statuses {
		if status.Name == "FFmpeg" {
			probed := CheckFFmpeg(ctx, cfg.Render.FFmpegBinary)
			probed.Optional = status.Optional
			statuses[i] = probed
		}
	}
	return statuses
}

// SystemInfo describes the host for doctor output.
type SystemInfo struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUs      int    `json:"cpus"`
	GoVersion string `json:"go_version"`
}

// System returns the current host description.
func System() SystemInfo {
	return SystemInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		CPUs:      runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}
}
