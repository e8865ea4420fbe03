package deps

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

const versionProbeTimeout = 5 * time.Second

// CheckFFmpeg resolves binary (default "ffmpeg") and reads its version banner.
// A binary that resolves but fails the probe is still reported available.
func CheckFFmpeg(ctx context.Context, binary string) Status {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	status := check(Requirement{Name: "FFmpeg", Command: binary, Description: "Renders videos and compresses narration"})
	if !status.Available {
		return status
	}
	version, err := probeVersion(ctx, status.Path)
	if err != nil {
		status.Detail = "version probe failed: " + err.Error()
		return status
	}
	status.Version = version
	return status
}

func probeVersion(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return "", err
	}
	return parseVersion(out), nil
}

// parseVersion extracts "7.1" from "ffmpeg version 7.1 Copyright ...".
func parseVersion(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if !scanner.Scan() {
		return ""
	}
	fields := strings.Fields(scanner.Text())
	for idx, field := range fields {
		if field == "version" && idx+1 < len(fields) {
			return fields[idx+1]
		}
	}
	return ""
}
