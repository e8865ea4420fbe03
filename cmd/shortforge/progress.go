package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"shortforge/internal/api"
	"shortforge/internal/jobs"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"

	progressBarWidth = 24
)

// progressPrinter reports job progress, redrawing one line on a terminal and
// printing one line per change otherwise.
type progressPrinter struct {
	out         io.Writer
	interactive bool
	lastWidth   int
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, interactive: isTerminal(out)}
}

func (p *progressPrinter) update(job api.Job) {
	line := renderProgressLine(job, p.interactive)
	if !p.interactive {
		fmt.Fprintln(p.out, line)
		return
	}
	padding := ""
	if width := len(line); width < p.lastWidth {
		padding = strings.Repeat(" ", p.lastWidth-width)
	}
	p.lastWidth = len(line)
	fmt.Fprint(p.out, "\r"+line+padding)
}

func (p *progressPrinter) finish() {
	if p.interactive && p.lastWidth > 0 {
		fmt.Fprintln(p.out)
	}
}

func renderProgressLine(job api.Job, colorize bool) string {
	filled := min(max(job.Progress, 0), 100) * progressBarWidth / 100
	bar := strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled)
	label := firstNonEmpty(job.StepLabel, job.Step, job.Status)
	line := fmt.Sprintf("%s [%s] %3d%% %-10s %s", shortID(job.ID), bar, job.Progress, label, job.Status)
	if job.Warnings > 0 {
		line += fmt.Sprintf(" (%d warning(s))", job.Warnings)
	}
	if !colorize {
		return line
	}
	if color := statusColor(jobs.Status(job.Status)); color != "" {
		return color + line + ansiReset
	}
	return line
}

func statusColor(status jobs.Status) string {
	switch status {
	case jobs.StatusCompleted:
		return ansiGreen
	case jobs.StatusReviewPending:
		return ansiYellow
	case jobs.StatusFailed:
		return ansiRed
	case jobs.StatusProcessing, jobs.StatusQueued:
		return ansiBlue
	default:
		return ""
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
