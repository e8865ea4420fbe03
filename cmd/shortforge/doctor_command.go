package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shortforge/internal/api"
	"shortforge/internal/daemonrun"
	"shortforge/internal/deps"
	"shortforge/internal/store"
)

type doctorReport struct {
	System       deps.SystemInfo        `json:"system"`
	Dependencies []api.DependencyStatus `json:"dependencies"`
	Credentials  map[string]bool        `json:"credentials"`
	Database     store.Health           `json:"database"`
	Profiles     []string               `json:"profiles"`
	Daemon       *api.DaemonStatus      `json:"daemon,omitempty"`
	TextProbe    string                 `json:"text_probe,omitempty"`
	Problems     []string               `json:"problems,omitempty"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput, checkText bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, credentials, storage, and the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := doctorReport{
				System:       deps.System(),
				Dependencies: api.FromDependencies(deps.Snapshot(cmd.Context(), cfg)),
				Credentials: map[string]bool{
					"text":  strings.TrimSpace(cfg.Text.APIKeys) != "",
					"image": strings.TrimSpace(cfg.Image.APIKeys) != "",
					"voice": strings.TrimSpace(cfg.Voice.APIKeys) != "",
				},
			}
			for _, p := range cfg.Profiles {
				report.Profiles = append(report.Profiles, p.ID)
			}

			st, err := store.Open(cfg)
			if err != nil {
				report.Database.Path = cfg.DatabasePath()
				report.Database.Error = err.Error()
			} else {
				report.Database = st.CheckHealth(cmd.Context())
				_ = st.Close()
			}

			if client, err := ctx.client(); err == nil {
				probeCtx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
				if status, err := client.Status(probeCtx); err == nil {
					report.Daemon = &status
				}
				cancel()
			}

			for _, dep := range report.Dependencies {
				if !dep.Available && !dep.Optional {
					report.Problems = append(report.Problems, fmt.Sprintf("%s unavailable: %s", dep.Name, dep.Detail))
				}
			}
			if report.Database.Error != "" {
				report.Problems = append(report.Problems, "database: "+report.Database.Error)
			} else if !report.Database.IntegrityOK {
				report.Problems = append(report.Problems, "database integrity check failed")
			}
			if !report.Credentials["text"] {
				report.Problems = append(report.Problems, "no text generation credentials configured")
			} else if checkText {
				report.TextProbe = probeTextProvider(cmd, ctx)
				if report.TextProbe != "ok" && report.TextProbe != "unsupported" {
					report.Problems = append(report.Problems, "text provider: "+report.TextProbe)
				}
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printDoctor(cmd, report)
			}
			if len(report.Problems) > 0 {
				return fmt.Errorf("doctor found %d problem(s)", len(report.Problems))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&checkText, "check-text", false, "Send a health-check request to the text provider")
	return cmd
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

func probeTextProvider(cmd *cobra.Command, ctx *commandContext) string {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err.Error()
	}
	checker, ok := daemonrun.BuildProviders(cfg, ctx.logger(cmd)).Text.(healthChecker)
	if !ok {
		return "unsupported"
	}
	probeCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	if err := checker.HealthCheck(probeCtx); err != nil {
		return err.Error()
	}
	return "ok"
}

func printDoctor(cmd *cobra.Command, report doctorReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "System")
	fmt.Fprintln(out, renderDetails([][2]string{
		{"OS", report.System.OS + "/" + report.System.Arch},
		{"CPUs", strconv.Itoa(report.System.CPUs)},
		{"Go", report.System.GoVersion},
	}))
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(report.Dependencies))
	for _, dep := range report.Dependencies {
		state := "ok"
		if !dep.Available {
			state = "missing"
			if dep.Optional {
				state = "missing (optional)"
			}
		}
		rows = append(rows, []string{dep.Name, state, dep.Version, firstNonEmpty(dep.Path, dep.Detail)})
	}
	fmt.Fprintln(out, renderTable([]string{"Dependency", "Status", "Version", "Path"}, rows, nil))
	fmt.Fprintln(out)

	fmt.Fprintln(out, renderDetails([][2]string{
		{"Text credentials", yesNo(report.Credentials["text"])},
		{"Image credentials", yesNo(report.Credentials["image"])},
		{"Voice credentials", yesNo(report.Credentials["voice"])},
		{"Profiles", strings.Join(report.Profiles, ", ")},
		{"Database", report.Database.Path},
		{"Schema version", strconv.Itoa(report.Database.SchemaVersion)},
		{"Integrity", yesNo(report.Database.IntegrityOK)},
		{"Projects", strconv.Itoa(report.Database.Projects)},
		{"Jobs", strconv.Itoa(report.Database.Jobs)},
		{"Daemon", daemonSummary(report.Daemon)},
		{"Text probe", firstNonEmpty(report.TextProbe, "skipped")},
	}))
	for _, problem := range report.Problems {
		fmt.Fprintf(out, "problem: %s\n", problem)
	}
}

func daemonSummary(status *api.DaemonStatus) string {
	if status == nil {
		return "not running"
	}
	return fmt.Sprintf("running (pid %d, %d queued)", status.PID, status.QueueLength)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
