package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shortforge/internal/api"
	"shortforge/internal/daemonctl"
	"shortforge/internal/jobs"
	"shortforge/internal/services"
	"shortforge/internal/store"
)

const jobPollInterval = 500 * time.Millisecond

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:     "job",
		Aliases: []string{"jobs"},
		Short:   "Submit and inspect single-shot generation jobs",
	}
	jobCmd.AddCommand(newJobAddCommand(ctx))
	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobRenderCommand(ctx))
	return jobCmd
}

func newJobAddCommand(ctx *commandContext) *cobra.Command {
	var channel, scriptFile string
	var wait, jsonOutput bool
	cmd := &cobra.Command{
		Use:   "add <theme>",
		Short: "Queue a job on the running daemon",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req := api.SubmitJobRequest{Theme: strings.Join(args, " "), ChannelID: strings.TrimSpace(channel)}
			if req.ChannelID == "" && len(cfg.Profiles) > 0 {
				req.ChannelID = cfg.Profiles[0].ID
			}
			if path := strings.TrimSpace(scriptFile); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read reference script: %w", err)
				}
				req.ReferenceScript = string(data)
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := client.SubmitJob(cmd.Context(), req)
			if err != nil {
				return daemonHint(err)
			}
			if wait {
				job, err = waitForJob(cmd, client, job.ID, func(j api.Job) bool {
					return j.Status == string(jobs.StatusReviewPending) || jobs.Status(j.Status).Terminal()
				})
				if err != nil {
					return err
				}
			}
			if jsonOutput {
				return writeJSON(cmd, job)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s %s\n", job.ID, job.Status)
			return jobOutcome(job)
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "Channel profile id (defaults to the first profile)")
	cmd.Flags().StringVar(&scriptFile, "script-file", "", "Reference script to base the narration on")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the job reaches review")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newJobRenderCommand(ctx *commandContext) *cobra.Command {
	var wait, jsonOutput bool
	cmd := &cobra.Command{
		Use:   "render <id>",
		Short: "Render a reviewed job into a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := client.RenderJob(cmd.Context(), args[0])
			if err != nil {
				return daemonHint(err)
			}
			if wait {
				job, err = waitForJob(cmd, client, job.ID, func(j api.Job) bool {
					return jobs.Status(j.Status).Terminal() || (j.Status == string(jobs.StatusReviewPending) && j.Error != "")
				})
				if err != nil {
					return err
				}
			}
			if jsonOutput {
				return writeJSON(cmd, job)
			}
			if job.VideoURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s %s: %s\n", job.ID, job.Status, job.VideoURL)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s render started\n", job.ID)
			}
			return jobOutcome(job)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the render finishes")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []jobs.Status
			for _, value := range statusFilters {
				status, ok := jobs.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown job status %q", value)
				}
				statuses = append(statuses, status)
			}
			return ctx.withWorkspace(cmd, func(ws *workspace) error {
				list, err := ws.store.ListJobs(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				views := api.FromJobs(list)
				if jsonOutput {
					return writeJSON(cmd, api.JobListResponse{Items: views})
				}
				if len(views) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{
						shortID(v.ID),
						truncate(v.Theme, 40),
						v.ChannelID,
						v.Status,
						v.StepLabel,
						fmt.Sprintf("%d%%", v.Progress),
						fmt.Sprintf("%d", v.Warnings),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Theme", "Channel", "Status", "Step", "Progress", "Warnings"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Only jobs with these statuses")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a job with its storyboard and log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, func(ws *workspace) error {
				job, err := resolveJob(cmd.Context(), ws.store, args[0])
				if err != nil {
					return err
				}
				view := api.FromJob(job)
				if jsonOutput {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				pairs := [][2]string{
					{"ID", view.ID},
					{"Theme", view.Theme},
					{"Channel", view.ChannelID},
					{"Status", view.Status},
					{"Step", view.StepLabel},
					{"Progress", fmt.Sprintf("%d%%", view.Progress)},
					{"Error", view.Error},
					{"Script", truncate(view.Script, 120)},
					{"Audio", view.AudioURL},
					{"Video", view.VideoURL},
				}
				if view.Metadata != nil {
					pairs = append(pairs,
						[2]string{"Title", view.Metadata.Title},
						[2]string{"Tags", strings.Join(view.Metadata.Tags, ", ")},
					)
				}
				fmt.Fprintln(out, renderDetails(pairs))

				if len(view.Storyboard) > 0 {
					rows := make([][]string, 0, len(view.Storyboard))
					for i, seg := range view.Storyboard {
						rows = append(rows, []string{fmt.Sprintf("%d", i+1), truncate(seg.Text, 50), yesNo(seg.ImageURL != ""), yesNo(seg.AudioURL != "")})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable([]string{"#", "Narration", "Image", "Audio"}, rows, []columnAlignment{alignRight}))
				}
				if len(view.Logs) > 0 {
					fmt.Fprintln(out)
					for _, entry := range view.Logs {
						fmt.Fprintf(out, "%s %-5s %s\n", entry.Time, entry.Level, entry.Message)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// resolveJob accepts a full id or a unique prefix of at least four characters.
func resolveJob(ctx context.Context, st *store.Store, idOrPrefix string) (jobs.Job, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	job, err := st.GetJob(ctx, idOrPrefix)
	if err == nil || !errors.Is(err, services.ErrNotFound) || len(idOrPrefix) < 4 {
		return job, err
	}
	list, listErr := st.ListJobs(ctx)
	if listErr != nil {
		return jobs.Job{}, listErr
	}
	var matches []jobs.Job
	for _, candidate := range list {
		if strings.HasPrefix(candidate.ID, idOrPrefix) {
			matches = append(matches, candidate)
		}
	}
	switch len(matches) {
	case 0:
		return jobs.Job{}, err
	case 1:
		return matches[0], nil
	default:
		return jobs.Job{}, services.Wrap(services.ErrValidation, "", "resolve job", fmt.Sprintf("prefix %q matches %d jobs", idOrPrefix, len(matches)), nil)
	}
}

func waitForJob(cmd *cobra.Command, client *daemonctl.Client, id string, done func(api.Job) bool) (api.Job, error) {
	printer := newProgressPrinter(cmd.ErrOrStderr())
	defer printer.finish()
	return client.WaitForJob(cmd.Context(), id, jobPollInterval, done, printer.update)
}

func jobOutcome(job api.Job) error {
	if job.Status == string(jobs.StatusFailed) {
		return fmt.Errorf("job %s failed: %s", shortID(job.ID), job.Error)
	}
	return nil
}

func daemonHint(err error) error {
	if errors.Is(err, daemonctl.ErrNotRunning) {
		return fmt.Errorf("%w (start it with `shortforge serve`)", err)
	}
	return err
}
