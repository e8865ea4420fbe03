package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shortforge/internal/batch"
	"shortforge/internal/daemonrun"
	"shortforge/internal/notifications"
	"shortforge/internal/pipeline"
	"shortforge/internal/stagegen"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Advance several projects at once",
	}
	batchCmd.AddCommand(newBatchAutoCommand(ctx))
	batchCmd.AddCommand(newBatchManualCommand(ctx))
	batchCmd.AddCommand(newBatchApproveCommand(ctx))
	return batchCmd
}

func newBatchAutoCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "auto <id>...",
		Short: "Generate the next stage for each project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, func(ws *workspace) error {
				orchestrator, err := newOrchestrator(ws, args)
				if err != nil {
					return err
				}
				return printReport(cmd, orchestrator.AutoAdvance(cmd.Context(), nil), jsonOutput)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newBatchApproveCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "approve <id>...",
		Short: "Accept reviewed references and generate their scripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, func(ws *workspace) error {
				orchestrator, err := newOrchestrator(ws, args)
				if err != nil {
					return err
				}
				return printReport(cmd, orchestrator.ApproveReferences(cmd.Context(), nil), jsonOutput)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newBatchManualCommand(ctx *commandContext) *cobra.Command {
	var textInput, fileInput string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "manual <id>...",
		Short: "Advance projects with operator-supplied content",
		Long: "Advance every listed project to its next stage using the same text or file.\n" +
			"All projects must be at the same stage.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := pipeline.ManualInput{Text: textInput, FilePath: strings.TrimSpace(fileInput)}
			if strings.TrimSpace(input.Text) == "" && input.FilePath == "" {
				return fmt.Errorf("provide --text or --file")
			}
			return ctx.withWorkspace(cmd, func(ws *workspace) error {
				orchestrator, err := newOrchestrator(ws, args)
				if err != nil {
					return err
				}
				report, err := orchestrator.ManualAdvance(cmd.Context(), nil, input)
				if err != nil {
					return err
				}
				return printReport(cmd, report, jsonOutput)
			})
		},
	}
	cmd.Flags().StringVar(&textInput, "text", "", "Text content for the next stage")
	cmd.Flags().StringVar(&fileInput, "file", "", "File for the next stage (audio, video, images, thumbnail)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newOrchestrator(ws *workspace, ids []string) (*batch.Orchestrator, error) {
	adapters := daemonrun.BuildProviders(ws.cfg, ws.logger)
	orchestrator := batch.New(
		ws.manager,
		stagegen.New(adapters.StageDeps(ws.cfg), ws.logger),
		adapters.Transcripts,
		ws.logger,
		batch.WithNotifier(notifications.NewService(ws.cfg)),
	)
	if _, err := orchestrator.Select(ids...); err != nil {
		return nil, err
	}
	return orchestrator, nil
}

func printReport(cmd *cobra.Command, report batch.Report, jsonOutput bool) error {
	if jsonOutput {
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(report.Results))
		for _, res := range report.Results {
			transition := string(res.From)
			if res.To != "" && res.To != res.From {
				transition += " → " + string(res.To)
			}
			rows = append(rows, []string{shortID(res.ProjectID), truncate(res.Title, 32), transition, string(res.Outcome), truncate(res.Message, 60)})
		}
		out := cmd.OutOrStdout()
		if len(rows) > 0 {
			fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Stage", "Outcome", "Message"}, rows, nil))
		}
		fmt.Fprintf(out, "%s: %d advanced, %d review, %d skipped, %d failed in %s\n",
			report.Operation,
			report.Count(batch.OutcomeAdvanced),
			report.Count(batch.OutcomeReview),
			report.Count(batch.OutcomeSkipped),
			report.Count(batch.OutcomeError),
			report.Duration().Round(time.Millisecond),
		)
	}
	if failed := report.Count(batch.OutcomeError); failed > 0 {
		return fmt.Errorf("%d of %d project(s) failed", failed, len(report.Results))
	}
	return nil
}
