package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"shortforge/internal/api"
	"shortforge/internal/pipeline"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage pipeline projects",
	}
	projectCmd.AddCommand(newProjectCreateCommand(ctx))
	projectCmd.AddCommand(newProjectListCommand(ctx))
	projectCmd.AddCommand(newProjectShowCommand(ctx))
	projectCmd.AddCommand(newProjectResetCommand(ctx))
	projectCmd.AddCommand(newProjectMoveCommand(ctx))
	projectCmd.AddCommand(newProjectDeleteCommand(ctx))
	return projectCmd
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	var channel, reference, transcriptFile string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a project at the reference stage",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, func(ws *workspace) error {
				title := strings.Join(args, " ")
				channelID := strings.TrimSpace(channel)
				if channelID == "" && len(ws.cfg.Profiles) > 0 {
					channelID = ws.cfg.Profiles[0].ID
				}
				if _, ok := ws.cfg.Profile(channelID); !ok {
					return fmt.Errorf("unknown channel %q (configure it under [[profiles]])", channelID)
				}

				var input string
				switch {
				case strings.TrimSpace(transcriptFile) != "":
					data, err := os.ReadFile(transcriptFile)
					if err != nil {
						return fmt.Errorf("read transcript: %w", err)
					}
					input = string(data)
				case strings.TrimSpace(reference) != "":
					input = reference
				}
				var payload pipeline.Payload
				if strings.TrimSpace(input) != "" {
					entry, _ := pipeline.Lookup(pipeline.StageReference)
					built, err := entry.FromManual(pipeline.ManualInput{Text: input})
					if err != nil {
						return err
					}
					payload = built
				}

				p, err := ws.manager.Create(cmd.Context(), channelID, title)
				if err != nil {
					return err
				}
				if payload != nil {
					if p, err = ws.manager.SetCurrentData(cmd.Context(), p.ID, payload); err != nil {
						return err
					}
				}
				if jsonOutput {
					return writeJSON(cmd, api.FromProject(p))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", shortID(p.ID), p.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "Channel profile id (defaults to the first profile)")
	cmd.Flags().StringVar(&reference, "reference", "", "Reference video URL or id, or a pasted transcript")
	cmd.Flags().StringVar(&transcriptFile, "transcript-file", "", "Read the reference transcript from a file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	var stageFilter, statusFilter string
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, func(ws *workspace) error {
				var views []api.Project
				for _, p := range ws.manager.List() {
					view := api.FromProject(p)
					if stageFilter != "" && view.Stage != stageFilter {
						continue
					}
					if statusFilter != "" && view.Status != statusFilter {
						continue
					}
					views = append(views, view)
				}
				if jsonOutput {
					return writeJSON(cmd, api.ProjectListResponse{Items: views})
				}
				if len(views) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No projects")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{
						shortID(v.ID),
						truncate(v.Title, 40),
						v.ChannelID,
						fmt.Sprintf("%d/%d %s", v.StageIndex, v.StageCount, v.StageLabel),
						v.Status,
						truncate(firstNonEmpty(v.Error, v.Summary), 48),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Channel", "Stage", "Status", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stageFilter, "stage", "", "Only projects at this stage")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only projects with this status (waiting, ready, processing, review, error)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project and its stage data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, func(ws *workspace) error {
				p, err := ws.manager.Resolve(args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, struct {
						Project   api.Project                         `json:"project"`
						StageData map[pipeline.Stage]pipeline.Payload `json:"stageData"`
					}{api.FromProject(p), p.StageData})
				}
				view := api.FromProject(p)
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderDetails([][2]string{
					{"ID", view.ID},
					{"Title", view.Title},
					{"Channel", view.ChannelID},
					{"Stage", fmt.Sprintf("%d/%d %s", view.StageIndex, view.StageCount, view.StageLabel)},
					{"Status", view.Status},
					{"Error", view.Error},
					{"Updated", view.UpdatedAt},
				}))
				var rows [][]string
				for _, stage := range pipeline.Stages() {
					payload, ok := p.StageData[stage]
					if !ok || payload == nil {
						continue
					}
					marker := ""
					if stage == p.CurrentStage {
						marker = "*"
					}
					rows = append(rows, []string{marker + stage.Label(), string(payload.PayloadMode()), truncate(api.SummarizePayload(payload), 60)})
				}
				if len(rows) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable([]string{"Stage", "Mode", "Data"}, rows, nil))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newProjectResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <id>...",
		Short: "Clear the current stage's data and status",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, func(ws *workspace) error {
				for _, arg := range args {
					p, err := ws.manager.Resolve(arg)
					if err != nil {
						return err
					}
					if _, err := ws.manager.ResetStage(cmd.Context(), p.ID); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Reset %s at %s\n", shortID(p.ID), p.CurrentStage.Label())
				}
				return nil
			})
		},
	}
}

func newProjectMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <stage>",
		Short: "Move a project to any stage, keeping its data",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := pipeline.ParseStage(args[1])
			if err != nil {
				return err
			}
			return ctx.withWorkspace(cmd, func(ws *workspace) error {
				p, err := ws.manager.Resolve(args[0])
				if err != nil {
					return err
				}
				moved, err := ws.manager.MoveStage(cmd.Context(), p.ID, target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %s from %s to %s\n", shortID(p.ID), p.CurrentStage.Label(), moved.CurrentStage.Label())
				return nil
			})
		},
	}
}

func newProjectDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete projects",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, func(ws *workspace) error {
				for _, arg := range args {
					p, err := ws.manager.Resolve(arg)
					if err != nil {
						return err
					}
					if err := ws.manager.Delete(cmd.Context(), p.ID); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", shortID(p.ID), p.Title)
				}
				return nil
			})
		},
	}
}
