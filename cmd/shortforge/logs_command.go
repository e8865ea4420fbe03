package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shortforge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var filter logs.Filter
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			opts := logs.TailOptions{Offset: -1, Limit: lines, Filter: filter}
			if follow {
				opts.Wait = time.Second
				return logs.Follow(cmd.Context(), cfg.LogPath(), opts, func(line string) {
					fmt.Fprintln(out, line)
				})
			}
			result, err := logs.Tail(cmd.Context(), cfg.LogPath(), opts)
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&filter.ProjectID, "project", "", "Only lines for this project id")
	cmd.Flags().StringVar(&filter.JobID, "job", "", "Only lines for this job id")
	cmd.Flags().StringVar(&filter.Level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Only lines containing this text")
	return cmd
}
