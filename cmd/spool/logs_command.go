package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"spool/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logPath := filepath.Join(cfg.Paths.LogDir, "spool.log")
			out := cmd.OutOrStdout()

			if follow {
				return logs.Follow(cmd.Context(), logPath, lines, func(line string) {
					fmt.Fprintln(out, line)
				})
			}

			offset := int64(-1)
			if lines <= 0 {
				offset = 0
			}
			result, err := logs.Tail(cmd.Context(), logPath, logs.TailOptions{Offset: offset, Limit: lines})
			if err != nil {
				return fmt.Errorf("tail logs: %w", err)
			}
			if len(result.Lines) == 0 {
				fmt.Fprintln(out, "No log entries available")
				return nil
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}
