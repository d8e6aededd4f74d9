package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/config"
	"spool/internal/daemonctl"
	"spool/internal/ipc"
	"spool/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, statusResp)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if statusResp.Running {
				detail := "Running"
				if statusResp.PID > 0 {
					detail = fmt.Sprintf("Running (pid %d)", statusResp.PID)
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, detail, colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "Stopped (start with `spool daemon start`)", colorize))
			}
			if lastErr := strings.TrimSpace(statusResp.LastError); lastErr != "" {
				fmt.Fprintln(stdout, renderStatusLine("Last Error", statusError, lastErr, colorize))
			}
			for _, line := range stageHealthLines(statusResp.StageHealth, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Connectivity", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, connectivityLine(preflight.CheckTelegramFromConfig(cfg), colorize))
			fmt.Fprintln(stdout, connectivityLine(preflight.CheckNotificationsFromConfig(cfg), colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(statusResp.Dependencies, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Paths", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range pathLines(cfg, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Queue Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildQueueStatusRows(statusResp.QueueStats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			table := renderTable(stdout, []string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
}

func stageHealthLines(health []ipc.StageHealth, colorize bool) []string {
	lines := make([]string, 0, len(health))
	for _, entry := range health {
		name := formatStatusLabel(entry.Name)
		if entry.Ready {
			detail := strings.TrimSpace(entry.Detail)
			if detail == "" {
				detail = "Ready"
			}
			lines = append(lines, renderStatusLine(name, statusOK, detail, colorize))
			continue
		}
		detail := strings.TrimSpace(entry.Detail)
		if detail == "" {
			detail = "not ready"
		}
		lines = append(lines, renderStatusLine(name, statusWarn, detail, colorize))
	}
	return lines
}

func connectivityLine(result preflight.Result, colorize bool) string {
	if result.Passed {
		return renderStatusLine(result.Name, statusOK, result.Detail, colorize)
	}
	return renderStatusLine(result.Name, statusWarn, result.Detail, colorize)
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, fmt.Sprintf("%s (see README.md for install steps)", strings.Join(missing, ", ")), colorize))
	}
	return lines
}

func pathLines(cfg *config.Config, colorize bool) []string {
	if cfg == nil {
		return []string{renderStatusLine("Paths", statusInfo, "Unknown", colorize)}
	}
	return []string{
		directoryStatusLine("Data directory", cfg.Paths.DataDir, colorize),
		directoryStatusLine("Staging directory", cfg.Paths.StagingDir, colorize),
		directoryStatusLine("Log directory", cfg.Paths.LogDir, colorize),
	}
}

func directoryStatusLine(label, path string, colorize bool) string {
	result := preflight.CheckDirectoryAccess(label, path)
	if result.Passed {
		return renderStatusLine(label, statusOK, result.Detail, colorize)
	}
	return renderStatusLine(label, statusError, result.Detail, colorize)
}
