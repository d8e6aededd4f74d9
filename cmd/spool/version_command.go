package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"spool/internal/deps"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

type toolVersion struct {
	Name      string `json:"name"`
	Command   string `json:"command,omitempty"`
	Version   string `json:"version,omitempty"`
	Available bool   `json:"available"`
}

type versionPayload struct {
	Version string        `json:"version"`
	Go      string        `json:"go"`
	Tools   []toolVersion `json:"tools,omitempty"`
}

func newVersionCommand(ctx *commandContext) *cobra.Command {
	var tools bool

	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print the spool version",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := versionPayload{Version: version, Go: runtime.Version()}
			if tools {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				for _, snap := range deps.CollectVersions(cmd.Context(), cfg) {
					payload.Tools = append(payload.Tools, toolVersion{
						Name:      snap.Name,
						Command:   snap.Command,
						Version:   snap.Version,
						Available: snap.Available,
					})
				}
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "spool %s (%s)\n", payload.Version, payload.Go)
			for _, tool := range payload.Tools {
				if !tool.Available {
					fmt.Fprintf(out, "%-8s not found\n", tool.Name)
					continue
				}
				versionText := tool.Version
				if versionText == "" {
					versionText = "unknown version"
				}
				fmt.Fprintf(out, "%-8s %s (%s)\n", tool.Name, versionText, tool.Command)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&tools, "tools", false, "Also report external tool versions")
	return cmd
}
