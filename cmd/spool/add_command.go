package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/ipc"
	"spool/internal/links"
	"spool/internal/queue"
	"spool/internal/queueaccess"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Queue a media URL for download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kindValue := strings.ToLower(strings.TrimSpace(kind))
			if _, ok := queue.ParseMediaKind(kindValue); !ok {
				return fmt.Errorf("unknown media kind %q (expected mp3 or mp4)", kind)
			}

			canonical, err := links.Canonicalize(args[0])
			if err != nil {
				return fmt.Errorf("invalid url: %w", err)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !links.Allowed(canonical, cfg.Download.AllowedDomains) {
				return fmt.Errorf("domain %s is not in the allowed list", links.SourceHost(canonical))
			}

			return ctx.withQueueSession(func(session queueaccess.Session) error {
				item, created, err := session.Enqueue(cmd.Context(), canonical, kindValue)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, ipc.EnqueueResponse{Item: *item, Created: created})
				}
				out := cmd.OutOrStdout()
				if created {
					fmt.Fprintf(out, "Queued item %d: %s\n", item.ID, canonical)
					return nil
				}
				fmt.Fprintf(out, "Item %d already queued for %s\n", item.ID, canonical)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "mp4", "Media kind to produce (mp3 or mp4)")
	return cmd
}
