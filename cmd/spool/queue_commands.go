package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/api"
	"spool/internal/ipc"
	"spool/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the download queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueHealthSubcommand(ctx))

	return queueCmd
}

// withQueueSession runs fn against the daemon when it is up and the store
// directly otherwise, so queue inspection survives daemon downtime.
func (c *commandContext) withQueueSession(fn func(queueaccess.Session) error) error {
	session, err := c.queueSession()
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session)
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueSession(func(session queueaccess.Session) error {
				stats, err := session.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, api.QueueStatsResponse{Counts: stats})
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(cmd.OutOrStdout(), []string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueSession(func(session queueaccess.Session) error {
				items, err := session.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, api.QueueListResponse{Items: api.SortQueueItemsNewestFirst(items)})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					cmd.OutOrStdout(),
					[]string{"ID", "Title", "Kind", "Status", "Progress", "Created"},
					buildQueueListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show details for one queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return ctx.withQueueSession(func(session queueaccess.Session) error {
				item, err := session.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, api.QueueItemResponse{Item: *item})
				}
				printQueueItemDetail(cmd, item)
				return nil
			})
		},
	}
}

func printQueueItemDetail(cmd *cobra.Command, item *api.QueueItem) {
	out := cmd.OutOrStdout()
	write := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		fmt.Fprintf(out, "%-16s %s\n", label+":", value)
	}

	write("ID", fmt.Sprintf("%d", item.ID))
	write("Title", item.Title)
	write("URL", item.URL)
	write("Source", item.Source)
	write("Kind", formatStatusLabel(item.MediaKind))
	write("Status", formatStatusLabel(item.Status))
	write("Lane", formatStatusLabel(item.ProcessingLane))
	write("Progress", formatProgressCell(item.Progress))
	if msg := strings.TrimSpace(item.Progress.Message); msg != "" {
		write("Progress Note", msg)
	}
	write("Duration", formatDuration(item.DurationSeconds))
	write("Requested By", item.RequestedBy)
	if item.ChatID != 0 {
		write("Chat", fmt.Sprintf("%d", item.ChatID))
	}
	if item.RetryCount > 0 {
		write("Retries", fmt.Sprintf("%d", item.RetryCount))
	}
	write("Source File", item.SourceFile)
	write("Output File", item.OutputFile)
	write("Delivered ID", item.DeliveredFileID)
	write("Error", item.ErrorMessage)
	write("Created", formatDisplayTime(item.CreatedAt))
	write("Updated", formatDisplayTime(item.UpdatedAt))
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool
	var clearForce bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withQueueSession(func(session queueaccess.Session) error {
				out := cmd.OutOrStdout()
				if clearForce {
					fmt.Fprintln(out, "Clearing queue without confirmation (--force)")
				}
				switch {
				case clearCompleted:
					removed, err := session.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed items\n", removed)
				case clearFailed:
					removed, err := session.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed items\n", removed)
				default:
					removed, err := session.ClearAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d queue items\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed items")
	cmd.Flags().BoolVar(&clearForce, "force", false, "No-op flag for compatibility; removal always proceeds")
	return cmd
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueSession(func(session queueaccess.Session) error {
				removed, err := session.ClearFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed items\n", removed)
				return nil
			})
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "reset",
		Aliases: []string{"reset-stuck"},
		Short:   "Return in-flight items to their last ready status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueSession(func(session queueaccess.Session) error {
				updated, err := session.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d items\n", updated)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Retry failed queue items",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}

			return ctx.withQueueSession(func(session queueaccess.Session) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := session.RetryAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed items\n", updated)
					return nil
				}

				result, err := api.RetryFailedItemsByID(cmd.Context(), session, ids)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, result)
				}
				for _, id := range result.Updated {
					fmt.Fprintf(out, "Item %d reset for retry\n", id)
				}
				for _, id := range result.Missing {
					fmt.Fprintf(out, "Item %d not found\n", id)
				}
				for _, id := range result.Skipped {
					fmt.Fprintf(out, "Item %d is not in a retryable state\n", id)
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <itemID...>",
		Short: "Remove specific queue items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}

			return ctx.withQueueSession(func(session queueaccess.Session) error {
				result, err := api.RemoveItemsByID(cmd.Context(), sessionRemover{session}, ids)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				for _, id := range result.Removed {
					fmt.Fprintf(out, "Removed item %d\n", id)
				}
				for _, id := range result.Missing {
					fmt.Fprintf(out, "Item %d not found\n", id)
				}
				return nil
			})
		},
	}
}

// sessionRemover narrows the batch remove call to the per-item shape the
// removal workflow reports on.
type sessionRemover struct {
	session queueaccess.Session
}

func (r sessionRemover) Remove(ctx context.Context, id int64) (bool, error) {
	removed, err := r.session.Remove(ctx, []int64{id})
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func newQueueHealthSubcommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueSession(func(session queueaccess.Session) error {
				health, err := session.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, ipc.QueueHealthResponse{
						Total:      health.Total,
						Pending:    health.Pending,
						Processing: health.Processing,
						Failed:     health.Failed,
						Review:     health.Review,
						Completed:  health.Completed,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nProcessing: %d\nFailed: %d\nReview: %d\nCompleted: %d\n",
					health.Total,
					health.Pending,
					health.Processing,
					health.Failed,
					health.Review,
					health.Completed,
				)
				return nil
			})
		},
	}
}

func parseItemIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
