package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// rollbackCase builds the CASE expression mapping each processing status back
// to the status that re-enters the same stage.
func rollbackCase() (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(stageRollbackTransitions)*2)
	sb.WriteString("CASE status")
	for range stageRollbackTransitions {
		sb.WriteString(" WHEN ? THEN ?")
	}
	sb.WriteString(" ELSE status END")
	for _, transition := range stageRollbackTransitions {
		args = append(args, transition.from, transition.to)
	}
	return sb.String(), args
}

// ResetStuckProcessing resets items in processing states back to the start of their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	caseExpr, caseArgs := rollbackCase()
	processing := make([]any, 0, len(stageRollbackTransitions))
	for _, transition := range stageRollbackTransitions {
		processing = append(processing, transition.from)
	}

	args := make([]any, 0, len(caseArgs)+1+len(processing))
	args = append(args, caseArgs...)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, processing...)

	res, err := s.exec(
		ctx,
		`UPDATE queue_items
         SET status = `+caseExpr+`,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(processing))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if _, err := s.exec(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns items stuck in processing back to the start of
// their current stage when heartbeats expire. When statuses are provided only
// those processing states are considered.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time, statuses ...Status) (int64, error) {
	if len(statuses) == 0 {
		for _, transition := range stageRollbackTransitions {
			statuses = append(statuses, transition.from)
		}
	}

	caseExpr, caseArgs := rollbackCase()
	now := time.Now().UTC()

	args := make([]any, 0, len(caseArgs)+2+len(statuses))
	args = append(args, caseArgs...)
	args = append(args, now.Format(time.RFC3339Nano))
	for _, status := range statuses {
		args = append(args, status)
	}
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	res, err := s.exec(
		ctx,
		`UPDATE queue_items
        SET status = `+caseExpr+`,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (`+makePlaceholders(len(statuses))+`) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed and review items back to pending for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.exec(
			ctx,
			`UPDATE queue_items
            SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL,
                retry_count = retry_count + 1, updated_at = ?
            WHERE status IN (?, ?)`,
			StatusPending,
			timestamp,
			StatusFailed,
			StatusReview,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+4)
	args = append(args, StatusPending, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusFailed, StatusReview)
	query := `UPDATE queue_items
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL,
            retry_count = retry_count + 1, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status IN (?, ?)`
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}
