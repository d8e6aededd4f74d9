package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spool/internal/logging"
	"spool/internal/queue"
)

func (m *Manager) notifyStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error, message string, resolved queue.Status) {
	if m.notifier == nil || stageErr == nil {
		return
	}
	logger := logging.WithContext(ctx, m.logger.With(logging.String(logging.FieldComponent, "workflow-manager")))

	var err error
	if resolved == queue.StatusReview {
		err = m.notifier.NotifyReviewRequired(ctx, item.DisplayTitle(), message)
	} else {
		contextLabel := fmt.Sprintf("%s (item #%d)", stageName, item.ID)
		err = m.notifier.NotifyError(ctx, stageErr, contextLabel)
	}
	logNotifyError(logger, "failure notification", err)
}

func (m *Manager) onItemStarted(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, ok := m.statsForNotification(ctx, "start notification")
	if !ok {
		return
	}
	m.mu.Lock()
	if m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = true
	m.queueStart = time.Now()
	m.mu.Unlock()

	err := m.notifier.NotifyQueueStarted(ctx, activeItemCount(stats))
	logNotifyError(m.logger, "queue start notification", err)
}

func (m *Manager) checkQueueCompletion(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, ok := m.statsForNotification(ctx, "completion notification")
	if !ok {
		return
	}
	if activeItemCount(stats) > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	start := m.queueStart
	m.queueActive = false
	m.queueStart = time.Time{}
	m.mu.Unlock()

	duration := time.Duration(0)
	if !start.IsZero() {
		duration = time.Since(start)
	}
	processed := stats[queue.StatusCompleted]
	failed := stats[queue.StatusFailed] + stats[queue.StatusReview]
	err := m.notifier.NotifyQueueCompleted(ctx, processed, failed, duration)
	logNotifyError(m.logger, "queue completion notification", err)
}

// statsForNotification fetches queue stats, logging and swallowing failures
// because notifications never block the pipeline.
func (m *Manager) statsForNotification(ctx context.Context, purpose string) (map[queue.Status]int, bool) {
	stats, err := m.store.Stats(ctx)
	if err == nil {
		return stats, true
	}
	if errors.Is(err, context.Canceled) {
		m.logger.Debug("daemon shutting down, skipping " + purpose)
		return nil, false
	}
	m.logger.Warn("queue stats unavailable; "+purpose+" skipped",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_stats_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
		logging.String(logging.FieldImpact, purpose+" will not be sent"),
	)
	return nil, false
}

func logNotifyError(logger *slog.Logger, label string, err error) {
	if err == nil || logger == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		logger.Debug("daemon shutting down, skipping " + label)
		return
	}
	logger.Debug(label+" failed", logging.Error(err))
}

func activeItemCount(stats map[queue.Status]int) int {
	total := 0
	for status, count := range stats {
		if queue.IsTerminal(status) {
			continue
		}
		total += count
	}
	return total
}
