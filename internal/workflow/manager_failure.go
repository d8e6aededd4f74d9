package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"spool/internal/bot"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	logger := logging.WithContext(ctx, base).With(logging.String(logging.FieldComponent, "workflow-manager"))

	message := m.classifyStageFailure(stageName, stageErr)
	resolved := m.setItemFailureState(item, message, stageErr)

	attrs := []logging.Attr{
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", strings.TrimSpace(message)),
		logging.Alert("stage_failure"),
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "stage_failure"),
	}
	logger.Error("stage failed", logging.Args(attrs...)...)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastItem(item)
	m.editFailureStatus(ctx, logger, item, stageErr, message, resolved)
	m.notifyStageFailure(ctx, stageName, item, stageErr, message, resolved)
	m.checkQueueCompletion(ctx)
}

func (m *Manager) classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return m.getStageFailureMessage(stageName, "failed without error detail")
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = m.getStageFailureMessage(stageName, "failed")
	}
	return message
}

func (m *Manager) getStageFailureMessage(stageName, defaultMsg string) string {
	if stageName != "" {
		return fmt.Sprintf("%s %s", stageName, defaultMsg)
	}
	return fmt.Sprintf("workflow %s", defaultMsg)
}

// setItemFailureState applies the terminal status an error maps to. Validation
// and configuration problems park the item for operator review instead of
// burning retries on a request that cannot succeed as submitted.
func (m *Manager) setItemFailureState(item *queue.Item, message string, stageErr error) queue.Status {
	if services.FailureStatus(stageErr) == queue.StatusReview {
		item.SetReview(message)
		return queue.StatusReview
	}
	item.SetFailed(message)
	return queue.StatusFailed
}

// editFailureStatus rewrites the requester's status message so a Telegram user
// is never left staring at a stale progress line after the pipeline gave up.
func (m *Manager) editFailureStatus(ctx context.Context, logger *slog.Logger, item *queue.Item, stageErr error, message string, resolved queue.Status) {
	if m.status == nil || item.ChatID == 0 || item.MessageID == 0 {
		return
	}
	text, ok := services.UserMessage(stageErr)
	if !ok {
		if resolved == queue.StatusReview {
			text = bot.ReviewText(message)
		} else {
			text = bot.ErrorText(message)
		}
	}
	if err := m.status.EditNow(ctx, item.ChatID, item.MessageID, text); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not edit failure status")
			return
		}
		logger.Warn("failure status edit failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "status_edit_failed"),
			logging.String(logging.FieldErrorHint, "check Telegram connectivity"),
			logging.String(logging.FieldImpact, "requester keeps the stale progress message"),
		)
	}
}
