package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"spool/internal/logging"
	"spool/internal/queue"
)

// Heartbeat stamps in-flight items and returns abandoned ones to the start
// of their stage once the timeout lapses.
type Heartbeat struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewHeartbeat creates a monitor with the given stamp interval and stale
// timeout.
func NewHeartbeat(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *Heartbeat {
	return &Heartbeat{store: store, logger: logger, interval: interval, timeout: timeout}
}

// Reclaim rolls items whose heartbeat expired back to the start of their
// stage. A zero timeout disables reclamation.
func (h *Heartbeat) Reclaim(ctx context.Context, logger *slog.Logger, statuses []queue.Status) error {
	if h.timeout <= 0 || len(statuses) == 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.timeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff, statuses...)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		logger.Info("reclaimed stale items", logging.Int64("reclaimed", reclaimed))
	}
	return nil
}

// Loop stamps the item until the context is cancelled.
func (h *Heartbeat) Loop(ctx context.Context, wg *sync.WaitGroup, itemID int64) {
	defer wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(logging.String(logging.FieldComponent, "workflow-heartbeat")))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := h.store.UpdateHeartbeat(ctx, itemID)
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled):
				logger.Debug("heartbeat update cancelled by shutdown")
			default:
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}
