package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"spool/internal/logging"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	lanes := m.orderedLanes()
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	for _, lane := range lanes {
		lane.logger = m.laneLogger(lane)
	}
	m.wg.Add(len(lanes))
	m.mu.Unlock()

	for _, lane := range lanes {
		go m.runLane(runCtx, lane)
	}
	return nil
}

// orderedLanes returns configured lanes in registration order. Callers hold mu.
func (m *Manager) orderedLanes() []*laneState {
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		if lane := m.lanes[kind]; lane != nil && len(lane.statusOrder) > 0 {
			lanes = append(lanes, lane)
		}
	}
	return lanes
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	if lane == nil {
		return
	}
	logger := lane.logger
	if logger == nil {
		logger = m.logger
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	retryDelay := time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second

	for ctx.Err() == nil {
		m.reclaimLane(ctx, logger, lane)

		item, err := m.store.NextForStatuses(ctx, lane.statusOrder...)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Debug("daemon shutting down, queue poll cancelled")
				return
			}
			m.setLastError(err)
			logger.Error("failed to fetch next queue item",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			m.sleep(ctx, retryDelay)
			continue
		}
		if item == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		// The item is not claimed yet, so a failed environment check just
		// holds the lane and the same item is picked up on the next pass.
		if err := m.runPreflightChecks(ctx, logger); err != nil {
			m.setLastError(err)
			m.sleep(ctx, retryDelay)
			continue
		}

		if err := m.processItem(ctx, lane, logger, item); errors.Is(err, context.Canceled) {
			return
		}
	}
}

func (m *Manager) reclaimLane(ctx context.Context, logger *slog.Logger, lane *laneState) {
	if !lane.runReclaimer {
		return
	}
	if err := m.heartbeat.Reclaim(ctx, logger, lane.processingStatuses); err != nil {
		logger.Warn("reclaim stale processing failed; stuck items may remain",
			logging.Error(err),
			logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
}

func (m *Manager) sleep(ctx context.Context, wait time.Duration) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
