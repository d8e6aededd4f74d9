package workflow

import "spool/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
// The resolver runs in the foreground lane so the user sees the resolved title
// quickly; download, transcode, and delivery share the background lane.
func (m *Manager) ConfigureStages(set StageSet) {
	foreground := &laneState{kind: queue.LaneForeground, notificationsEnabled: true}
	background := &laneState{kind: queue.LaneBackground, notificationsEnabled: false}

	if set.Resolver != nil {
		foreground.stages = append(foreground.stages, stageBinding{
			name:             "resolver",
			handler:          set.Resolver,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusResolving,
			doneStatus:       queue.StatusResolved,
		})
	}
	if set.Downloader != nil {
		background.stages = append(background.stages, stageBinding{
			name:             "downloader",
			handler:          set.Downloader,
			startStatus:      queue.StatusResolved,
			processingStatus: queue.StatusDownloading,
			doneStatus:       queue.StatusDownloaded,
		})
	}
	deliverStart := queue.StatusDownloaded
	if set.Transcoder != nil {
		background.stages = append(background.stages, stageBinding{
			name:             "transcoder",
			handler:          set.Transcoder,
			startStatus:      queue.StatusDownloaded,
			processingStatus: queue.StatusTranscoding,
			doneStatus:       queue.StatusTranscoded,
		})
		deliverStart = queue.StatusTranscoded
	}
	if set.Deliverer != nil {
		background.stages = append(background.stages, stageBinding{
			name:             "deliverer",
			handler:          set.Deliverer,
			startStatus:      deliverStart,
			processingStatus: queue.StatusDelivering,
			doneStatus:       queue.StatusCompleted,
		})
	}

	lanes := make(map[queue.ProcessingLane]*laneState)
	order := make([]queue.ProcessingLane, 0, 2)

	if len(foreground.stages) > 0 {
		foreground.index()
		lanes[foreground.kind] = foreground
		order = append(order, foreground.kind)
	}
	if len(background.stages) > 0 {
		background.index()
		lanes[background.kind] = background
		order = append(order, background.kind)
	}

	for _, lane := range lanes {
		if lane == nil {
			continue
		}
		lane.runReclaimer = len(lane.processingStatuses) > 0
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
