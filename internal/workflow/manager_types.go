package workflow

import (
	"log/slog"

	"spool/internal/queue"
	"spool/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Resolver   stage.Handler
	Downloader stage.Handler
	Transcoder stage.Handler
	Deliverer  stage.Handler
}

// stageBinding ties a handler to the status triple that carries an item
// through it: claim at startStatus, hold processingStatus while the handler
// runs, land on doneStatus.
type stageBinding struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

type laneState struct {
	kind                 queue.ProcessingLane
	stages               []stageBinding
	statusOrder          []queue.Status
	byStart              map[queue.Status]stageBinding
	processingStatuses   []queue.Status
	logger               *slog.Logger
	notificationsEnabled bool
	runReclaimer         bool
}

// index builds the status lookup tables once the stage list is final.
func (l *laneState) index() {
	if l == nil {
		return
	}
	l.byStart = make(map[queue.Status]stageBinding, len(l.stages))
	l.statusOrder = make([]queue.Status, 0, len(l.stages))
	seen := make(map[queue.Status]struct{})
	for _, stg := range l.stages {
		l.byStart[stg.startStatus] = stg
		l.statusOrder = append(l.statusOrder, stg.startStatus)
		if stg.processingStatus == "" {
			continue
		}
		if _, ok := seen[stg.processingStatus]; ok {
			continue
		}
		l.processingStatuses = append(l.processingStatuses, stg.processingStatus)
		seen[stg.processingStatus] = struct{}{}
	}
}

func (l *laneState) stageForStatus(status queue.Status) (stageBinding, bool) {
	if l == nil {
		return stageBinding{}, false
	}
	stg, ok := l.byStart[status]
	return stg, ok
}

func (l *laneState) label() string {
	if l == nil {
		return ""
	}
	return string(l.kind)
}
