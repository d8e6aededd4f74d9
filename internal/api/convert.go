package api

import (
	"slices"
	"strings"

	"spool/internal/deps"
	"spool/internal/queue"
	"spool/internal/stage"
	"spool/internal/workflow"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}

	dto := QueueItem{
		ID:             item.ID,
		Title:          item.Title,
		URL:            item.URL,
		Source:         item.Source,
		MediaKind:      string(item.MediaKind),
		ChatID:         item.ChatID,
		RequestedBy:    item.RequestedBy,
		Status:         string(item.Status),
		ProcessingLane: string(queue.LaneForItem(item)),
		Progress: QueueProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		ErrorMessage:    item.ErrorMessage,
		DurationSeconds: item.DurationSeconds,
		SourceFile:      item.SourceFile,
		OutputFile:      item.OutputFile,
		DeliveredFileID: item.DeliveredFileID,
		RetryCount:      item.RetryCount,
	}

	// Consumers read stage/percent without reapplying queue rules, so terminal
	// and unstarted items get a presentable progress block here.
	switch {
	case item.Status == queue.StatusCompleted:
		dto.Progress.Stage = "Completed"
		dto.Progress.Percent = 100
	case dto.Progress.Stage == "":
		dto.Progress.Stage = statusLabel(item.Status)
	}

	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromQueueItems converts a slice of queue records into API DTOs.
func FromQueueItems(items []*queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  QueueStatsMap(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}

	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastItem != nil {
		last := FromQueueItem(summary.LastItem)
		wf.LastItem = &last
	}
	return wf
}

// QueueStatsMap converts status-keyed queue stats to the string keys API
// payloads use.
func QueueStatsMap(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromDependencyStatuses converts external tool check results into their API
// representation.
func FromDependencyStatuses(checks []deps.Status) []DependencyStatus {
	if len(checks) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(checks))
	for _, check := range checks {
		out = append(out, DependencyStatus{
			Name:        check.Name,
			Command:     check.Command,
			Description: check.Description,
			Optional:    check.Optional,
			Available:   check.Available,
			Detail:      check.Detail,
		})
	}
	return out
}

// statusLabel renders a queue status as a display stage, e.g. "downloading"
// becomes "Downloading".
func statusLabel(status queue.Status) string {
	value := strings.TrimSpace(string(status))
	if value == "" {
		return ""
	}
	words := strings.Fields(strings.ReplaceAll(value, "_", " "))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
