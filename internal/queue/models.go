package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusResolving   Status = "resolving"
	StatusResolved    Status = "resolved"
	StatusDownloading Status = "downloading"
	StatusDownloaded  Status = "downloaded"
	StatusTranscoding Status = "transcoding"
	StatusTranscoded  Status = "transcoded"
	StatusDelivering  Status = "delivering"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusReview      Status = "review"
)

// MediaKind selects the output the requester asked for.
type MediaKind string

const (
	MediaKindMP3 MediaKind = "mp3"
	MediaKindMP4 MediaKind = "mp4"
)

// UserStopReason is the error message set when a user explicitly stops an item.
const UserStopReason = "Stop requested by user"

// DaemonStopReason is the error message set when items are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusResolving,
	StatusResolved,
	StatusDownloading,
	StatusDownloaded,
	StatusTranscoding,
	StatusTranscoded,
	StatusDelivering,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusResolving:   {},
	StatusDownloading: {},
	StatusTranscoding: {},
	StatusDelivering:  {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions map each processing status back to the status that
// re-enters the same stage after a crash or stale heartbeat.
var stageRollbackTransitions = []statusTransition{
	{from: StatusResolving, to: StatusPending},
	{from: StatusDownloading, to: StatusResolved},
	{from: StatusTranscoding, to: StatusDownloaded},
	{from: StatusDelivering, to: StatusTranscoded},
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}

// Item represents a queue item persisted in SQLite.
type Item struct {
	ID              int64
	URL             string
	Source          string
	MediaKind       MediaKind
	ChatID          int64
	MessageID       int64
	RequestedBy     string
	Title           string
	DurationSeconds int64
	Status          Status
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	ErrorMessage    string
	WorkDir         string
	SourceFile      string
	OutputFile      string
	DeliveredFileID string
	RetryCount      int64
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParseMediaKind converts a string into a known MediaKind.
func ParseMediaKind(value string) (MediaKind, bool) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(value))) {
	case MediaKindMP3:
		return MediaKindMP3, true
	case MediaKindMP4:
		return MediaKindMP4, true
	default:
		return "", false
	}
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status ends the item's lifecycle.
func IsTerminal(status Status) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusReview:
		return true
	default:
		return false
	}
}

// DisplayTitle returns the resolved title or the URL before resolution.
func (i Item) DisplayTitle() string {
	if title := strings.TrimSpace(i.Title); title != "" {
		return title
	}
	return i.URL
}

// InitProgress resets progress fields for a new stage. If ProgressStage is
// currently empty it is set to the provided stage value; otherwise the
// existing stage is preserved to support resume scenarios.
func (i *Item) InitProgress(stage, message string) {
	if i.ProgressStage == "" {
		i.ProgressStage = stage
	}
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// SetReview parks the item for operator attention with the given reason.
func (i *Item) SetReview(reason string) {
	i.Status = StatusReview
	i.ErrorMessage = reason
	i.ProgressPercent = 0
	i.ProgressMessage = reason
	i.LastHeartbeat = nil
	i.ProgressStage = "Review"
}

// StageKey returns the normalized stage identifier used in API/CLI presentation.
func (s Status) StageKey() string {
	switch s {
	case "":
		return ""
	case StatusPending:
		return "queued"
	case StatusCompleted:
		return "delivered"
	default:
		if _, ok := statusSet[s]; ok {
			return string(s)
		}
		return ""
	}
}

// ProcessingLane partitions workflow into user-facing foreground stages and background work.
type ProcessingLane string

const (
	LaneForeground ProcessingLane = "foreground"
	LaneBackground ProcessingLane = "background"
)

// LaneForItem maps a queue item to its processing lane for observability purposes.
func LaneForItem(item *Item) ProcessingLane {
	if item == nil {
		return LaneForeground
	}
	switch item.Status {
	case StatusPending, StatusResolving:
		return LaneForeground
	case StatusResolved, StatusDownloading, StatusDownloaded, StatusTranscoding, StatusTranscoded, StatusDelivering, StatusCompleted:
		return LaneBackground
	case StatusFailed, StatusReview:
		if item.WorkDir != "" {
			return LaneBackground
		}
		return LaneForeground
	default:
		return LaneForeground
	}
}
