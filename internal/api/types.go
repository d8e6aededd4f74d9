package api

// dateTimeFormat renders timestamps as RFC3339 with millisecond precision.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem is the transport form of a queue entry.
type QueueItem struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	URL             string        `json:"url"`
	Source          string        `json:"source"`
	MediaKind       string        `json:"mediaKind"`
	ChatID          int64         `json:"chatId,omitempty"`
	RequestedBy     string        `json:"requestedBy,omitempty"`
	Status          string        `json:"status"`
	ProcessingLane  string        `json:"processingLane"`
	Progress        QueueProgress `json:"progress"`
	ErrorMessage    string        `json:"errorMessage"`
	DurationSeconds int64         `json:"durationSeconds,omitempty"`
	SourceFile      string        `json:"sourceFile,omitempty"`
	OutputFile      string        `json:"outputFile,omitempty"`
	DeliveredFileID string        `json:"deliveredFileId,omitempty"`
	RetryCount      int64         `json:"retryCount,omitempty"`
	CreatedAt       string        `json:"createdAt,omitempty"`
	UpdatedAt       string        `json:"updatedAt,omitempty"`
}

// QueueProgress is the stage, percent, and operator message shown for an item.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus reports whether the pipeline is running plus per-status
// queue counts and stage readiness.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *QueueItem     `json:"lastItem,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth is the wire form of a stage readiness probe.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus describes one external tool the pipeline shells out to
// and whether it was found.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus is the full status payload served over HTTP and the control
// socket.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// QueueStatsResponse wraps per-status queue counts.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse lists queue items.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse carries a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}
