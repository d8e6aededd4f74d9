// Package api defines wire-format types and converters shared by the HTTP
// endpoints, the Unix socket RPC service, and the CLI. It translates internal
// queue models into transport-friendly DTOs so consumers render queue and
// daemon state without coupling to internal types.
//
// # Key Types
//
// QueueItem: transport representation of a queue entry with progress, media
// kind, requester, and delivery artefacts.
//
// WorkflowStatus: daemon running state, queue stats, stage health, and last item.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// # Converters
//
// FromQueueItem: queue.Item -> QueueItem with progress stage defaults derived
// from the item status.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// FromDependencyStatuses: deps.Status checks -> DependencyStatus list.
//
// StageHealthSlice: deterministic ordering of stage health map.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (queue.Status, queue.ProcessingLane, queue.MediaKind) are exposed as
// lowercase strings. Timestamps use RFC3339 with milliseconds.
package api
