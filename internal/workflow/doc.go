// Package workflow advances queue items through the configured processing
// stages.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// items into registered stage handlers (resolver, downloader, transcoder,
// deliverer) while capturing progress and failure metadata. It also aggregates
// queue stats, calls stage health checks, and emits queue-level notifications
// when processing starts or completes.
//
// The workflow runs two independent lanes: foreground (URL resolution, which
// answers the user quickly with the resolved title) and background (download,
// transcode, delivery). Each lane polls for items matching its statuses and
// processes them independently, so a new request can be resolved while an
// earlier download is still converting.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition items; this package is the
// authoritative home for that coordination logic.
package workflow
