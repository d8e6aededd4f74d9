package api

import (
	"testing"
	"time"

	"spool/internal/deps"
	"spool/internal/queue"
	"spool/internal/stage"
	"spool/internal/workflow"
)

func TestFromQueueItemMapsFields(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	item := &queue.Item{
		ID:              12,
		URL:             "https://example.com/watch?v=abc",
		Source:          "telegram",
		MediaKind:       queue.MediaKindMP3,
		ChatID:          4242,
		RequestedBy:     "tester",
		Title:           "Example Clip",
		DurationSeconds: 95,
		Status:          queue.StatusDownloading,
		ProgressStage:   "Downloading",
		ProgressPercent: 40,
		ProgressMessage: "Downloading 40%",
		SourceFile:      "/staging/item-12/source.m4a",
		RetryCount:      1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	dto := FromQueueItem(item)
	if dto.ID != 12 || dto.Title != "Example Clip" || dto.URL != item.URL {
		t.Fatalf("unexpected identity fields: %+v", dto)
	}
	if dto.MediaKind != "mp3" {
		t.Fatalf("unexpected media kind: %q", dto.MediaKind)
	}
	if dto.Status != string(queue.StatusDownloading) {
		t.Fatalf("unexpected status: %q", dto.Status)
	}
	if dto.ProcessingLane != string(queue.LaneBackground) {
		t.Fatalf("unexpected lane: %q", dto.ProcessingLane)
	}
	if dto.Progress.Stage != "Downloading" || dto.Progress.Percent != 40 {
		t.Fatalf("unexpected progress: %+v", dto.Progress)
	}
	if dto.CreatedAt != "2025-03-14T09:26:53.000Z" {
		t.Fatalf("unexpected created timestamp: %q", dto.CreatedAt)
	}
}

func TestFromQueueItemNormalizesCompletedProgress(t *testing.T) {
	item := &queue.Item{
		Status:          queue.StatusCompleted,
		ProgressStage:   "Delivering",
		ProgressPercent: 42,
	}

	dto := FromQueueItem(item)
	if dto.Progress.Stage != "Completed" {
		t.Fatalf("expected completed stage, got %q", dto.Progress.Stage)
	}
	if dto.Progress.Percent != 100 {
		t.Fatalf("expected percent 100, got %v", dto.Progress.Percent)
	}
}

func TestFromQueueItemFillsEmptyProgressStageFromStatus(t *testing.T) {
	tests := []struct {
		name   string
		status queue.Status
		want   string
	}{
		{name: "pending", status: queue.StatusPending, want: "Pending"},
		{name: "resolving", status: queue.StatusResolving, want: "Resolving"},
		{name: "transcoding", status: queue.StatusTranscoding, want: "Transcoding"},
		{name: "review", status: queue.StatusReview, want: "Review"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &queue.Item{
				Status:        tt.status,
				ProgressStage: "",
			}
			dto := FromQueueItem(item)
			if dto.Progress.Stage != tt.want {
				t.Fatalf("expected stage %q, got %q", tt.want, dto.Progress.Stage)
			}
		})
	}
}

func TestFromQueueItemNil(t *testing.T) {
	dto := FromQueueItem(nil)
	if dto.ID != 0 || dto.Status != "" {
		t.Fatalf("expected zero DTO, got %+v", dto)
	}
}

func TestFromStatusSummarySortsStageHealth(t *testing.T) {
	summary := workflow.StatusSummary{
		Running:   true,
		LastError: "resolver stalled",
		QueueStats: map[queue.Status]int{
			queue.StatusPending: 2,
			queue.StatusFailed:  1,
		},
		StageHealth: map[string]stage.Health{
			"transcoder": stage.Healthy("transcoder"),
			"deliverer":  stage.Unhealthy("deliverer", "bot token missing"),
			"resolver":   stage.Healthy("resolver"),
		},
	}

	wf := FromStatusSummary(summary)
	if !wf.Running || wf.LastError != "resolver stalled" {
		t.Fatalf("unexpected summary header: %+v", wf)
	}
	if wf.QueueStats[string(queue.StatusPending)] != 2 {
		t.Fatalf("unexpected queue stats: %+v", wf.QueueStats)
	}
	if len(wf.StageHealth) != 3 {
		t.Fatalf("expected 3 health entries, got %d", len(wf.StageHealth))
	}
	if wf.StageHealth[0].Name != "deliverer" || wf.StageHealth[1].Name != "resolver" || wf.StageHealth[2].Name != "transcoder" {
		t.Fatalf("expected sorted health names, got %+v", wf.StageHealth)
	}
	if wf.StageHealth[0].Ready || wf.StageHealth[0].Detail != "bot token missing" {
		t.Fatalf("unexpected unhealthy entry: %+v", wf.StageHealth[0])
	}
}

func TestQueueStatsMap(t *testing.T) {
	stats := QueueStatsMap(map[queue.Status]int{
		queue.StatusPending:   3,
		queue.StatusCompleted: 7,
	})
	if stats["pending"] != 3 || stats["completed"] != 7 {
		t.Fatalf("unexpected stats map: %+v", stats)
	}
}

func TestFromDependencyStatuses(t *testing.T) {
	if got := FromDependencyStatuses(nil); got != nil {
		t.Fatalf("expected nil for empty checks, got %+v", got)
	}
	out := FromDependencyStatuses([]deps.Status{
		{Name: "yt-dlp", Command: "yt-dlp", Available: true},
		{Name: "FFmpeg", Command: "ffmpeg", Available: false, Detail: "not found"},
	})
	if len(out) != 2 || out[0].Name != "yt-dlp" || !out[0].Available {
		t.Fatalf("unexpected first entry: %+v", out)
	}
	if out[1].Available || out[1].Detail != "not found" {
		t.Fatalf("unexpected second entry: %+v", out)
	}
}
