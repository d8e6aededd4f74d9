package main

import (
	"encoding/json"
	"testing"

	"spool/internal/queue"
)

func TestStatusCommandSections(t *testing.T) {
	env := setupCLITestEnv(t)

	seedItem(t, env.store, "https://youtube.com/watch?v=alpha", queue.StatusPending)
	seedItem(t, env.store, "https://youtube.com/watch?v=beta", queue.StatusFailed)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "System Status")
	requireContains(t, out, "Stopped (start with `spool daemon start`)")
	requireContains(t, out, "Connectivity")
	requireContains(t, out, "Notifications")
	requireContains(t, out, "Disabled")
	requireContains(t, out, "Dependencies")
	requireContains(t, out, "Paths")
	requireContains(t, out, "(read/write ok)")
	requireContains(t, out, "Queue Status")
	requireContains(t, out, "Pending")
	requireContains(t, out, "Failed")
}

func TestStatusCommandDependencies(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "yt-dlp")
	requireContains(t, out, "ffmpeg")
	requireContains(t, out, "Queue is empty")
}

func TestStatusCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	seedItem(t, env.store, "https://youtube.com/watch?v=alpha", queue.StatusPending)

	out, _, err := runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}

	var payload struct {
		Running    bool           `json:"running"`
		QueueStats map[string]int `json:"queue_stats"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if payload.Running {
		t.Fatal("expected running=false")
	}
	if payload.QueueStats["pending"] != 1 {
		t.Fatalf("expected 1 pending in queue_stats, got %v", payload.QueueStats)
	}
}
