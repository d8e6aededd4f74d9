package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"spool/internal/queue"
)

func TestAddQueuesURL(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	out, _, err := runCLI(t, []string{"add", "https://youtube.com/watch?v=abc123"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Queued item")

	items, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", items[0].Status)
	}
	if items[0].MediaKind != queue.MediaKindMP4 {
		t.Fatalf("expected default mp4 kind, got %s", items[0].MediaKind)
	}
}

func TestAddDuplicateReusesItem(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"add", "https://youtube.com/watch?v=dup"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	requireContains(t, out, "Queued item")

	out, _, err = runCLI(t, []string{"add", "https://youtube.com/watch?v=dup"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	requireContains(t, out, "already queued")
}

func TestAddRejectsDisallowedDomain(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"add", "https://example.com/video"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not in the allowed list") {
		t.Fatalf("expected domain rejection, got %v", err)
	}
}

func TestAddRejectsUnknownKind(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"add", "--kind", "flac", "https://youtube.com/watch?v=abc"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown media kind") {
		t.Fatalf("expected kind rejection, got %v", err)
	}
}

func TestAddJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"add", "--kind", "mp3", "--json", "https://youtube.com/watch?v=audio"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("add --json: %v", err)
	}

	var payload struct {
		Item    map[string]any `json:"item"`
		Created bool           `json:"created"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if !payload.Created {
		t.Fatal("expected created=true on first enqueue")
	}
	if payload.Item["mediaKind"] != "mp3" {
		t.Fatalf("expected mp3 kind, got %v", payload.Item["mediaKind"])
	}
}
