package main

import (
	"encoding/json"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"version"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "spool dev")
}

func TestVersionJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"version", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}

	var payload struct {
		Version string `json:"version"`
		Go      string `json:"go"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if payload.Version != "dev" {
		t.Fatalf("expected dev version, got %q", payload.Version)
	}
	if payload.Go == "" {
		t.Fatal("expected go runtime version")
	}
}

func TestVersionTools(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"version", "--tools"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("version --tools: %v", err)
	}
	requireContains(t, out, "yt-dlp")
	requireContains(t, out, "ffmpeg")
}
