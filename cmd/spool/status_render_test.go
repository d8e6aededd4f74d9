package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"spool/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	deps := []ipc.DependencyStatus{
		{Name: "yt-dlp", Available: false},
		{Name: "ffmpeg", Available: true, Command: "ffmpeg"},
		{Name: "ffprobe", Available: false, Optional: true, Detail: "not configured"},
	}
	lines := dependencyLines(deps, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[ERROR] not available") {
		t.Fatalf("expected error detail in first line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] Ready (command: ffmpeg)") {
		t.Fatalf("expected ready detail in second line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] not configured") {
		t.Fatalf("expected warn detail in third line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "Missing dependencies:") {
		t.Fatalf("expected missing dependencies summary, got %q", lines[3])
	}
	if !strings.Contains(lines[3], "yt-dlp, ffprobe") {
		t.Fatalf("expected missing names in summary, got %q", lines[3])
	}
}

func TestStageHealthLines(t *testing.T) {
	health := []ipc.StageHealth{
		{Name: "resolver", Ready: true},
		{Name: "downloader", Ready: false, Detail: "yt-dlp missing"},
	}
	lines := stageHealthLines(health, false)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] Ready") {
		t.Fatalf("expected ready line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN] yt-dlp missing") {
		t.Fatalf("expected warn line, got %q", lines[1])
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Queue Status", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Queue Status ==" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != strings.Repeat("-", len(lines[0])) {
		t.Fatalf("unexpected rule: %q", lines[1])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
