package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"spool/internal/config"
)

func writeStub(t *testing.T, path, script string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	writeStub(t, present, "#!/bin/sh\nexit 0\n")

	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestCheckBinariesUnconfiguredCommand(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Blank", Command: "   "}})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Available {
		t.Fatal("expected unconfigured command to be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %q", results[0].Detail)
	}
}

func TestForConfigCoversExternalTools(t *testing.T) {
	cfg := config.Default()
	reqs := ForConfig(&cfg)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(reqs))
	}
	names := map[string]bool{}
	for _, req := range reqs {
		names[req.Name] = true
		if req.Command == "" {
			t.Fatalf("requirement %s has no command", req.Name)
		}
	}
	for _, want := range []string{"yt-dlp", "FFmpeg", "FFprobe"} {
		if !names[want] {
			t.Fatalf("missing requirement %s", want)
		}
	}
}

func TestCollectVersions(t *testing.T) {
	binDir := t.TempDir()
	ytdlp := filepath.Join(binDir, "yt-dlp")
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	writeStub(t, ytdlp, "#!/bin/sh\necho 2025.08.11\n")
	writeStub(t, ffmpeg, "#!/bin/sh\necho 'ffmpeg version 7.1.1 Copyright (c) 2000-2025 the FFmpeg developers'\n")

	cfg := config.Default()
	cfg.Download.YtdlpBinary = ytdlp
	cfg.Transcode.FFmpegBinary = ffmpeg
	cfg.Transcode.FFprobeBinary = "clearly-not-present-binary"

	snapshots := CollectVersions(context.Background(), &cfg)
	if len(snapshots) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snapshots))
	}

	byName := map[string]Snapshot{}
	for _, snap := range snapshots {
		byName[snap.Name] = snap
	}

	if got := byName["yt-dlp"]; !got.Available || got.Version != "2025.08.11" {
		t.Fatalf("unexpected yt-dlp snapshot: %#v", got)
	}
	if got := byName["ffmpeg"]; !got.Available || got.Version != "7.1.1" {
		t.Fatalf("unexpected ffmpeg snapshot: %#v", got)
	}
	if got := byName["ffprobe"]; got.Available || got.Version != "" {
		t.Fatalf("expected missing ffprobe, got %#v", got)
	}
}

func TestParseVersionLine(t *testing.T) {
	tests := []struct {
		name   string
		tool   string
		output string
		want   string
	}{
		{"bare version", "yt-dlp", "2025.08.11\n", "2025.08.11"},
		{"ffmpeg banner", "ffmpeg", "ffmpeg version 7.1.1 Copyright (c) 2000-2025\nbuilt with gcc\n", "7.1.1"},
		{"ffprobe banner", "ffprobe", "ffprobe version n7.0-git Copyright\n", "n7.0-git"},
		{"empty output", "ffmpeg", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseVersionLine(tc.tool, tc.output); got != tc.want {
				t.Fatalf("parseVersionLine(%q) = %q, want %q", tc.output, got, tc.want)
			}
		})
	}
}
