package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"spool/internal/config"
)

const versionProbeTimeout = 10 * time.Second

// Snapshot records the resolved path and version of one external tool.
type Snapshot struct {
	Name      string
	Command   string
	Version   string
	Available bool
}

// CollectVersions probes the configured external binaries and reports their
// versions. The daemon logs the result once at startup so operators can see
// which tool builds a run used.
func CollectVersions(ctx context.Context, cfg *config.Config) []Snapshot {
	probes := []struct {
		name    string
		command string
		arg     string
	}{
		{"yt-dlp", cfg.Download.YtdlpBinary, "--version"},
		{"ffmpeg", cfg.Transcode.FFmpegBinary, "-version"},
		{"ffprobe", cfg.Transcode.FFprobeBinary, "-version"},
	}
	snapshots := make([]Snapshot, 0, len(probes))
	for _, probe := range probes {
		snapshots = append(snapshots, probeVersion(ctx, probe.name, probe.command, probe.arg))
	}
	return snapshots
}

func probeVersion(ctx context.Context, name, command, arg string) Snapshot {
	snap := Snapshot{Name: name, Command: strings.TrimSpace(command)}
	if snap.Command == "" {
		return snap
	}
	resolved, err := exec.LookPath(snap.Command)
	if err != nil {
		return snap
	}
	snap.Command = resolved
	snap.Available = true

	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, resolved, arg).Output()
	if err != nil {
		return snap
	}
	snap.Version = parseVersionLine(name, string(output))
	return snap
}

// parseVersionLine extracts a bare version from tool output. yt-dlp prints
// the version alone on the first line; ffmpeg and ffprobe print
// "<tool> version <v> Copyright ...".
func parseVersionLine(name, output string) string {
	line, _, _ := strings.Cut(output, "\n")
	line = strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(line, name+" version ")
	if !ok {
		return line
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
