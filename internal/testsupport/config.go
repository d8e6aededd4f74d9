package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"spool/internal/config"
)

// ConfigOption mutates the generated test config.
type ConfigOption func(*config.Config)

// NewConfig returns a config rooted in fresh temp directories so tests never
// touch real state. Options run after the defaults are applied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Telegram.Token = "0000:test-token"
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.API.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMaxFileMB overrides the delivery size cap on the test config.
func WithMaxFileMB(mb int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Download.MaxFileMB = mb
	}
}

// StubBinaries puts executable no-op scripts on PATH for the duration of the
// test. With no names it stubs everything the pipeline shells out to.
func StubBinaries(t testing.TB, names ...string) {
	t.Helper()

	if len(names) == 0 {
		names = []string{"yt-dlp", "ffmpeg", "ffprobe"}
	}
	binDir := t.TempDir()
	for _, name := range names {
		script := []byte("#!/bin/sh\nexit 0\n")
		if err := os.WriteFile(filepath.Join(binDir, name), script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}
