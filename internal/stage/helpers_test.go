package stage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"spool/internal/services"
)

func TestRequireFile(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "media.mp4")
	if err := os.WriteFile(present, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	empty := filepath.Join(dir, "empty.mp4")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	cases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"present", present, false},
		{"missing path", filepath.Join(dir, "nope.mp4"), true},
		{"empty string", "", true},
		{"directory", dir, true},
		{"zero bytes", empty, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := RequireFile("transcode", "source file", tc.path)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("expected validation marker, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEnsureWorkDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "staging", "item-9")
	if err := EnsureWorkDir(dir); err != nil {
		t.Fatalf("EnsureWorkDir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory created, err=%v", err)
	}

	// Idempotent on an existing directory.
	if err := EnsureWorkDir(dir); err != nil {
		t.Fatalf("EnsureWorkDir repeat: %v", err)
	}

	if err := EnsureWorkDir(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
