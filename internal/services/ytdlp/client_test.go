package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spool/internal/services/ytdlp"
)

type stubExecutor struct {
	stdout []string
	stderr []string
	err    error
	calls  int
	args   [][]string

	// beforeReturn runs after streaming output, before the error is returned.
	beforeReturn func(args []string)
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	s.calls++
	cloned := append([]string(nil), args...)
	s.args = append(s.args, cloned)
	for _, line := range s.stdout {
		if onStdout != nil {
			onStdout(line)
		}
	}
	for _, line := range s.stderr {
		if onStderr != nil {
			onStderr(line)
		}
	}
	if s.beforeReturn != nil {
		s.beforeReturn(cloned)
	}
	return s.err
}

func TestProbeParsesMetadata(t *testing.T) {
	exec := &stubExecutor{stdout: []string{
		`{"id":"abc123","title":"Sample Clip","uploader":"sample-channel","duration":93.4,"filesize_approx":4200000,"webpage_url":"https://youtu.be/abc123","ext":"mp4"}`,
	}}
	client, err := ytdlp.New("yt-dlp", 30, 600, 0, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	meta, err := client.Probe(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if meta.Title != "Sample Clip" || meta.Uploader != "sample-channel" {
		t.Fatalf("unexpected metadata: %#v", meta)
	}
	if meta.Duration != 93.4 {
		t.Fatalf("unexpected duration: %v", meta.Duration)
	}
	if meta.EstimatedBytes() != 4200000 {
		t.Fatalf("unexpected size estimate: %d", meta.EstimatedBytes())
	}

	if len(exec.args) != 1 {
		t.Fatal("expected executor invocation recorded")
	}
	gotArgs := strings.Join(exec.args[0], " ")
	if !strings.Contains(gotArgs, "--dump-single-json") || !strings.Contains(gotArgs, "--no-playlist") {
		t.Fatalf("unexpected probe args: %v", exec.args[0])
	}
}

func TestProbeSurfacesExtractorError(t *testing.T) {
	exec := &stubExecutor{
		stderr: []string{"ERROR: [youtube] abc123: Video unavailable"},
		err:    errors.New("exit status 1"),
	}
	client, err := ytdlp.New("yt-dlp", 30, 600, 0, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.Probe(context.Background(), "https://youtu.be/abc123")
	if err == nil {
		t.Fatal("expected probe error")
	}
	if !errors.Is(err, ytdlp.ErrUnavailable) {
		t.Fatalf("expected unavailable marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "Video unavailable") {
		t.Fatalf("expected extractor detail in error, got %v", err)
	}
}

func TestDownloadAudioArgsAndOutput(t *testing.T) {
	destDir := filepath.Join(t.TempDir(), "item-1")
	exec := &stubExecutor{
		stdout: []string{
			"[download]   0.0% of 3.54MiB at Unknown speed ETA Unknown",
			"[download]  51.4% of 3.54MiB at 2.41MiB/s ETA 00:00",
			"[download] 100% of 3.54MiB in 00:01",
		},
		beforeReturn: func([]string) {
			if err := os.WriteFile(filepath.Join(destDir, "Sample_Clip.webm"), []byte("audio"), 0o644); err != nil {
				t.Fatalf("write output: %v", err)
			}
		},
	}
	client, err := ytdlp.New("yt-dlp", 30, 600, 50*1024*1024, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	var updates []ytdlp.ProgressUpdate
	path, err := client.Download(context.Background(), "https://youtu.be/abc123", destDir, "mp3", func(u ytdlp.ProgressUpdate) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if filepath.Base(path) != "Sample_Clip.webm" {
		t.Fatalf("unexpected output path: %q", path)
	}

	gotArgs := strings.Join(exec.args[0], " ")
	for _, want := range []string{
		"--no-playlist",
		"--restrict-filenames",
		"--max-filesize 52428800",
		"--format bestaudio/best",
	} {
		if !strings.Contains(gotArgs, want) {
			t.Fatalf("expected args to contain %q, got %v", want, exec.args[0])
		}
	}
	if strings.Contains(gotArgs, "--extract-audio") {
		t.Fatalf("expected no postprocessing flags, got %v", exec.args[0])
	}

	if len(updates) != 3 {
		t.Fatalf("expected 3 progress updates, got %d", len(updates))
	}
	if updates[1].Percent != 51.4 || updates[1].Stage != "Downloading" {
		t.Fatalf("unexpected mid-download update: %#v", updates[1])
	}
	if updates[2].Percent != 100 {
		t.Fatalf("unexpected final update: %#v", updates[2])
	}
}

func TestDownloadVideoArgs(t *testing.T) {
	destDir := t.TempDir()
	exec := &stubExecutor{
		beforeReturn: func([]string) {
			if err := os.WriteFile(filepath.Join(destDir, "clip.mp4"), []byte("video"), 0o644); err != nil {
				t.Fatalf("write output: %v", err)
			}
		},
	}
	client, err := ytdlp.New("yt-dlp", 30, 600, 0, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	path, err := client.Download(context.Background(), "https://youtu.be/abc123", destDir, "mp4", nil)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if filepath.Base(path) != "clip.mp4" {
		t.Fatalf("unexpected output path: %q", path)
	}

	gotArgs := strings.Join(exec.args[0], " ")
	if !strings.Contains(gotArgs, "--format bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]") {
		t.Fatalf("unexpected video format args: %v", exec.args[0])
	}
	if !strings.Contains(gotArgs, "--merge-output-format mp4") {
		t.Fatalf("expected merge format flag, got %v", exec.args[0])
	}
	if strings.Contains(gotArgs, "--max-filesize") {
		t.Fatalf("expected no size cap when disabled, got %v", exec.args[0])
	}
}

func TestDownloadReportsSizeCapAbort(t *testing.T) {
	exec := &stubExecutor{stdout: []string{
		"[download] File is larger than max-filesize (61234567 bytes > 52428800 bytes)",
	}}
	client, err := ytdlp.New("yt-dlp", 30, 600, 50*1024*1024, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.Download(context.Background(), "https://youtu.be/abc123", t.TempDir(), "mp4", nil)
	if !errors.Is(err, ytdlp.ErrTooLarge) {
		t.Fatalf("expected size cap error, got %v", err)
	}
}

func TestDownloadErrorsWhenNoOutputProduced(t *testing.T) {
	exec := &stubExecutor{}
	client, err := ytdlp.New("yt-dlp", 30, 600, 0, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.Download(context.Background(), "https://youtu.be/abc123", t.TempDir(), "mp3", nil)
	if err == nil {
		t.Fatal("expected error when yt-dlp produces no output")
	}
	if !strings.Contains(err.Error(), "no output file") {
		t.Fatalf("expected 'no output file' error, got: %v", err)
	}
}

func TestDownloadIgnoresPartialArtifacts(t *testing.T) {
	destDir := t.TempDir()
	exec := &stubExecutor{
		beforeReturn: func([]string) {
			for name, payload := range map[string]string{
				"clip.mp4.part": "partial",
				"clip.mp4":      "full-download-payload",
			} {
				if err := os.WriteFile(filepath.Join(destDir, name), []byte(payload), 0o644); err != nil {
					t.Fatalf("write %s: %v", name, err)
				}
			}
		},
	}
	client, err := ytdlp.New("yt-dlp", 30, 600, 0, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	path, err := client.Download(context.Background(), "https://youtu.be/abc123", destDir, "mp4", nil)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if filepath.Base(path) != "clip.mp4" {
		t.Fatalf("expected the completed file, got %q", path)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := ytdlp.New("  ", 30, 600, 0); err == nil {
		t.Fatal("expected error for empty binary")
	}
}
