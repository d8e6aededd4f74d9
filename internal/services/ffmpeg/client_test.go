package ffmpeg_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spool/internal/services/ffmpeg"
)

type stubExecutor struct {
	stdout []string
	stderr []string
	err    error
	args   [][]string

	beforeReturn func(args []string)
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
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

func TestExtractAudioArgsAndProgress(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "source.webm")
	output := filepath.Join(dir, "out.mp3")
	exec := &stubExecutor{
		stdout: []string{
			"out_time_us=30000000",
			"speed=12.4x",
			"progress=continue",
			"out_time_us=60000000",
			"speed=12.1x",
			"progress=end",
		},
		beforeReturn: func([]string) {
			if err := os.WriteFile(output, []byte("mp3"), 0o644); err != nil {
				t.Fatalf("write output: %v", err)
			}
		},
	}
	client, err := ffmpeg.New("ffmpeg", 300, "192k", ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	var updates []ffmpeg.ProgressUpdate
	err = client.ExtractAudio(context.Background(), input, output, "Test Clip", func(u ffmpeg.ProgressUpdate) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("ExtractAudio returned error: %v", err)
	}

	gotArgs := strings.Join(exec.args[0], " ")
	for _, want := range []string{
		"-nostdin",
		"-progress pipe:1",
		"-i " + input,
		"-vn",
		"-codec:a libmp3lame",
		"-b:a 192k",
		"-metadata title=Test Clip",
	} {
		if !strings.Contains(gotArgs, want) {
			t.Fatalf("expected args to contain %q, got %v", want, exec.args[0])
		}
	}
	if exec.args[0][len(exec.args[0])-1] != output {
		t.Fatalf("expected output last, got %v", exec.args[0])
	}

	if len(updates) != 2 {
		t.Fatalf("expected 2 progress updates, got %d", len(updates))
	}
	if updates[0].OutTime != 30*time.Second || updates[0].Done {
		t.Fatalf("unexpected first update: %#v", updates[0])
	}
	if updates[1].OutTime != 60*time.Second || !updates[1].Done {
		t.Fatalf("unexpected final update: %#v", updates[1])
	}
	if updates[1].Speed != "12.1x" {
		t.Fatalf("unexpected speed: %q", updates[1].Speed)
	}
}

func TestRemuxArgs(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "source.mkv")
	output := filepath.Join(dir, "out.mp4")
	exec := &stubExecutor{
		beforeReturn: func([]string) {
			if err := os.WriteFile(output, []byte("mp4"), 0o644); err != nil {
				t.Fatalf("write output: %v", err)
			}
		},
	}
	client, err := ffmpeg.New("ffmpeg", 300, "", ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if err := client.RemuxMP4(context.Background(), input, output, nil); err != nil {
		t.Fatalf("RemuxMP4 returned error: %v", err)
	}

	gotArgs := strings.Join(exec.args[0], " ")
	if !strings.Contains(gotArgs, "-c copy") {
		t.Fatalf("expected stream copy, got %v", exec.args[0])
	}
	if !strings.Contains(gotArgs, "-movflags +faststart") {
		t.Fatalf("expected faststart flag, got %v", exec.args[0])
	}
}

func TestRunSurfacesStderrTail(t *testing.T) {
	exec := &stubExecutor{
		stderr: []string{"source.webm: Invalid data found when processing input"},
		err:    errors.New("exit status 1"),
	}
	client, err := ffmpeg.New("ffmpeg", 300, "192k", ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	err = client.ExtractAudio(context.Background(), "source.webm", "out.mp3", "", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected stderr detail in error, got %v", err)
	}
}

func TestRunRejectsMissingOutput(t *testing.T) {
	client, err := ffmpeg.New("ffmpeg", 300, "192k", ffmpeg.WithExecutor(&stubExecutor{}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	err = client.ExtractAudio(context.Background(), "input.webm", filepath.Join(t.TempDir(), "never-written.mp3"), "", nil)
	if err == nil {
		t.Fatal("expected error when ffmpeg produces nothing")
	}
	if !strings.Contains(err.Error(), "produced no output") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPercentOf(t *testing.T) {
	cases := []struct {
		name      string
		processed time.Duration
		total     float64
		want      float64
	}{
		{"halfway", 30 * time.Second, 60, 50},
		{"overshoot clamps", 90 * time.Second, 60, 100},
		{"zero total", 30 * time.Second, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ffmpeg.PercentOf(tc.processed, tc.total); got != tc.want {
				t.Fatalf("PercentOf = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := ffmpeg.New("", 300, "192k"); err == nil {
		t.Fatal("expected error for empty binary")
	}
}
