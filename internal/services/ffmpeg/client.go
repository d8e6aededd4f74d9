package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ProgressUpdate captures ffmpeg -progress output. OutTime is how much media
// time has been processed; callers with a known duration derive a percentage.
type ProgressUpdate struct {
	OutTime time.Duration
	Speed   string
	Done    bool
}

// Converter defines the behaviour required by the transcoding handler.
type Converter interface {
	ExtractAudio(ctx context.Context, input, output, title string, progress func(ProgressUpdate)) error
	RemuxMP4(ctx context.Context, input, output string, progress func(ProgressUpdate)) error
}

// Executor abstracts command execution for testability. Progress key=value
// pairs arrive on stdout, diagnostics on stderr.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary       string
	timeout      time.Duration
	audioBitrate string
	exec         Executor
}

// New constructs an ffmpeg client. audioBitrate falls back to 192k, the rate
// the delivered MP3s are encoded at.
func New(binary string, timeoutSeconds int, audioBitrate string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	audioBitrate = strings.TrimSpace(audioBitrate)
	if audioBitrate == "" {
		audioBitrate = "192k"
	}
	client := &Client{
		binary:       binary,
		timeout:      time.Duration(timeoutSeconds) * time.Second,
		audioBitrate: audioBitrate,
		exec:         commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ExtractAudio produces an MP3 from whatever container the download stage
// fetched, dropping any video streams. A non-empty title lands in the MP3
// metadata so players show the resolved name instead of the filename.
func (c *Client) ExtractAudio(ctx context.Context, input, output, title string, progress func(ProgressUpdate)) error {
	args := append(baseArgs(input),
		"-vn",
		"-codec:a", "libmp3lame",
		"-b:a", c.audioBitrate,
	)
	if title = strings.TrimSpace(title); title != "" {
		args = append(args, "-metadata", "title="+title)
	}
	return c.run(ctx, append(args, output), "extract audio", progress)
}

// RemuxMP4 rewrites the container to MP4 without re-encoding. Streams the
// player cannot seek on benefit from the relocated moov atom.
func (c *Client) RemuxMP4(ctx context.Context, input, output string, progress func(ProgressUpdate)) error {
	args := append(baseArgs(input),
		"-c", "copy",
		"-movflags", "+faststart",
	)
	return c.run(ctx, append(args, output), "remux mp4", progress)
}

// baseArgs is the shared skeleton every conversion starts from.
func baseArgs(input string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-loglevel", "error",
		"-progress", "pipe:1",
		"-i", input,
	}
}

func (c *Client) run(ctx context.Context, args []string, operation string, progress func(ProgressUpdate)) error {
	if len(args) == 0 {
		return errors.New("ffmpeg args required")
	}
	input := ""
	for i, arg := range args {
		if arg == "-i" && i+1 < len(args) {
			input = args[i+1]
			break
		}
	}
	if strings.TrimSpace(input) == "" {
		return errors.New("ffmpeg input required")
	}
	output := args[len(args)-1]
	if strings.TrimSpace(output) == "" {
		return errors.New("ffmpeg output required")
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	tracker := &progressTracker{}
	capture := &stderrCapture{}
	err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		if update, ok := tracker.observe(line); ok && progress != nil {
			progress(update)
		}
	}, capture.observe)
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w%s", operation, err, capture.suffix())
	}

	info, statErr := os.Stat(output)
	if statErr != nil {
		return fmt.Errorf("ffmpeg %s produced no output: %w", operation, statErr)
	}
	if info.Size() == 0 {
		return fmt.Errorf("ffmpeg %s produced an empty file", operation)
	}
	return nil
}

// stderrCapture keeps the tail of ffmpeg's diagnostics so failures carry the
// actual complaint instead of a bare exit status.
type stderrCapture struct {
	lines []string
}

const stderrCaptureLimit = 10

func (s *stderrCapture) observe(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	s.lines = append(s.lines, trimmed)
	if len(s.lines) > stderrCaptureLimit {
		s.lines = s.lines[len(s.lines)-stderrCaptureLimit:]
	}
}

func (s *stderrCapture) suffix() string {
	if len(s.lines) == 0 {
		return ""
	}
	return ": " + strings.Join(s.lines, "; ")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if forward != nil {
				forward(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, onStdout)
	go scan(stderr, onStderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
