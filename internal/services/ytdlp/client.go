package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Metadata describes a media URL as reported by yt-dlp without downloading it.
type Metadata struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Uploader       string  `json:"uploader"`
	WebpageURL     string  `json:"webpage_url"`
	Ext            string  `json:"ext"`
	Duration       float64 `json:"duration"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

// EstimatedBytes returns the best available size estimate, preferring the
// exact figure when the extractor reports one.
func (m Metadata) EstimatedBytes() int64 {
	if m.Filesize > 0 {
		return m.Filesize
	}
	if m.FilesizeApprox > 0 {
		return m.FilesizeApprox
	}
	return 0
}

// ProgressUpdate captures yt-dlp progress output.
type ProgressUpdate struct {
	Stage   string
	Percent float64
	Message string
}

// Prober resolves URL metadata for the resolving stage.
type Prober interface {
	Probe(ctx context.Context, url string) (Metadata, error)
}

// Downloader fetches media for the downloading stage.
type Downloader interface {
	Download(ctx context.Context, url, destDir, format string, progress func(ProgressUpdate)) (string, error)
}

// Executor abstracts command execution for testability. Stdout and stderr are
// delivered line by line to separate callbacks because yt-dlp prints its JSON
// payload on stdout and diagnostics on stderr.
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

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary          string
	probeTimeout    time.Duration
	downloadTimeout time.Duration
	maxFileBytes    int64
	exec            Executor
}

// New constructs a yt-dlp client. maxFileBytes <= 0 disables the size cap.
func New(binary string, probeTimeoutSeconds, downloadTimeoutSeconds int, maxFileBytes int64, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:          binary,
		probeTimeout:    time.Duration(probeTimeoutSeconds) * time.Second,
		downloadTimeout: time.Duration(downloadTimeoutSeconds) * time.Second,
		maxFileBytes:    maxFileBytes,
		exec:            commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Probe asks yt-dlp for metadata without downloading media.
func (c *Client) Probe(ctx context.Context, url string) (Metadata, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Metadata{}, errors.New("url required")
	}

	probeCtx := ctx
	if c.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
	}

	args := []string{"--dump-single-json", "--no-playlist", "--no-warnings", "--", url}

	var payload strings.Builder
	monitor := &outputMonitor{}
	err := c.exec.Run(probeCtx, c.binary, args, func(line string) {
		payload.WriteString(line)
		payload.WriteString("\n")
	}, monitor.observe)
	if err != nil {
		return Metadata{}, monitor.decorate(fmt.Errorf("yt-dlp probe: %w", err))
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(payload.String()), &meta); err != nil {
		return Metadata{}, fmt.Errorf("yt-dlp probe parse: %w", err)
	}
	return meta, nil
}

// Download executes yt-dlp and returns the resulting file path. format selects
// the delivery container and must be "mp3" or "mp4".
func (c *Client) Download(ctx context.Context, url, destDir, format string, progress func(ProgressUpdate)) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", errors.New("url required")
	}
	if destDir == "" {
		return "", errors.New("destination directory required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	args, err := c.downloadArgs(url, destDir, format)
	if err != nil {
		return "", err
	}

	dlCtx := ctx
	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		dlCtx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	monitor := &outputMonitor{}
	onLine := func(line string) {
		monitor.observe(line)
		if progress == nil {
			return
		}
		if update, ok := parseProgress(line); ok {
			progress(update)
		}
	}
	if err := c.exec.Run(dlCtx, c.binary, args, onLine, onLine); err != nil {
		return "", monitor.decorate(fmt.Errorf("yt-dlp download: %w", err))
	}
	if monitor.tooLarge {
		return "", ErrTooLarge
	}

	path, err := findOutput(destDir)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", errors.New("yt-dlp produced no output file; source may be unavailable")
	}
	return path, nil
}

// downloadArgs builds the fetch command. The source is downloaded in its
// native container; conversion to the delivery format happens later with
// ffmpeg. Split video formats still need the muxed mp4 merge here because two
// streams cannot land in one file otherwise.
func (c *Client) downloadArgs(url, destDir, format string) ([]string, error) {
	args := []string{
		"--newline",
		"--no-warnings",
		"--no-playlist",
		"--restrict-filenames",
		"--output", filepath.Join(destDir, "%(title).70s.%(ext)s"),
	}
	if c.maxFileBytes > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(c.maxFileBytes, 10))
	}
	switch format {
	case "mp3":
		args = append(args, "--format", "bestaudio/best")
	case "mp4":
		args = append(args,
			"--format", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]",
			"--merge-output-format", "mp4",
		)
	default:
		return nil, fmt.Errorf("unknown download format %q", format)
	}
	return append(args, "--", url), nil
}

type outputEntry struct {
	path    string
	size    int64
	modTime time.Time
}

// findOutput locates the downloaded media file. The source keeps its native
// extension, so discovery skips only partial download artifacts; when several
// candidates exist the largest wins, ties go to the newest.
func findOutput(dir string) (string, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("inspect download outputs: %w", err)
	}
	var candidates []outputEntry
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		name := strings.ToLower(item.Name())
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") || strings.HasSuffix(name, ".temp") || strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, outputEntry{
			path:    filepath.Join(dir, item.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	if len(candidates) == 0 {
		return "", nil
	}
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].size > candidates[best].size {
			best = i
			continue
		}
		if candidates[i].size == candidates[best].size && candidates[i].modTime.After(candidates[best].modTime) {
			best = i
		}
	}
	return candidates[best].path, nil
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
		// --dump-single-json emits the whole metadata object on one line.
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
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
