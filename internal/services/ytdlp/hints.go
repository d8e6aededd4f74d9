package ytdlp

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrTooLarge reports that yt-dlp skipped the download because the source
// exceeds the configured size cap.
var ErrTooLarge = errors.New("media exceeds the configured size limit")

// ErrUnavailable reports that the extractor could not access the media at all
// (deleted, private, or region locked).
var ErrUnavailable = errors.New("media unavailable at source")

// ErrUnsupported reports that yt-dlp has no extractor for the URL.
var ErrUnsupported = errors.New("no extractor for this URL")

var downloadPercentPattern = regexp.MustCompile(`^\[download\]\s+([0-9.]+)%`)

// parseProgress interprets a single yt-dlp --newline output line.
func parseProgress(line string) (ProgressUpdate, bool) {
	trimmed := strings.TrimSpace(line)
	if match := downloadPercentPattern.FindStringSubmatch(trimmed); match != nil {
		percent := 0.0
		if _, err := fmt.Sscanf(match[1], "%f", &percent); err != nil {
			return ProgressUpdate{}, false
		}
		return ProgressUpdate{
			Stage:   "Downloading",
			Percent: percent,
			Message: strings.TrimSpace(strings.TrimPrefix(trimmed, "[download]")),
		}, true
	}
	if strings.HasPrefix(trimmed, "[Merger]") {
		return ProgressUpdate{Stage: "Merging formats", Percent: 100, Message: trimmed}, true
	}
	return ProgressUpdate{}, false
}

// outputMonitor watches yt-dlp output for failure signals so errors carry the
// extractor's own diagnosis instead of a bare exit status.
type outputMonitor struct {
	lastError string
	marker    error
	tooLarge  bool
}

func (m *outputMonitor) observe(line string) {
	trimmed := strings.TrimSpace(line)
	if strings.Contains(trimmed, "larger than max-filesize") {
		m.tooLarge = true
		return
	}
	if !strings.HasPrefix(trimmed, "ERROR:") {
		return
	}
	m.lastError = strings.TrimSpace(strings.TrimPrefix(trimmed, "ERROR:"))
	if m.marker == nil {
		m.marker = classifyError(m.lastError)
	}
}

// decorate enriches an execution error with the last ERROR line and any
// recognized marker.
func (m *outputMonitor) decorate(err error) error {
	if m == nil || err == nil {
		return err
	}
	if m.lastError != "" {
		err = fmt.Errorf("%w: %s", err, m.lastError)
	}
	if m.marker != nil {
		err = fmt.Errorf("%w: %w", m.marker, err)
	}
	return err
}

func classifyError(text string) error {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "unsupported url"):
		return ErrUnsupported
	case strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "private video"),
		strings.Contains(lower, "this video is not available"),
		strings.Contains(lower, "account associated with this video has been terminated"),
		strings.Contains(lower, "removed by the uploader"):
		return ErrUnavailable
	default:
		return nil
	}
}
