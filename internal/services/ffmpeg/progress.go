package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

// progressTracker accumulates -progress pipe:1 key=value pairs. ffmpeg emits
// blocks of keys terminated by a progress= line; an update is produced per
// block so callers see at most one callback per reporting interval.
type progressTracker struct {
	pending ProgressUpdate
}

func (t *progressTracker) observe(line string) (ProgressUpdate, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return ProgressUpdate{}, false
	}
	value = strings.TrimSpace(value)
	switch key {
	case "out_time_us":
		if micros, err := strconv.ParseInt(value, 10, 64); err == nil && micros >= 0 {
			t.pending.OutTime = time.Duration(micros) * time.Microsecond
		}
		return ProgressUpdate{}, false
	case "speed":
		t.pending.Speed = value
		return ProgressUpdate{}, false
	case "progress":
		update := t.pending
		update.Done = value == "end"
		t.pending = ProgressUpdate{OutTime: update.OutTime, Speed: update.Speed}
		return update, true
	default:
		return ProgressUpdate{}, false
	}
}

// PercentOf converts processed media time into a percentage of the total
// duration, clamped to [0, 100]. Zero totals yield zero.
func PercentOf(processed time.Duration, totalSeconds float64) float64 {
	if totalSeconds <= 0 {
		return 0
	}
	percent := processed.Seconds() / totalSeconds * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
