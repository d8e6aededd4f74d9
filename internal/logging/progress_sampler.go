package logging

import "strings"

// ProgressSampler thins a stream of progress callbacks down to stage
// transitions and percent bucket crossings. Telegram caps message edits per
// chat and yt-dlp reports several times a second, so stages push every update
// through a sampler before editing or logging.
type ProgressSampler struct {
	step   float64
	stage  string
	bucket int
}

// NewProgressSampler returns a sampler that reports at every step percent.
// A zero or negative step falls back to 5.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step, bucket: -1}
}

// ShouldLog reports whether this update is worth surfacing. A negative
// percent means unknown and never advances the bucket; a nil sampler reports
// every update.
func (s *ProgressSampler) ShouldLog(stage string, percent float64) bool {
	if s == nil {
		return true
	}
	emit := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.stage {
		s.stage = stage
		s.bucket = -1
		emit = true
	}
	if percent >= 0 {
		if bucket := int(min(percent, 100) / s.step); bucket > s.bucket {
			s.bucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the state so the next item starts a fresh window.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.stage = ""
	s.bucket = -1
}
