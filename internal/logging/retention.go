package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the provided targets that are older
// than retentionDays. A retentionDays value of 0 disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keep := protectedPaths(targets)
	for _, target := range targets {
		pruneDir(logger, target, keep, cutoff)
	}
}

// protectedPaths collects the absolute form of every excluded path so the
// active log file never gets pruned out from under the daemon.
func protectedPaths(targets []RetentionTarget) map[string]struct{} {
	keep := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			trimmed := strings.TrimSpace(path)
			if trimmed == "" {
				continue
			}
			if abs, err := filepath.Abs(trimmed); err == nil {
				keep[abs] = struct{}{}
			}
		}
	}
	return keep
}

func pruneDir(logger *slog.Logger, target RetentionTarget, keep map[string]struct{}, cutoff time.Time) {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	pattern := strings.TrimSpace(target.Pattern)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pattern != "" {
			matched, err := filepath.Match(pattern, entry.Name())
			if err != nil || !matched {
				continue
			}
		}
		path := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, skip := keep[path]; skip {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		removeLog(logger, path)
	}
}

func removeLog(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil {
		WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
			String("path", path),
			Error(err),
			String(FieldErrorHint, "check file permissions and log_dir ownership"),
			String(FieldImpact, "old log file remains on disk"),
		)
		return
	}
	if logger != nil {
		logger.Info("log pruned",
			String("path", path),
			String(FieldEventType, "log_pruned"),
		)
	}
}
