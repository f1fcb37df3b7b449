package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunLogPattern matches the per-run log files the sync command writes
// into the log directory.
const RunLogPattern = "rcsbsync-*.log"

// PruneRunLogs removes per-run log files in dir that are older than
// keepDays. Paths listed in keep survive regardless of age, which
// protects the file the current run is writing. A keepDays of 0
// disables pruning.
func PruneRunLogs(logger *slog.Logger, dir string, keepDays int, keep ...string) {
	dir = strings.TrimSpace(dir)
	if keepDays <= 0 || dir == "" {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -keepDays)

	protected := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			if abs, err := filepath.Abs(trimmed); err == nil {
				protected[abs] = struct{}{}
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if matched, err := filepath.Match(RunLogPattern, entry.Name()); err != nil || !matched {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, skip := protected[path]; skip {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldImpact, "old run log remains on disk"),
			)
			continue
		}
		if logger != nil {
			logger.Info("run log pruned",
				String("path", path),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
}
