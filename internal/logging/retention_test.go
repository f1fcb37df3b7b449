package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPruneRunLogsRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "rcsbsync-20240101T000000.000Z.log")
	current := filepath.Join(dir, "rcsbsync-20240510T120000.000Z.log")
	unrelated := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, current, unrelated} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	for _, path := range []string{old, current, unrelated} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("age %s: %v", path, err)
		}
	}

	PruneRunLogs(NewNop(), dir, 7, current)

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old run log to be pruned, stat err = %v", err)
	}
	if _, err := os.Stat(current); err != nil {
		t.Fatalf("protected log was removed: %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("non-matching file was removed: %v", err)
	}
}

func TestPruneRunLogsKeepsRecentFiles(t *testing.T) {
	dir := t.TempDir()
	recent := filepath.Join(dir, "rcsbsync-20240509T120000.000Z.log")
	if err := os.WriteFile(recent, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	PruneRunLogs(NewNop(), dir, 7)

	if _, err := os.Stat(recent); err != nil {
		t.Fatalf("recent log was removed: %v", err)
	}
}

func TestPruneRunLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "rcsbsync-20230101T000000.000Z.log")
	if err := os.WriteFile(old, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale := time.Now().AddDate(0, 0, -365)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("age: %v", err)
	}

	PruneRunLogs(NewNop(), dir, 0)

	if _, err := os.Stat(old); err != nil {
		t.Fatalf("retention disabled but file was removed: %v", err)
	}
}
