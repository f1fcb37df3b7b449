package inventory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"rcsbsync/internal/logging"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestScanMissingDirectoryIsEmpty(t *testing.T) {
	scanner := NewScanner(logging.NewNop())
	snapshot, err := scanner.Scan(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if snapshot.Len() != 0 {
		t.Fatalf("expected empty snapshot, got %d entries", snapshot.Len())
	}
	if snapshot.Active().Len() != 0 || snapshot.Obsolete().Len() != 0 {
		t.Fatal("empty snapshot must have no active or obsolete identifiers")
	}
}

func TestScanClassifiesStates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "1ABC.pdb.gz"), "data")
	writeFile(t, filepath.Join(dir, "2DEF.pdb.gz.obsolete"), "data")
	writeFile(t, filepath.Join(dir, "AF-P08437-F1-model_v4.pdb.gz"), "data")
	writeFile(t, filepath.Join(dir, "README.txt"), "not inventory")
	writeFile(t, filepath.Join(dir, ".1XYZ.pdb.gz.12345"), "staged temp")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	scanner := NewScanner(logging.NewNop())
	snapshot, err := scanner.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	active := snapshot.Active()
	if active.Len() != 2 || !active.Contains("1ABC") || !active.Contains("AF_AFP08437F1") {
		t.Fatalf("unexpected active set: %v", active.Sorted())
	}
	obsolete := snapshot.Obsolete()
	if obsolete.Len() != 1 || !obsolete.Contains("2DEF") {
		t.Fatalf("unexpected obsolete set: %v", obsolete.Sorted())
	}
	if snapshot.Len() != 3 {
		t.Fatalf("expected 3 identifiers, got %d", snapshot.Len())
	}
}

func TestScanDuplicateStateKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	activePath := filepath.Join(dir, "3GHI.pdb.gz")
	obsoletePath := filepath.Join(dir, "3GHI.pdb.gz.obsolete")
	writeFile(t, activePath, "old")
	writeFile(t, obsoletePath, "new")

	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(activePath, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	scanner := NewScanner(logging.NewNop())
	snapshot, err := scanner.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	entry, ok := snapshot.Entry("3GHI")
	if !ok {
		t.Fatal("3GHI missing from snapshot")
	}
	if entry.State != StateObsolete {
		t.Fatalf("expected newest (obsolete) file to win, got %s", entry.State)
	}

	// Flip the timestamps and the active file should win instead.
	older := time.Now().Add(-4 * time.Hour)
	if err := os.Chtimes(obsoletePath, older, older); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	now := time.Now()
	if err := os.Chtimes(activePath, now, now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	snapshot, err = scanner.Scan(dir)
	if err != nil {
		t.Fatalf("rescan: %v", err)
	}
	entry, _ = snapshot.Entry("3GHI")
	if entry.State != StateActive {
		t.Fatalf("expected newest (active) file to win, got %s", entry.State)
	}
}

func TestScanTracksZeroLengthFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "1ABC.pdb.gz"), "data")
	writeFile(t, filepath.Join(dir, "4JKL.pdb.gz"), "")

	scanner := NewScanner(logging.NewNop())
	snapshot, err := scanner.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	zero := snapshot.ZeroLength()
	if len(zero) != 1 || zero[0] != "4JKL" {
		t.Fatalf("unexpected zero-length list: %v", zero)
	}
	// Zero-length files still count as present.
	if !snapshot.Active().Contains("4JKL") {
		t.Fatal("zero-length file should remain active")
	}
}

func TestMarkObsoleteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "4JKL.pdb.gz"), "data")

	scanner := NewScanner(logging.NewNop())
	marked, err := scanner.MarkObsolete(dir, []string{"4JKL"})
	if err != nil {
		t.Fatalf("MarkObsolete: %v", err)
	}
	if marked != 1 {
		t.Fatalf("expected 1 marked, got %d", marked)
	}
	if _, err := os.Stat(filepath.Join(dir, "4JKL.pdb.gz.obsolete")); err != nil {
		t.Fatalf("obsolete file missing: %v", err)
	}

	marked, err = scanner.MarkObsolete(dir, []string{"4JKL"})
	if err != nil {
		t.Fatalf("second MarkObsolete: %v", err)
	}
	if marked != 0 {
		t.Fatalf("re-marking must be a no-op, got %d marked", marked)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "4JKL.pdb.gz.obsolete" {
		t.Fatalf("expected exactly one obsolete file, got %v", entries)
	}
}

func TestMarkObsoleteCollapsesDuplicateStates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "5MNO.pdb.gz"), "active copy")
	writeFile(t, filepath.Join(dir, "5MNO.pdb.gz.obsolete"), "stale copy")

	scanner := NewScanner(logging.NewNop())
	if _, err := scanner.MarkObsolete(dir, []string{"5MNO"}); err != nil {
		t.Fatalf("MarkObsolete: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "5MNO.pdb.gz.obsolete" {
		t.Fatalf("expected the rename to collapse both copies, got %v", entries)
	}
	content, err := os.ReadFile(filepath.Join(dir, "5MNO.pdb.gz.obsolete"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(content) != "active copy" {
		t.Fatalf("expected the active copy to win, got %q", content)
	}
}

func TestMarkObsoleteMissingFileIsNoOp(t *testing.T) {
	scanner := NewScanner(logging.NewNop())
	marked, err := scanner.MarkObsolete(t.TempDir(), []string{"1ABC"})
	if err != nil {
		t.Fatalf("MarkObsolete: %v", err)
	}
	if marked != 0 {
		t.Fatalf("expected 0 marked, got %d", marked)
	}
}
