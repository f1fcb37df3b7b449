package inventory

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"rcsbsync/internal/identifier"
	"rcsbsync/internal/logging"
)

// State is the on-disk lifecycle state of one identifier.
type State int

const (
	// StateActive means the file carries no obsolete marker.
	StateActive State = iota
	// StateObsolete means the file carries the obsolete marker suffix.
	StateObsolete
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateObsolete:
		return "obsolete"
	default:
		return "unknown"
	}
}

// Entry is one identifier's presence in a data directory.
type Entry struct {
	ID      string
	Path    string
	State   State
	Size    int64
	ModTime time.Time
}

// Snapshot is the derived, per-run view of one data directory. It is never
// persisted; every run rebuilds it from the filesystem.
type Snapshot struct {
	Dir     string
	entries map[string]Entry
}

// Active returns the identifiers whose canonical file carries no obsolete
// marker.
func (s *Snapshot) Active() identifier.Set {
	out := identifier.NewSet()
	for id, entry := range s.entries {
		if entry.State == StateActive {
			out.Add(id)
		}
	}
	return out
}

// Obsolete returns the identifiers whose canonical file is marked obsolete.
func (s *Snapshot) Obsolete() identifier.Set {
	out := identifier.NewSet()
	for id, entry := range s.entries {
		if entry.State == StateObsolete {
			out.Add(id)
		}
	}
	return out
}

// ZeroLength returns the identifiers whose active file is empty, sorted.
// Empty files usually mean an interrupted transfer made by other tooling;
// they still count as present.
func (s *Snapshot) ZeroLength() []string {
	var out []string
	for id, entry := range s.entries {
		if entry.State == StateActive && entry.Size == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Entry returns the canonical entry for id.
func (s *Snapshot) Entry(id string) (Entry, bool) {
	entry, ok := s.entries[id]
	return entry, ok
}

// Len returns how many identifiers the snapshot holds, in either state.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Scanner builds Snapshots and applies obsolete markers.
type Scanner struct {
	logger *slog.Logger
}

// NewScanner creates a scanner. A nil logger scans silently.
func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{logger: logging.NewComponentLogger(logger, "inventory")}
}

// Scan reads dir and classifies every recognizable structure file. A
// missing directory is an empty inventory, not an error: the first run of
// a new query starts from nothing. When the same identifier is present
// both active and obsolete the most recently modified file decides the
// canonical state; the condition is logged as a warning and neither file
// is touched.
func (s *Scanner) Scan(dir string) (*Snapshot, error) {
	snapshot := &Snapshot{Dir: dir, entries: make(map[string]Entry)}
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("data directory missing, treating as empty", logging.String("dir", dir))
			return snapshot, nil
		}
		return nil, err
	}

	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}
		name := dirEntry.Name()
		if strings.HasPrefix(name, ".") {
			// Staged temp files land hidden; they are not inventory.
			continue
		}
		id, obsolete, err := identifier.FromFilename(name)
		if err != nil {
			s.logger.Debug("ignoring unrecognized file",
				logging.String("dir", dir),
				logging.String("file", name))
			continue
		}
		info, err := dirEntry.Info()
		if err != nil {
			s.logger.Warn("file vanished during scan",
				logging.String("dir", dir),
				logging.String("file", name),
				logging.Error(err))
			continue
		}
		entry := Entry{
			ID:      id,
			Path:    filepath.Join(dir, name),
			State:   StateActive,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if obsolete {
			entry.State = StateObsolete
		}
		existing, seen := snapshot.entries[id]
		if !seen {
			snapshot.entries[id] = entry
			continue
		}
		canonical := newestEntry(existing, entry)
		s.logger.Warn("identifier present in both states, keeping most recently modified",
			logging.String(logging.FieldIdentifier, id),
			logging.String("kept", canonical.State.String()),
			logging.String("dir", dir))
		snapshot.entries[id] = canonical
	}
	return snapshot, nil
}

func newestEntry(a, b Entry) Entry {
	if b.ModTime.After(a.ModTime) {
		return b
	}
	return a
}

// MarkObsolete renames each identifier's active file to carry the obsolete
// marker. Marking is idempotent: an already-marked identifier or one with
// no file on disk is a no-op. When both states exist the rename collapses
// them to a single obsolete file. Per-item rename failures do not stop the
// rest; they are joined into the returned error.
func (s *Scanner) MarkObsolete(dir string, ids []string) (int, error) {
	marked := 0
	var errs []error
	for _, id := range ids {
		name, err := identifier.Filename(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		active := filepath.Join(dir, name)
		obsolete := active + identifier.ObsoleteSuffix
		if _, err := os.Stat(active); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.logger.Debug("nothing to mark", logging.String(logging.FieldIdentifier, id))
				continue
			}
			errs = append(errs, err)
			continue
		}
		if err := os.Rename(active, obsolete); err != nil {
			s.logger.Warn("obsolete marking failed",
				logging.String(logging.FieldIdentifier, id),
				logging.Error(err))
			errs = append(errs, err)
			continue
		}
		marked++
		s.logger.Info("marked obsolete",
			logging.String(logging.FieldIdentifier, id),
			logging.String("file", obsolete))
	}
	return marked, errors.Join(errs...)
}
