package project

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"

	"rcsbsync/internal/identifier"
)

// NotFoundLedger records identifiers the remote service answered 404 for,
// one per line beside the data directory they belong to. The ledger keeps
// vanished identifiers out of future surprise and lets a user audit what
// the catalog dropped. Entries are deduplicated across runs.
type NotFoundLedger struct {
	path string
	mu   sync.Mutex
}

// NewNotFoundLedger creates a ledger at path. The file appears on first
// append.
func NewNotFoundLedger(path string) *NotFoundLedger {
	return &NotFoundLedger{path: path}
}

// Path returns the ledger file location.
func (l *NotFoundLedger) Path() string {
	return l.path
}

// Load reads the recorded identifiers. A missing ledger is empty.
func (l *NotFoundLedger) Load() (identifier.Set, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *NotFoundLedger) load() (identifier.Set, error) {
	ids := identifier.NewSet()
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ids, nil
		}
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ids.Add(line)
		}
	}
	return ids, scanner.Err()
}

// Append records ids not already in the ledger.
func (l *NotFoundLedger) Append(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.load()
	if err != nil {
		return err
	}
	var fresh []string
	for _, id := range ids {
		if !existing.Contains(id) {
			existing.Add(id)
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, id := range fresh {
		if _, err := w.WriteString(id + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}
