package idcache

import (
	"bufio"
	"errors"
	"fmt"
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

// KeyFunc maps a query name and calendar date to the cache file path for that
// day's Remote ID Set.
type KeyFunc func(queryName string, date time.Time) string

// Entry describes one persisted Remote ID Set.
type Entry struct {
	Query string
	Date  time.Time
	Path  string
}

// Cache provides dated, query-scoped persistence for Remote ID Sets.
type Cache struct {
	dir    string
	keyFn  KeyFunc
	logger *slog.Logger
}

// Option customizes cache construction.
type Option func(*Cache)

// WithKeyFunc overrides the default (query, date) to path mapping.
func WithKeyFunc(fn KeyFunc) Option {
	return func(c *Cache) {
		if fn != nil {
			c.keyFn = fn
		}
	}
}

// New creates a cache rooted at dir. The directory is created lazily on first
// Store call.
func New(dir string, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "idcache"),
	}
	c.keyFn = c.defaultKey
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the cache file path for (query, date).
func (c *Cache) Path(query string, date time.Time) string {
	return c.keyFn(query, date)
}

// Lookup returns the cached Remote ID Set for (query, date) if an entry
// exists. A missing entry is not an error.
func (c *Cache) Lookup(query string, date time.Time) (identifier.Set, bool, error) {
	path := c.keyFn(query, date)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open cache entry: %w", err)
	}
	defer file.Close()

	ids := make(identifier.Set)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ids.Add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("read cache entry %s: %w", path, err)
	}

	c.logger.Debug("cache hit",
		logging.String(logging.FieldQuery, query),
		logging.String("date", date.Format(time.DateOnly)),
		logging.Int("identifier_count", ids.Len()))
	return ids, true, nil
}

// Store persists ids as the entry for (query, date). The write is atomic so an
// interrupted run never leaves a truncated entry behind.
func (c *Cache) Store(query string, date time.Time, ids identifier.Set) error {
	if strings.TrimSpace(query) == "" {
		return errors.New("query name cannot be empty")
	}
	path := c.keyFn(query, date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, id := range ids.Sorted() {
		if _, err := fmt.Fprintln(w, id); err != nil {
			tmp.Close()
			return fmt.Errorf("write cache entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("persist cache entry: %w", err)
	}

	c.logger.Debug("cached remote id set",
		logging.String(logging.FieldQuery, query),
		logging.String("date", date.Format(time.DateOnly)),
		logging.Int("identifier_count", ids.Len()))
	return nil
}

// Entries returns the persisted snapshots for query sorted by date ascending.
func (c *Cache) Entries(query string) ([]Entry, error) {
	pattern := filepath.Join(c.dir, query+"_*.txt")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}

	entries := make([]Entry, 0, len(matches))
	for _, path := range matches {
		stem := strings.TrimSuffix(filepath.Base(path), ".txt")
		raw := strings.TrimPrefix(stem, query+"_")
		date, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Query: query, Date: date, Path: path})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})
	return entries, nil
}

func (c *Cache) defaultKey(query string, date time.Time) string {
	name := fmt.Sprintf("%s_%s.txt", query, date.Format(time.DateOnly))
	return filepath.Join(c.dir, name)
}
