package project

import (
	"os"
	"path/filepath"
	"strings"

	"rcsbsync/internal/services"
)

const (
	queriesDirName  = "queries"
	dataDirName     = "data"
	cacheDirName    = "_ids_cache"
	reportsDirName  = "reports"
	manifestName    = "project.toml"
	lockFileName    = ".rcsbsync.lock"
	notFoundName    = "404.txt"
	summaryFileName = "summary.csv"
)

// Layout resolves the operational paths of one sync project. It performs
// no filesystem access beyond EnsureDataDir; existence checks belong to
// preflight.
type Layout struct {
	Root string
}

// NewLayout anchors a layout at root.
func NewLayout(root string) (Layout, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return Layout{}, services.Wrap(services.ErrConfiguration, "project", "layout", "project directory required", nil)
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return Layout{}, services.Wrap(services.ErrConfiguration, "project", "layout", trimmed, err)
	}
	return Layout{Root: abs}, nil
}

// Name returns the project's directory name.
func (l Layout) Name() string {
	return filepath.Base(l.Root)
}

// QueriesDir holds the stored query documents.
func (l Layout) QueriesDir() string {
	return filepath.Join(l.Root, queriesDirName)
}

// DataRoot holds one data directory per query.
func (l Layout) DataRoot() string {
	return filepath.Join(l.Root, dataDirName)
}

// DataDir is where one query's structure files land.
func (l Layout) DataDir(queryName string) string {
	return filepath.Join(l.DataRoot(), queryName)
}

// CacheDir holds the dated identifier cache entries.
func (l Layout) CacheDir() string {
	return filepath.Join(l.Root, cacheDirName)
}

// ReportsDir holds run summaries.
func (l Layout) ReportsDir() string {
	return filepath.Join(l.Root, reportsDirName)
}

// SummaryPath is the cumulative run summary table.
func (l Layout) SummaryPath() string {
	return filepath.Join(l.ReportsDir(), summaryFileName)
}

// ManifestPath is the TOML manifest queries are generated from.
func (l Layout) ManifestPath() string {
	return filepath.Join(l.Root, manifestName)
}

// LockPath is the cross-process run lock file.
func (l Layout) LockPath() string {
	return filepath.Join(l.Root, lockFileName)
}

// NotFoundPath is the ledger of identifiers the remote service reported
// missing, kept beside the data they would have joined.
func (l Layout) NotFoundPath(queryName string) string {
	return filepath.Join(l.DataDir(queryName), notFoundName)
}

// EnsureDataDir creates a query's data directory if needed.
func (l Layout) EnsureDataDir(queryName string) (string, error) {
	dir := l.DataDir(queryName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "project", "layout", dir, err)
	}
	return dir, nil
}
