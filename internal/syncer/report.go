package syncer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"rcsbsync/internal/services"
)

// QueryResult aggregates one query's counts for a run.
type QueryResult struct {
	Query          string
	Remote         int
	LocalActive    int
	LocalObsolete  int
	ToDownload     int
	ToMarkObsolete int
	Downloaded     int
	Skipped        int
	NotFound       int
	Failed         int
	MarkedObsolete int
	Bytes          int64
	Elapsed        time.Duration
	Declined       bool
	Err            error
	MarkErr        error
}

// Status reduces the result to a single word for tables and the summary
// file.
func (r QueryResult) Status() string {
	switch {
	case r.Err != nil:
		return "failed"
	case r.Declined:
		return "declined"
	case r.Failed > 0 || r.MarkErr != nil:
		return "partial"
	default:
		return "ok"
	}
}

// RunTotals sums counts across a run's queries.
type RunTotals struct {
	Downloaded     int
	Skipped        int
	NotFound       int
	Failed         int
	MarkedObsolete int
	Bytes          int64
}

// Report is the outcome of one sync run.
type Report struct {
	RunID   string
	Started time.Time
	Elapsed time.Duration
	Results []QueryResult
}

// Totals aggregates the per-query counts.
func (r *Report) Totals() RunTotals {
	var t RunTotals
	for _, result := range r.Results {
		t.Downloaded += result.Downloaded
		t.Skipped += result.Skipped
		t.NotFound += result.NotFound
		t.Failed += result.Failed
		t.MarkedObsolete += result.MarkedObsolete
		t.Bytes += result.Bytes
	}
	return t
}

// QueryFailures counts queries whose sync aborted before completing.
func (r *Report) QueryFailures() int {
	n := 0
	for _, result := range r.Results {
		if result.Err != nil {
			n++
		}
	}
	return n
}

// HasItemFailures reports whether any individual download or marking
// failed while the rest of its query proceeded.
func (r *Report) HasItemFailures() bool {
	for _, result := range r.Results {
		if result.Failed > 0 || result.MarkErr != nil {
			return true
		}
	}
	return false
}

// Clean reports whether the run finished without failures of any scope.
func (r *Report) Clean() bool {
	return r.QueryFailures() == 0 && !r.HasItemFailures()
}

// Header names the table columns for Rows.
func (r *Report) Header() []string {
	return []string{"Query", "Remote", "Active", "Downloaded", "Skipped", "404", "Failed", "Obsoleted", "Bytes", "Status"}
}

// Rows renders one table row per query, humanized for terminal display.
func (r *Report) Rows() [][]string {
	rows := make([][]string, 0, len(r.Results))
	for _, result := range r.Results {
		rows = append(rows, []string{
			result.Query,
			strconv.Itoa(result.Remote),
			strconv.Itoa(result.LocalActive),
			strconv.Itoa(result.Downloaded),
			strconv.Itoa(result.Skipped),
			strconv.Itoa(result.NotFound),
			strconv.Itoa(result.Failed),
			strconv.Itoa(result.MarkedObsolete),
			humanize.Bytes(uint64(result.Bytes)),
			result.Status(),
		})
	}
	return rows
}

// TotalsRow renders the footer row matching Header.
func (r *Report) TotalsRow() []string {
	t := r.Totals()
	return []string{
		"total",
		"",
		"",
		strconv.Itoa(t.Downloaded),
		strconv.Itoa(t.Skipped),
		strconv.Itoa(t.NotFound),
		strconv.Itoa(t.Failed),
		strconv.Itoa(t.MarkedObsolete),
		humanize.Bytes(uint64(t.Bytes)),
		"",
	}
}

var summaryColumns = []string{
	"run_id", "started", "query", "remote", "local_active", "downloaded",
	"skipped", "not_found", "failed", "marked_obsolete", "bytes",
	"elapsed_seconds", "status",
}

// WriteCSV appends this run's per-query rows to the summary file,
// creating it with a header row first. The file accumulates across runs
// so the project keeps a sync history.
func (r *Report) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "syncer", "report", path, err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "syncer", "report", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "syncer", "report", path, err)
	}
	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(summaryColumns); err != nil {
			return services.Wrap(services.ErrConfiguration, "syncer", "report", path, err)
		}
	}
	started := r.Started.Format(time.RFC3339)
	for _, result := range r.Results {
		row := []string{
			r.RunID,
			started,
			result.Query,
			strconv.Itoa(result.Remote),
			strconv.Itoa(result.LocalActive),
			strconv.Itoa(result.Downloaded),
			strconv.Itoa(result.Skipped),
			strconv.Itoa(result.NotFound),
			strconv.Itoa(result.Failed),
			strconv.Itoa(result.MarkedObsolete),
			strconv.FormatInt(result.Bytes, 10),
			strconv.FormatFloat(result.Elapsed.Seconds(), 'f', 1, 64),
			result.Status(),
		}
		if err := writer.Write(row); err != nil {
			return services.Wrap(services.ErrConfiguration, "syncer", "report", path, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return services.Wrap(services.ErrConfiguration, "syncer", "report", path, err)
	}
	return nil
}
