package fetchpool

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"rcsbsync/internal/identifier"
	"rcsbsync/internal/logging"
	"rcsbsync/internal/services"
)

const (
	defaultWorkers        = 1
	chunkItemsPerWorker   = 20
	latencyWindowCapacity = 32
)

// Fetcher downloads one identifier to a destination path.
type Fetcher interface {
	Fetch(ctx context.Context, id, dest string) (int64, error)
}

// Status classifies one identifier's outcome within a batch.
type Status int

const (
	// StatusDownloaded means the file landed under its final name.
	StatusDownloaded Status = iota
	// StatusSkipped means the file was already present locally.
	StatusSkipped
	// StatusNotFound means the remote service has no such record; the
	// identifier is permanently skipped, not retried.
	StatusNotFound
	// StatusFailed means the fetch gave up after its in-call retries.
	StatusFailed
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusDownloaded:
		return "downloaded"
	case StatusSkipped:
		return "skipped"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the per-identifier result of a batch.
type Outcome struct {
	ID     string
	Status Status
	Bytes  int64
	Err    error
}

// Progress is emitted after every completed item. Completed counts all
// terminal outcomes, including skips and failures.
type Progress struct {
	Completed int
	Total     int
	Bytes     int64
	Elapsed   time.Duration
	ETA       time.Duration
	Last      Outcome
}

// ProgressFunc observes batch progress. It is called from worker
// goroutines one at a time.
type ProgressFunc func(Progress)

// Totals aggregates a batch's outcomes.
type Totals struct {
	Downloaded int
	Skipped    int
	NotFound   int
	Failed     int
	Bytes      int64
}

// Summarize folds outcomes into totals.
func Summarize(outcomes []Outcome) Totals {
	var totals Totals
	for _, outcome := range outcomes {
		switch outcome.Status {
		case StatusDownloaded:
			totals.Downloaded++
			totals.Bytes += outcome.Bytes
		case StatusSkipped:
			totals.Skipped++
		case StatusNotFound:
			totals.NotFound++
		case StatusFailed:
			totals.Failed++
		}
	}
	return totals
}

// Pool runs download batches.
type Pool struct {
	fetcher   Fetcher
	workers   int
	chunkSize int
	pause     time.Duration
	logger    *slog.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithWorkers bounds in-flight fetches within a chunk.
func WithWorkers(workers int) Option {
	return func(p *Pool) {
		if workers > 0 {
			p.workers = workers
		}
	}
}

// WithChunkSize sets how many identifiers are dispatched between pauses.
func WithChunkSize(size int) Option {
	return func(p *Pool) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithPause sets the delay between chunks.
func WithPause(pause time.Duration) Option {
	return func(p *Pool) {
		if pause >= 0 {
			p.pause = pause
		}
	}
}

// WithLogger attaches a logger for batch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a pool over the given fetcher.
func New(fetcher Fetcher, opts ...Option) (*Pool, error) {
	if fetcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "fetchpool", "new", "fetcher required", nil)
	}
	pool := &Pool{
		fetcher: fetcher,
		workers: defaultWorkers,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(pool)
	}
	if pool.chunkSize <= 0 {
		pool.chunkSize = chunkItemsPerWorker * pool.workers
	}
	pool.logger = logging.NewComponentLogger(pool.logger, "fetchpool")
	return pool, nil
}

// FetchAll downloads every identifier into dataDir, returning one outcome
// per dispatched item. Identifiers already present under their final name
// are skipped without a request. Cancellation is honored between items:
// outcomes gathered so far are returned alongside the context error, and
// nothing half-written is ever visible under a final name. The outcome
// order may interleave across workers; reconcile by identifier.
func (p *Pool) FetchAll(ctx context.Context, ids []string, dataDir string, onProgress ProgressFunc) ([]Outcome, error) {
	total := len(ids)
	if total == 0 {
		return nil, nil
	}

	tracker := newTracker(total, p.workers, onProgress)
	outcomes := make([]Outcome, 0, total)
	collect := make(chan Outcome)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for outcome := range collect {
			outcomes = append(outcomes, outcome)
		}
	}()

	var batchErr error
	for start := 0; start < total; start += p.chunkSize {
		end := start + p.chunkSize
		if end > total {
			end = total
		}
		chunk := ids[start:end]

		g, chunkCtx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for _, id := range chunk {
			if ctx.Err() != nil {
				break
			}
			id := id
			g.Go(func() error {
				itemStart := time.Now()
				outcome := p.fetchOne(chunkCtx, id, dataDir)
				if outcome.Status == StatusFailed && chunkCtx.Err() != nil {
					// Aborted in flight; the next run retries it.
					return nil
				}
				tracker.record(outcome, time.Since(itemStart))
				collect <- outcome
				return nil
			})
		}
		// Workers never return errors; Wait is only a join point.
		_ = g.Wait()

		if ctx.Err() != nil {
			batchErr = ctx.Err()
			break
		}
		if end < total && p.pause > 0 {
			p.logger.Debug("pausing between chunks",
				logging.Duration("pause", p.pause),
				logging.Int("dispatched", end),
				logging.Int("total", total))
			if err := pauseWithContext(ctx, p.pause); err != nil {
				batchErr = err
				break
			}
		}
	}
	close(collect)
	<-done

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].ID < outcomes[j].ID })
	return outcomes, batchErr
}

func (p *Pool) fetchOne(ctx context.Context, id, dataDir string) Outcome {
	name, err := identifier.Filename(id)
	if err != nil {
		return Outcome{ID: id, Status: StatusFailed, Err: err}
	}
	dest := filepath.Join(dataDir, name)
	if _, err := os.Stat(dest); err == nil {
		return Outcome{ID: id, Status: StatusSkipped}
	}

	written, err := p.fetcher.Fetch(services.WithIdentifier(ctx, id), id, dest)
	switch {
	case err == nil:
		return Outcome{ID: id, Status: StatusDownloaded, Bytes: written}
	case errors.Is(err, services.ErrNotFound):
		return Outcome{ID: id, Status: StatusNotFound, Err: err}
	default:
		return Outcome{ID: id, Status: StatusFailed, Err: err}
	}
}

func pauseWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
