package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rcsbsync/internal/fetchpool"
	"rcsbsync/internal/identifier"
	"rcsbsync/internal/inventory"
	"rcsbsync/internal/logging"
	"rcsbsync/internal/project"
	"rcsbsync/internal/query"
	"rcsbsync/internal/services"
)

// Resolver produces the remote identifier set for one stored query.
type Resolver interface {
	Resolve(ctx context.Context, name string, document []byte) (identifier.Set, error)
}

// BatchFetcher downloads a batch of identifiers into a data directory.
type BatchFetcher interface {
	FetchAll(ctx context.Context, ids []string, dataDir string, onProgress fetchpool.ProgressFunc) ([]fetchpool.Outcome, error)
}

// Confirm decides whether a non-empty plan may mutate the filesystem. The
// CLI supplies a prompt or an unconditional yes; tests supply a closure.
type Confirm func(Plan) bool

// Syncer drives the per-query resolve, scan, plan, mark, fetch sequence.
// Queries are processed one at a time in the order given so confirmation
// prompts and progress output stay unambiguous.
type Syncer struct {
	layout     project.Layout
	resolver   Resolver
	scanner    *inventory.Scanner
	pool       BatchFetcher
	confirm    Confirm
	onProgress fetchpool.ProgressFunc
	sampler    *logging.ProgressSampler
	logger     *slog.Logger
	now        func() time.Time
	newRunID   func() string
}

// Option adjusts Syncer construction.
type Option func(*Syncer)

// WithConfirm installs the gate consulted before a non-empty plan mutates
// the filesystem. Without one the syncer proceeds unconditionally.
func WithConfirm(confirm Confirm) Option {
	return func(s *Syncer) { s.confirm = confirm }
}

// WithProgress forwards per-item download progress, for progress bars.
func WithProgress(fn fetchpool.ProgressFunc) Option {
	return func(s *Syncer) { s.onProgress = fn }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the wall clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRunIDs overrides run-identifier generation.
func WithRunIDs(fn func() string) Option {
	return func(s *Syncer) {
		if fn != nil {
			s.newRunID = fn
		}
	}
}

// New builds a Syncer for one project layout.
func New(layout project.Layout, resolver Resolver, pool BatchFetcher, opts ...Option) (*Syncer, error) {
	if resolver == nil {
		return nil, services.Wrap(services.ErrConfiguration, "syncer", "new", "resolver required", nil)
	}
	if pool == nil {
		return nil, services.Wrap(services.ErrConfiguration, "syncer", "new", "fetch pool required", nil)
	}
	s := &Syncer{
		layout:   layout,
		resolver: resolver,
		pool:     pool,
		sampler:  logging.NewProgressSampler(10),
		logger:   logging.NewNop(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "syncer")
	s.scanner = inventory.NewScanner(s.logger)
	return s, nil
}

// Plan resolves and scans one query without mutating anything. Status
// displays and dry runs use it.
func (s *Syncer) Plan(ctx context.Context, q query.Query) (Plan, error) {
	queryCtx := services.WithQuery(ctx, q.Name)
	remote, err := s.resolver.Resolve(queryCtx, q.Name, q.Document)
	if err != nil {
		return Plan{}, err
	}
	snapshot, err := s.scanner.Scan(s.layout.DataDir(q.Name))
	if err != nil {
		return Plan{}, err
	}
	return BuildPlan(q.Name, remote, snapshot), nil
}

// Run synchronizes every query in order. A failure inside one query is
// recorded on its result and the next query proceeds; only cancellation
// stops the loop early. The returned report always covers the queries
// that were attempted.
func (s *Syncer) Run(ctx context.Context, queries []query.Query) (*Report, error) {
	if len(queries) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "syncer", "run", "no query documents to synchronize", nil)
	}

	runID := s.newRunID()
	runCtx := services.WithRunID(ctx, runID)
	logger := logging.WithContext(runCtx, s.logger)
	report := &Report{RunID: runID, Started: s.now()}
	runStart := time.Now()

	logger.Info("sync run started", logging.Int("queries", len(queries)))
	for _, q := range queries {
		if err := runCtx.Err(); err != nil {
			logger.Info("sync run cancelled", logging.Int("completed_queries", len(report.Results)))
			report.Elapsed = time.Since(runStart)
			return report, err
		}
		report.Results = append(report.Results, s.syncQuery(runCtx, q))
	}
	report.Elapsed = time.Since(runStart)

	totals := report.Totals()
	logger.Info("sync run finished",
		logging.Int("downloaded", totals.Downloaded),
		logging.Int("failed", totals.Failed),
		logging.Int("marked_obsolete", totals.MarkedObsolete),
		logging.Int64("bytes", totals.Bytes),
		logging.Duration("elapsed", report.Elapsed))
	return report, nil
}

func (s *Syncer) syncQuery(ctx context.Context, q query.Query) QueryResult {
	queryCtx := services.WithQuery(ctx, q.Name)
	logger := logging.WithContext(queryCtx, s.logger)
	queryStart := time.Now()
	result := QueryResult{Query: q.Name}
	defer func() { result.Elapsed = time.Since(queryStart) }()

	remote, err := s.resolver.Resolve(queryCtx, q.Name, q.Document)
	if err != nil {
		logger.Error("query resolution failed", logging.Error(err))
		result.Err = err
		return result
	}
	result.Remote = remote.Len()

	dataDir := s.layout.DataDir(q.Name)
	snapshot, err := s.scanner.Scan(dataDir)
	if err != nil {
		logger.Error("inventory scan failed", logging.String("dir", dataDir), logging.Error(err))
		result.Err = err
		return result
	}
	if empty := snapshot.ZeroLength(); len(empty) > 0 {
		logger.Warn("zero-length files in inventory, counted as present",
			logging.Int("count", len(empty)))
	}

	plan := BuildPlan(q.Name, remote, snapshot)
	result.LocalActive = plan.LocalActive.Len()
	result.LocalObsolete = plan.LocalObsolete.Len()
	result.ToDownload = len(plan.ToDownload)
	result.ToMarkObsolete = len(plan.ToMarkObsolete)

	if plan.Empty() {
		logger.Info("already synchronized",
			logging.Int("remote", result.Remote),
			logging.Int("local_active", result.LocalActive))
		return result
	}

	if s.confirm != nil && !s.confirm(plan) {
		result.Declined = true
		logger.Info("plan declined, filesystem untouched",
			logging.Int("to_download", result.ToDownload),
			logging.Int("to_mark_obsolete", result.ToMarkObsolete))
		return result
	}

	if _, err := s.layout.EnsureDataDir(q.Name); err != nil {
		logger.Error("data directory unavailable", logging.Error(err))
		result.Err = err
		return result
	}

	if len(plan.ToMarkObsolete) > 0 {
		marked, err := s.scanner.MarkObsolete(dataDir, plan.ToMarkObsolete)
		result.MarkedObsolete = marked
		if err != nil {
			logger.Warn("obsolete marking incomplete", logging.Error(err))
			result.MarkErr = err
		}
	}

	if len(plan.ToDownload) > 0 {
		outcomes, batchErr := s.pool.FetchAll(queryCtx, plan.ToDownload, dataDir, s.progress(q.Name, logger))
		totals := fetchpool.Summarize(outcomes)
		result.Downloaded = totals.Downloaded
		result.Skipped = totals.Skipped
		result.NotFound = totals.NotFound
		result.Failed = totals.Failed
		result.Bytes = totals.Bytes

		s.recordNotFound(logger, q.Name, outcomes)
		for _, outcome := range outcomes {
			if outcome.Status == fetchpool.StatusFailed {
				logger.Warn("download failed",
					logging.String(logging.FieldIdentifier, outcome.ID),
					logging.Error(outcome.Err))
			}
		}
		if batchErr != nil {
			result.Err = batchErr
			return result
		}
	}

	logger.Info("query synchronized",
		logging.Int("downloaded", result.Downloaded),
		logging.Int("skipped", result.Skipped),
		logging.Int("not_found", result.NotFound),
		logging.Int("failed", result.Failed),
		logging.Int("marked_obsolete", result.MarkedObsolete),
		logging.Duration("elapsed", time.Since(queryStart)))
	return result
}

// recordNotFound appends permanently missing identifiers to the query's
// 404 ledger so later runs can report them without re-requesting.
func (s *Syncer) recordNotFound(logger *slog.Logger, queryName string, outcomes []fetchpool.Outcome) {
	var missing []string
	for _, outcome := range outcomes {
		if outcome.Status == fetchpool.StatusNotFound {
			missing = append(missing, outcome.ID)
		}
	}
	if len(missing) == 0 {
		return
	}
	ledger := project.NewNotFoundLedger(s.layout.NotFoundPath(queryName))
	if err := ledger.Append(missing...); err != nil {
		logger.Warn("not-found ledger update failed",
			logging.Int("identifiers", len(missing)),
			logging.Error(err))
		return
	}
	logger.Info("recorded permanently missing identifiers",
		logging.Int("count", len(missing)),
		logging.String("ledger", ledger.Path()))
}

func (s *Syncer) progress(queryName string, logger *slog.Logger) fetchpool.ProgressFunc {
	return func(p fetchpool.Progress) {
		if s.onProgress != nil {
			s.onProgress(p)
		}
		if p.Total == 0 {
			return
		}
		percent := float64(p.Completed) / float64(p.Total) * 100
		if s.sampler.ShouldLog(percent, queryName) {
			logger.Info("download progress",
				logging.Int("completed", p.Completed),
				logging.Int("total", p.Total),
				logging.Int64("bytes", p.Bytes),
				logging.Duration("eta", p.ETA.Round(time.Second)))
		}
	}
}
