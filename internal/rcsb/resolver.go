package rcsb

import (
	"context"
	"log/slog"
	"time"

	"rcsbsync/internal/idcache"
	"rcsbsync/internal/identifier"
	"rcsbsync/internal/logging"
	"rcsbsync/internal/services"
)

// Resolver turns stored query documents into identifier sets, consulting
// the dated cache before touching the remote service.
type Resolver struct {
	search   Searcher
	cache    *idcache.Cache
	pageSize int
	now      func() time.Time
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the clock used to derive the cache date.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithPageSize overrides the pagination window requested per search call.
func WithPageSize(rows int) ResolverOption {
	return func(r *Resolver) {
		if rows > 0 && rows <= MaxPageRows {
			r.pageSize = rows
		}
	}
}

// NewResolver creates a resolver over the given search client and cache.
func NewResolver(search Searcher, cache *idcache.Cache, logger *slog.Logger, opts ...ResolverOption) (*Resolver, error) {
	if search == nil {
		return nil, services.Wrap(services.ErrConfiguration, "resolver", "new", "search client required", nil)
	}
	if cache == nil {
		return nil, services.Wrap(services.ErrConfiguration, "resolver", "new", "identifier cache required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	resolver := &Resolver{
		search:   search,
		cache:    cache,
		pageSize: MaxPageRows,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "resolver"),
	}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver, nil
}

// Resolve returns the complete identifier set for the named query. A cache
// entry for the current date short-circuits the remote service; otherwise
// the search service is paginated until the result set is exhausted and the
// set is cached before returning. A failed pagination leaves the cache
// untouched so the next run starts clean.
func (r *Resolver) Resolve(ctx context.Context, name string, document []byte) (identifier.Set, error) {
	date := r.now()
	cached, ok, err := r.cache.Lookup(name, date)
	if err != nil {
		return nil, err
	}
	if ok {
		r.logger.Info("resolved from cache",
			logging.String(logging.FieldQuery, name),
			logging.Int("identifiers", cached.Len()))
		return cached, nil
	}

	ids, err := r.paginate(ctx, name, document)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Store(name, date, ids); err != nil {
		return nil, err
	}
	r.logger.Info("resolved from remote service",
		logging.String(logging.FieldQuery, name),
		logging.Int("identifiers", ids.Len()))
	return ids, nil
}

func (r *Resolver) paginate(ctx context.Context, name string, document []byte) (identifier.Set, error) {
	ids := identifier.NewSet()
	for start := 0; ; start += r.pageSize {
		page, err := r.search.Search(ctx, document, start, r.pageSize)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Identifiers {
			id, err := identifier.Normalize(raw)
			if err != nil {
				r.logger.Warn("skipping malformed identifier",
					logging.String(logging.FieldQuery, name),
					logging.String(logging.FieldIdentifier, raw),
					logging.Error(err))
				continue
			}
			ids.Add(id)
		}
		r.logger.Debug("fetched search page",
			logging.String(logging.FieldQuery, name),
			logging.Int("start", start),
			logging.Int("rows", len(page.Identifiers)),
			logging.Int("total", page.Total))
		if len(page.Identifiers) < r.pageSize {
			return ids, nil
		}
		if page.Total > 0 && start+r.pageSize >= page.Total {
			return ids, nil
		}
	}
}
