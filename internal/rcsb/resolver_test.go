package rcsb

import (
	"context"
	"errors"
	"testing"
	"time"

	"rcsbsync/internal/idcache"
	"rcsbsync/internal/logging"
	"rcsbsync/internal/services"
)

// fakeSearcher serves canned pages and records how many windows were
// requested.
type fakeSearcher struct {
	pages [][]string
	total int
	calls int
	fail  map[int]error
}

func (f *fakeSearcher) Search(ctx context.Context, document []byte, start, rows int) (Page, error) {
	index := f.calls
	f.calls++
	if err, ok := f.fail[index]; ok {
		return Page{}, err
	}
	if index >= len(f.pages) {
		return Page{Total: f.total}, nil
	}
	return Page{Identifiers: f.pages[index], Total: f.total}, nil
}

func fixedClock(day string) func() time.Time {
	return func() time.Time {
		parsed, err := time.Parse(time.DateOnly, day)
		if err != nil {
			panic(err)
		}
		return parsed
	}
}

func newTestResolver(t *testing.T, searcher Searcher, opts ...ResolverOption) (*Resolver, *idcache.Cache) {
	t.Helper()
	cache := idcache.New(t.TempDir(), logging.NewNop())
	resolver, err := NewResolver(searcher, cache, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return resolver, cache
}

func TestResolvePaginatesUntilExhausted(t *testing.T) {
	searcher := &fakeSearcher{
		pages: [][]string{{"1ABC", "2DEF"}, {"3GHI"}},
		total: 3,
	}
	resolver, _ := newTestResolver(t, searcher, WithPageSize(2), WithClock(fixedClock("2024-03-01")))

	ids, err := resolver.Resolve(context.Background(), "Homo_sapiens", []byte(`{}`))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"1ABC", "2DEF", "3GHI"}
	got := ids.Sorted()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if searcher.calls != 2 {
		t.Fatalf("expected 2 pagination calls, got %d", searcher.calls)
	}
}

func TestResolveReusesSameDayCache(t *testing.T) {
	searcher := &fakeSearcher{
		pages: [][]string{{"1ABC", "2DEF"}},
		total: 2,
	}
	resolver, _ := newTestResolver(t, searcher, WithPageSize(10), WithClock(fixedClock("2024-03-01")))

	first, err := resolver.Resolve(context.Background(), "Homo_sapiens", []byte(`{}`))
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), "Homo_sapiens", []byte(`{}`))
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if searcher.calls != 1 {
		t.Fatalf("expected a single pagination sequence, got %d calls", searcher.calls)
	}
	if first.Len() != second.Len() {
		t.Fatalf("cache returned different set: %v vs %v", first.Sorted(), second.Sorted())
	}
}

func TestResolveLaterDateStartsNewEntry(t *testing.T) {
	searcher := &fakeSearcher{
		pages: [][]string{{"1ABC"}, {"1ABC", "2DEF"}},
		total: 0,
	}
	day := "2024-03-01"
	clock := func() time.Time {
		parsed, err := time.Parse(time.DateOnly, day)
		if err != nil {
			panic(err)
		}
		return parsed
	}
	resolver, cache := newTestResolver(t, searcher, WithPageSize(10), WithClock(clock))

	if _, err := resolver.Resolve(context.Background(), "Homo_sapiens", []byte(`{}`)); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	day = "2024-03-02"
	second, err := resolver.Resolve(context.Background(), "Homo_sapiens", []byte(`{}`))
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if searcher.calls != 2 {
		t.Fatalf("expected a fresh pagination on the new date, got %d calls", searcher.calls)
	}
	if second.Len() != 2 {
		t.Fatalf("expected refreshed set of 2, got %v", second.Sorted())
	}

	entries, err := cache.Entries("Homo_sapiens")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected both dated entries to remain, got %d", len(entries))
	}
}

func TestResolveFailureLeavesCacheUntouched(t *testing.T) {
	searcher := &fakeSearcher{
		pages: [][]string{{"1ABC", "2DEF"}},
		fail:  map[int]error{1: services.Wrap(services.ErrRemoteService, "rcsb", "search", "boom", nil)},
	}
	resolver, cache := newTestResolver(t, searcher, WithPageSize(2), WithClock(fixedClock("2024-03-01")))

	_, err := resolver.Resolve(context.Background(), "Homo_sapiens", []byte(`{}`))
	if !errors.Is(err, services.ErrRemoteService) {
		t.Fatalf("expected remote service error, got %v", err)
	}

	if _, ok, err := cache.Lookup("Homo_sapiens", fixedClock("2024-03-01")()); err != nil {
		t.Fatalf("Lookup: %v", err)
	} else if ok {
		t.Fatal("partial resolution must not be cached")
	}
}

func TestResolveSkipsMalformedIdentifiers(t *testing.T) {
	searcher := &fakeSearcher{
		pages: [][]string{{"1ABC", "bogus!", "2DEF"}},
		total: 3,
	}
	resolver, _ := newTestResolver(t, searcher, WithPageSize(10), WithClock(fixedClock("2024-03-01")))

	ids, err := resolver.Resolve(context.Background(), "Homo_sapiens", []byte(`{}`))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ids.Len() != 2 || !ids.Contains("1ABC") || !ids.Contains("2DEF") {
		t.Fatalf("expected malformed identifier skipped, got %v", ids.Sorted())
	}
}

func TestResolveEmptyResultSet(t *testing.T) {
	searcher := &fakeSearcher{}
	resolver, cache := newTestResolver(t, searcher, WithPageSize(10), WithClock(fixedClock("2024-03-01")))

	ids, err := resolver.Resolve(context.Background(), "Homo_sapiens", []byte(`{}`))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ids.Len() != 0 {
		t.Fatalf("expected empty set, got %v", ids.Sorted())
	}
	// The empty outcome is still a resolution and must be cached.
	if _, ok, err := cache.Lookup("Homo_sapiens", fixedClock("2024-03-01")()); err != nil {
		t.Fatalf("Lookup: %v", err)
	} else if !ok {
		t.Fatal("empty resolution should be cached")
	}

	ids2, err := resolver.Resolve(context.Background(), "Homo_sapiens", []byte(`{}`))
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if ids2.Len() != 0 || searcher.calls != 1 {
		t.Fatalf("expected cached empty set without re-pagination, got %d ids after %d calls", ids2.Len(), searcher.calls)
	}
}

func TestResolveNormalizesCase(t *testing.T) {
	searcher := &fakeSearcher{pages: [][]string{{"1abc"}}, total: 1}
	resolver, _ := newTestResolver(t, searcher, WithPageSize(10), WithClock(fixedClock("2024-03-01")))

	ids, err := resolver.Resolve(context.Background(), "Homo_sapiens", []byte(`{}`))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ids.Contains("1ABC") {
		t.Fatalf("expected canonical 1ABC, got %v", ids.Sorted())
	}
}

func TestNewResolverValidation(t *testing.T) {
	cache := idcache.New(t.TempDir(), logging.NewNop())
	if _, err := NewResolver(nil, cache, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for nil searcher, got %v", err)
	}
	if _, err := NewResolver(&fakeSearcher{}, nil, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for nil cache, got %v", err)
	}
}
