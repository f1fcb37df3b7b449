package testsupport

import (
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
)

// Archive is an in-memory stand-in for the download endpoint. It serves a
// gzip payload per identifier, with per-identifier 404 and 500 switches.
type Archive struct {
	mu      sync.Mutex
	missing map[string]bool
	failing map[string]bool
	calls   map[string]int
}

func NewArchive() *Archive {
	return &Archive{
		missing: make(map[string]bool),
		failing: make(map[string]bool),
		calls:   make(map[string]int),
	}
}

// SetMissing makes the archive answer 404 for id.
func (a *Archive) SetMissing(id string) {
	a.mu.Lock()
	a.missing[id] = true
	a.mu.Unlock()
}

// SetFailing makes the archive answer 500 for id.
func (a *Archive) SetFailing(id string) {
	a.mu.Lock()
	a.failing[id] = true
	a.mu.Unlock()
}

// Requests reports how many times id was requested.
func (a *Archive) Requests(id string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[id]
}

func (a *Archive) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(path.Base(r.URL.Path), ".pdb.gz")
		a.mu.Lock()
		a.calls[id]++
		missing := a.missing[id]
		failing := a.failing[id]
		a.mu.Unlock()
		switch {
		case missing:
			http.NotFound(w, r)
		case failing:
			http.Error(w, "upstream sad", http.StatusInternalServerError)
		default:
			_, _ = w.Write(GzipPayload("STRUCTURE " + id))
		}
	}
}

// Start serves the archive from an httptest server torn down with the test.
func (a *Archive) Start(t testing.TB) string {
	t.Helper()
	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)
	return server.URL
}
