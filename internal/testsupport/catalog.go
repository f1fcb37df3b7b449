package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Catalog is an in-memory stand-in for the search endpoint. Tests load an
// identifier set and point a search client at the URL returned by Start.
// A query document containing "broken" fails with a gateway error.
type Catalog struct {
	mu    sync.Mutex
	ids   []string
	calls int
}

func NewCatalog() *Catalog {
	return &Catalog{}
}

// SetIDs replaces the identifier set the catalog reports.
func (c *Catalog) SetIDs(ids ...string) {
	c.mu.Lock()
	c.ids = append([]string(nil), ids...)
	c.mu.Unlock()
}

// SearchCalls reports how many successful search requests were served.
func (c *Catalog) SearchCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *Catalog) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("json"), "broken") {
			http.Error(w, "bad upstream", http.StatusBadGateway)
			return
		}
		c.mu.Lock()
		ids := append([]string(nil), c.ids...)
		c.calls++
		c.mu.Unlock()
		if len(ids) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		hits := make([]map[string]string, 0, len(ids))
		for _, id := range ids {
			hits = append(hits, map[string]string{"identifier": id})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result_set":  hits,
			"total_count": len(ids),
		})
	}
}

// Start serves the catalog from an httptest server torn down with the test.
func (c *Catalog) Start(t testing.TB) string {
	t.Helper()
	server := httptest.NewServer(c.Handler())
	t.Cleanup(server.Close)
	return server.URL
}
