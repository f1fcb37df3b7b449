package rcsb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rcsbsync/internal/services"
)

const (
	// DefaultSearchBaseURL is the production RCSB search endpoint.
	DefaultSearchBaseURL = "https://search.rcsb.org/rcsbsearch/v2/query"

	// MaxPageRows is the largest pagination window the search service accepts.
	MaxPageRows = 10000

	defaultSearchTimeout = 60 * time.Second
)

// Page is one pagination window of search results.
type Page struct {
	Identifiers []string
	Total       int
}

// Searcher executes one pagination window of a stored query document.
type Searcher interface {
	Search(ctx context.Context, document []byte, start, rows int) (Page, error)
}

// SearchClient queries the RCSB search service.
type SearchClient struct {
	baseURL    string
	httpClient *http.Client
}

// SearchOption configures a SearchClient.
type SearchOption func(*SearchClient)

// WithSearchHTTPClient overrides the default HTTP client.
func WithSearchHTTPClient(httpClient *http.Client) SearchOption {
	return func(c *SearchClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithSearchTimeout overrides the default request timeout.
func WithSearchTimeout(timeout time.Duration) SearchOption {
	return func(c *SearchClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewSearchClient creates a search client for the given endpoint.
func NewSearchClient(baseURL string, opts ...SearchOption) (*SearchClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, services.Wrap(services.ErrConfiguration, "rcsb", "new_search_client", "search base URL required", nil)
	}
	client := &SearchClient{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultSearchTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

var _ Searcher = (*SearchClient)(nil)

type searchResponse struct {
	ResultSet []searchHit `json:"result_set"`
	Total     int         `json:"total_count"`
}

type searchHit struct {
	Identifier string `json:"identifier"`
}

// Search runs the query document with its pagination window forced to
// [start, start+rows) and returns the identifiers in that window. The
// service answers an empty window with 204 No Content, which decodes to
// an empty page rather than an error.
func (c *SearchClient) Search(ctx context.Context, document []byte, start, rows int) (Page, error) {
	if start < 0 {
		return Page{}, services.Wrap(services.ErrQueryInvalid, "rcsb", "search", fmt.Sprintf("negative pagination start %d", start), nil)
	}
	if rows <= 0 || rows > MaxPageRows {
		return Page{}, services.Wrap(services.ErrQueryInvalid, "rcsb", "search", fmt.Sprintf("pagination rows %d outside 1..%d", rows, MaxPageRows), nil)
	}
	paged, err := overridePagination(document, start, rows)
	if err != nil {
		return Page{}, err
	}

	endpoint := c.baseURL + "?json=" + url.QueryEscape(string(paged))
	requestStart := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Page{}, services.Wrap(services.ErrRemoteService, "rcsb", "search", "create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return Page{}, services.Wrap(services.ErrRemoteService, "rcsb", "search", fmt.Sprintf("request failed after %s", latency.Round(time.Millisecond)), err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return Page{}, nil
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return Page{}, services.Wrap(services.ErrQueryInvalid, "rcsb", "search", fmt.Sprintf("service rejected query document (status %d): %s", resp.StatusCode, errorDetail(resp.Body)), nil)
	default:
		return Page{}, services.Wrap(services.ErrRemoteService, "rcsb", "search", fmt.Sprintf("unexpected status %d after %s", resp.StatusCode, latency.Round(time.Millisecond)), nil)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Page{}, services.Wrap(services.ErrRemoteService, "rcsb", "search", "decode response", err)
	}
	page := Page{
		Identifiers: make([]string, 0, len(payload.ResultSet)),
		Total:       payload.Total,
	}
	for _, hit := range payload.ResultSet {
		page.Identifiers = append(page.Identifiers, hit.Identifier)
	}
	return page, nil
}

// overridePagination forces request_options.paginate on the document so
// resolution controls the window regardless of what the stored query
// carries.
func overridePagination(document []byte, start, rows int) ([]byte, error) {
	var query map[string]any
	if err := json.Unmarshal(document, &query); err != nil {
		return nil, services.Wrap(services.ErrQueryInvalid, "rcsb", "search", "query document is not valid JSON", err)
	}
	options, ok := query["request_options"].(map[string]any)
	if !ok {
		options = make(map[string]any)
	}
	options["paginate"] = map[string]any{"start": start, "rows": rows}
	query["request_options"] = options
	encoded, err := json.Marshal(query)
	if err != nil {
		return nil, services.Wrap(services.ErrQueryInvalid, "rcsb", "search", "re-encode query document", err)
	}
	return encoded, nil
}

func errorDetail(body io.Reader) string {
	detail, err := io.ReadAll(io.LimitReader(body, 512))
	if err != nil || len(strings.TrimSpace(string(detail))) == 0 {
		return "no detail"
	}
	return strings.TrimSpace(string(detail))
}
