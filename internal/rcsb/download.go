package rcsb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"

	"rcsbsync/internal/identifier"
	"rcsbsync/internal/logging"
	"rcsbsync/internal/services"
)

const (
	// DefaultEntryBaseURL serves gzip-compressed experimental structures.
	DefaultEntryBaseURL = "https://files.rcsb.org/download"

	// DefaultAlphaFoldBaseURL serves uncompressed computed models.
	DefaultAlphaFoldBaseURL = "https://alphafold.ebi.ac.uk/files"

	defaultDownloadTimeout = 120 * time.Second
	defaultRetryBackoff    = 2 * time.Second
	defaultRetries         = 3
	maxRetryDelay          = 60 * time.Second
)

// Fetcher downloads one structure file to a destination path, returning
// the payload size written.
type Fetcher interface {
	Fetch(ctx context.Context, id, dest string) (int64, error)
}

// FileClient downloads structure files from the entry and AlphaFold
// services, pacing requests through a shared rate limiter and landing
// payloads atomically.
type FileClient struct {
	entryBaseURL     string
	alphaFoldBaseURL string
	httpClient       *http.Client
	limiter          *rate.Limiter
	retries          int
	backoff          time.Duration
	verifyGzip       bool
	logger           *slog.Logger
}

// FileOption configures a FileClient.
type FileOption func(*FileClient)

// WithFileHTTPClient overrides the default HTTP client.
func WithFileHTTPClient(httpClient *http.Client) FileOption {
	return func(c *FileClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRequestsPerSecond paces requests at the given sustained rate.
func WithRequestsPerSecond(rps float64) FileOption {
	return func(c *FileClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRateLimiter shares an externally owned limiter across clients.
func WithRateLimiter(limiter *rate.Limiter) FileOption {
	return func(c *FileClient) {
		c.limiter = limiter
	}
}

// WithRetries sets how many times a transient failure is re-attempted
// after the first try.
func WithRetries(retries int, backoff time.Duration) FileOption {
	return func(c *FileClient) {
		if retries >= 0 {
			c.retries = retries
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithGzipVerification toggles decompression of landed entry payloads
// before they are promoted to their final name.
func WithGzipVerification(verify bool) FileOption {
	return func(c *FileClient) {
		c.verifyGzip = verify
	}
}

// WithFileLogger attaches a logger for retry diagnostics.
func WithFileLogger(logger *slog.Logger) FileOption {
	return func(c *FileClient) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "fetcher")
		}
	}
}

// NewFileClient creates a download client for the given endpoints.
func NewFileClient(entryBaseURL, alphaFoldBaseURL string, opts ...FileOption) (*FileClient, error) {
	entry := strings.TrimRight(strings.TrimSpace(entryBaseURL), "/")
	if entry == "" {
		return nil, services.Wrap(services.ErrConfiguration, "rcsb", "new_file_client", "entry base URL required", nil)
	}
	alphaFold := strings.TrimRight(strings.TrimSpace(alphaFoldBaseURL), "/")
	if alphaFold == "" {
		alphaFold = DefaultAlphaFoldBaseURL
	}
	client := &FileClient{
		entryBaseURL:     entry,
		alphaFoldBaseURL: alphaFold,
		httpClient:       &http.Client{Timeout: defaultDownloadTimeout},
		retries:          defaultRetries,
		backoff:          defaultRetryBackoff,
		verifyGzip:       true,
		logger:           logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

var _ Fetcher = (*FileClient)(nil)

// SourceURL returns the remote location a canonical identifier downloads
// from.
func (c *FileClient) SourceURL(id string) (string, error) {
	canonical, err := identifier.Normalize(id)
	if err != nil {
		return "", err
	}
	if identifier.IsComputed(canonical) {
		name, err := identifier.AlphaFoldFile(canonical)
		if err != nil {
			return "", err
		}
		return c.alphaFoldBaseURL + "/" + name, nil
	}
	return c.entryBaseURL + "/" + canonical + identifier.Ext, nil
}

// Fetch downloads one structure to dest. Entry payloads arrive compressed
// and are written as-is; computed models arrive as plain text and are
// compressed locally so every landed file shares the same format. The
// payload is staged in a temp file beside dest and promoted with a rename
// only once complete, so a crash or failure never leaves a partial file
// under the final name. Transient failures are retried with exponential
// backoff, honouring Retry-After when the service sends one; a 404 is
// permanent and returned immediately.
func (c *FileClient) Fetch(ctx context.Context, id, dest string) (int64, error) {
	canonical, err := identifier.Normalize(id)
	if err != nil {
		return 0, services.Wrap(services.ErrFatal, "rcsb", "fetch", "identifier not fetchable", err)
	}
	sourceURL, err := c.SourceURL(canonical)
	if err != nil {
		return 0, services.Wrap(services.ErrFatal, "rcsb", "fetch", "identifier not fetchable", err)
	}
	compress := identifier.IsComputed(canonical)

	attempts := c.retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return 0, err
			}
		}
		written, err := c.fetchOnce(ctx, canonical, sourceURL, dest, compress)
		if err == nil {
			return written, nil
		}
		if errors.Is(err, services.ErrNotFound) {
			return 0, err
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		delay, retriable := c.retryDelay(err, attempt)
		if !retriable {
			return 0, c.permanent(canonical, err)
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		c.logger.Warn("retrying download",
			logging.String(logging.FieldIdentifier, canonical),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err))
		if err := sleepWithContext(ctx, delay); err != nil {
			return 0, err
		}
	}
	return 0, services.Wrap(services.ErrTransient, "rcsb", "fetch",
		fmt.Sprintf("%s failed after %d attempts", canonical, attempts), lastErr)
}

// retryDelay classifies err and, when it is retriable, picks the wait
// before the next attempt.
func (c *FileClient) retryDelay(err error, attempt int) (time.Duration, bool) {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if !retryableStatus(statusErr.StatusCode) {
			return 0, false
		}
		if statusErr.HasRetryAfter {
			delay := statusErr.RetryAfter
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			return delay, true
		}
		return backoffDelay(c.backoff, attempt, maxRetryDelay), true
	}
	if errors.Is(err, services.ErrTransient) || isRetriable(err) {
		return backoffDelay(c.backoff, attempt, maxRetryDelay), true
	}
	return 0, false
}

// permanent classifies a non-retriable failure for the caller.
func (c *FileClient) permanent(id string, err error) error {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return services.Wrap(services.ErrFatal, "rcsb", "fetch",
			fmt.Sprintf("%s rejected with status %d", id, statusErr.StatusCode), nil)
	}
	if errors.Is(err, services.ErrFatal) || errors.Is(err, services.ErrTransient) {
		return err
	}
	return services.Wrap(services.ErrFatal, "rcsb", "fetch", id, err)
}

func (c *FileClient) fetchOnce(ctx context.Context, id, sourceURL, dest string, compress bool) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrFatal, "rcsb", "fetch", "create request", err)
	}
	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Returned raw so transport timeouts stay classifiable.
		return 0, err
	}
	defer resp.Body.Close()
	latency := time.Since(requestStart)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return 0, services.Wrap(services.ErrNotFound, "rcsb", "fetch",
			fmt.Sprintf("%s not available after %s", id, latency.Round(time.Millisecond)), nil)
	default:
		retryAfter, ok := parseRetryAfter(resp.Header.Get("Retry-After"))
		return 0, &httpStatusError{StatusCode: resp.StatusCode, RetryAfter: retryAfter, HasRetryAfter: ok}
	}
	return c.land(resp.Body, dest, compress)
}

// land stages the payload in a temp file beside dest and promotes it with
// a rename once it is complete and, for entry payloads, verified.
func (c *FileClient) land(body io.Reader, dest string, compress bool) (int64, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, services.Wrap(services.ErrFatal, "rcsb", "fetch", "create destination directory", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return 0, services.Wrap(services.ErrFatal, "rcsb", "fetch", "create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	written, copyErr := writePayload(tmp, body, compress)
	closeErr := tmp.Close()
	if copyErr != nil {
		// Raw so a dropped connection mid-body stays retriable.
		return 0, copyErr
	}
	if closeErr != nil {
		return 0, services.Wrap(services.ErrFatal, "rcsb", "fetch", "close temp file", closeErr)
	}
	if c.verifyGzip && !compress {
		if err := verifyGzipFile(tmpPath); err != nil {
			return 0, err
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, services.Wrap(services.ErrFatal, "rcsb", "fetch", "promote temp file", err)
	}
	return written, nil
}

// writePayload copies the body to dst, compressing it when the source
// serves plain text.
func writePayload(dst io.Writer, src io.Reader, compress bool) (int64, error) {
	if !compress {
		return io.Copy(dst, src)
	}
	gz := gzip.NewWriter(dst)
	written, err := io.Copy(gz, src)
	if err != nil {
		gz.Close()
		return written, err
	}
	return written, gz.Close()
}

// verifyGzipFile decompresses the staged payload end to end so truncated
// or corrupt downloads are caught before the rename.
func verifyGzipFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrFatal, "rcsb", "fetch", "reopen temp file", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return services.Wrap(services.ErrTransient, "rcsb", "fetch", "payload is not valid gzip", err)
	}
	defer gz.Close()
	if _, err := io.Copy(io.Discard, gz); err != nil {
		return services.Wrap(services.ErrTransient, "rcsb", "fetch", "payload fails gzip verification", err)
	}
	return nil
}
