package rcsb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"rcsbsync/internal/services"
)

func gzipBytes(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("write gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

func gunzipFile(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer gz.Close()
	content, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("read gzip: %v", err)
	}
	return string(content)
}

func newTestFileClient(t *testing.T, serverURL string, opts ...FileOption) *FileClient {
	t.Helper()
	base := []FileOption{WithRetries(0, time.Millisecond)}
	client, err := NewFileClient(serverURL, serverURL, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewFileClient: %v", err)
	}
	return client
}

func TestFetchLandsEntryFile(t *testing.T) {
	payload := gzipBytes(t, "HEADER    HYDROLASE  1ABC\n")
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		if _, err := w.Write(payload); err != nil {
			t.Errorf("write payload: %v", err)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "1ABC.pdb.gz")
	client := newTestFileClient(t, server.URL)

	written, err := client.Fetch(context.Background(), "1ABC", dest)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if written != int64(len(payload)) {
		t.Fatalf("expected %d bytes written, got %d", len(payload), written)
	}
	if requestedPath != "/1ABC.pdb.gz" {
		t.Fatalf("unexpected request path %q", requestedPath)
	}
	if got := gunzipFile(t, dest); got != "HEADER    HYDROLASE  1ABC\n" {
		t.Fatalf("unexpected landed content %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the landed file, found %d entries", len(entries))
	}
}

func TestFetchNotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "9XYZ.pdb.gz")
	client := newTestFileClient(t, server.URL, WithRetries(3, time.Millisecond))

	_, err := client.Fetch(context.Background(), "9XYZ", dest)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("404 must not be retried, got %d requests", got)
	}
	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("destination must not exist after 404, stat err %v", err)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	payload := gzipBytes(t, "content\n")
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if _, err := w.Write(payload); err != nil {
			t.Errorf("write payload: %v", err)
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "1ABC.pdb.gz")
	client := newTestFileClient(t, server.URL, WithRetries(3, time.Millisecond))

	if _, err := client.Fetch(context.Background(), "1ABC", dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if got := gunzipFile(t, dest); got != "content\n" {
		t.Fatalf("unexpected landed content %q", got)
	}
}

func TestFetchHonorsRetryAfter(t *testing.T) {
	payload := gzipBytes(t, "content\n")
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if _, err := w.Write(payload); err != nil {
			t.Errorf("write payload: %v", err)
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "1ABC.pdb.gz")
	client := newTestFileClient(t, server.URL, WithRetries(1, time.Second))

	start := time.Now()
	if _, err := client.Fetch(context.Background(), "1ABC", dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Retry-After: 0 should override the backoff, waited %s", elapsed)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "1ABC.pdb.gz")
	client := newTestFileClient(t, server.URL, WithRetries(2, time.Millisecond))

	_, err := client.Fetch(context.Background(), "1ABC", dest)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("expected attempt count in error, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("ReadDir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("no files should remain after failure, found %d", len(entries))
	}
}

func TestFetchFatalOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "1ABC.pdb.gz")
	client := newTestFileClient(t, server.URL, WithRetries(3, time.Millisecond))

	_, err := client.Fetch(context.Background(), "1ABC", dest)
	if !errors.Is(err, services.ErrFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("4xx must not be retried, got %d requests", got)
	}
}

func TestFetchVerifiesGzipPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.WriteString(w, "this is not gzip"); err != nil {
			t.Errorf("write payload: %v", err)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "1ABC.pdb.gz")
	client := newTestFileClient(t, server.URL)

	_, err := client.Fetch(context.Background(), "1ABC", dest)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error for corrupt payload, got %v", err)
	}
	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("ReadDir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("corrupt payload must not land, found %d entries", len(entries))
	}
}

func TestFetchSkipsVerificationWhenDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.WriteString(w, "this is not gzip"); err != nil {
			t.Errorf("write payload: %v", err)
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "1ABC.pdb.gz")
	client := newTestFileClient(t, server.URL, WithGzipVerification(false))

	if _, err := client.Fetch(context.Background(), "1ABC", dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
}

func TestFetchComputedModelCompressedLocally(t *testing.T) {
	const model = "ATOM      1  N   MET A   1\n"
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		if _, err := io.WriteString(w, model); err != nil {
			t.Errorf("write payload: %v", err)
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "AF-P08437-F1-model_v4.pdb.gz")
	client := newTestFileClient(t, server.URL)

	if _, err := client.Fetch(context.Background(), "AF_AFP08437F1", dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if requestedPath != "/AF-P08437-F1-model_v4.pdb" {
		t.Fatalf("unexpected request path %q", requestedPath)
	}
	if got := gunzipFile(t, dest); got != model {
		t.Fatalf("unexpected landed content %q", got)
	}
}

func TestFetchCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "1ABC.pdb.gz")
	client := newTestFileClient(t, server.URL, WithRetries(5, time.Second))

	_, err := client.Fetch(ctx, "1ABC", dest)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestFetchRejectsMalformedIdentifier(t *testing.T) {
	client := newTestFileClient(t, "https://example.invalid")
	_, err := client.Fetch(context.Background(), "nope", filepath.Join(t.TempDir(), "nope.pdb.gz"))
	if !errors.Is(err, services.ErrFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}

func TestSourceURL(t *testing.T) {
	client, err := NewFileClient(DefaultEntryBaseURL, DefaultAlphaFoldBaseURL)
	if err != nil {
		t.Fatalf("NewFileClient: %v", err)
	}
	cases := []struct {
		id   string
		want string
	}{
		{id: "1ABC", want: "https://files.rcsb.org/download/1ABC.pdb.gz"},
		{id: "AF_AFP08437F1", want: "https://alphafold.ebi.ac.uk/files/AF-P08437-F1-model_v4.pdb"},
	}
	for _, tc := range cases {
		got, err := client.SourceURL(tc.id)
		if err != nil {
			t.Fatalf("SourceURL(%s): %v", tc.id, err)
		}
		if got != tc.want {
			t.Fatalf("SourceURL(%s) = %q, want %q", tc.id, got, tc.want)
		}
	}
}
