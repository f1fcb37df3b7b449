package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rcsbsync/internal/identifier"
	"rcsbsync/internal/testsupport"
)

type cliEnv struct {
	base       string
	configPath string
	projectDir string
	logDir     string
	catalog    *testsupport.Catalog
	archive    *testsupport.Archive
}

// setupCLIEnv builds a self-contained project with fake remote services
// and a config file pointing everything into the test's temp tree.
func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)

	env := &cliEnv{
		base:       base,
		configPath: filepath.Join(base, "config.toml"),
		projectDir: filepath.Join(base, "project"),
		logDir:     filepath.Join(base, "logs"),
		catalog:    testsupport.NewCatalog(),
		archive:    testsupport.NewArchive(),
	}

	searchURL := env.catalog.Start(t)
	fileURL := env.archive.Start(t)

	content := fmt.Sprintf(`[paths]
project_dir = %q
log_dir = %q

[search]
base_url = %q
timeout_seconds = 5

[download]
entry_base_url = %q
alphafold_base_url = %q
jobs = 2
pause_seconds = 0
requests_per_second = 1000
retry_attempts = 0
timeout_seconds = 5

[logging]
format = "console"
level = "info"
`,
		env.projectDir,
		env.logDir,
		searchURL,
		fileURL+"/download",
		fileURL+"/af",
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(env.projectDir, "queries"), 0o755); err != nil {
		t.Fatalf("mkdir queries: %v", err)
	}
	return env
}

// addQuery writes a saved query document into the project.
func (e *cliEnv) addQuery(t *testing.T, name string) {
	t.Helper()
	document := `{"query":{"type":"terminal","service":"full_text","parameters":{"value":"` + name + `"}},"return_type":"entry"}`
	path := filepath.Join(e.projectDir, "queries", name+".json")
	if err := os.WriteFile(path, []byte(document), 0o644); err != nil {
		t.Fatalf("write query: %v", err)
	}
}

// seed places an already-downloaded entry in a query's data directory.
func (e *cliEnv) seed(t *testing.T, queryName, id string) {
	t.Helper()
	dir := filepath.Join(e.projectDir, "data", queryName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir data: %v", err)
	}
	name, err := identifier.Filename(id)
	if err != nil {
		t.Fatalf("filename: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), testsupport.GzipPayload("SEED "+id), 0o644); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
}

func (e *cliEnv) dataPath(queryName, id string) string {
	name, _ := identifier.Filename(id)
	return filepath.Join(e.projectDir, "data", queryName, name)
}

func runCLI(t *testing.T, env *cliEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
