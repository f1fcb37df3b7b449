package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"rcsbsync/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("RCSBSYNC_PROJECT_DIR", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.ProjectDir != filepath.Join(tempHome, "rcsb-project") {
		t.Fatalf("unexpected project dir: %q", cfg.Paths.ProjectDir)
	}
	wantLogs := filepath.Join(tempHome, ".local", "share", "rcsbsync", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.Search.BaseURL != config.Default().Search.BaseURL {
		t.Fatalf("unexpected search base url: %q", cfg.Search.BaseURL)
	}
	if cfg.Search.PageSize != 10000 {
		t.Fatalf("unexpected page size: %d", cfg.Search.PageSize)
	}
	if cfg.Download.Jobs != 2 {
		t.Fatalf("unexpected jobs default: %d", cfg.Download.Jobs)
	}
	if cfg.ChunkSize() != 40 {
		t.Fatalf("unexpected chunk size: %d", cfg.ChunkSize())
	}
	if cfg.Pause() != 2*time.Second {
		t.Fatalf("unexpected pause: %s", cfg.Pause())
	}
	if !cfg.Download.VerifyGzip {
		t.Fatal("expected gzip verification enabled by default")
	}
	if cfg.Sync.AssumeYes {
		t.Fatal("expected interactive confirmation by default")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	info, err := os.Stat(cfg.Paths.LogDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected log dir to exist: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "rcsbsync.toml")

	type payload struct {
		Paths struct {
			ProjectDir string `toml:"project_dir"`
		} `toml:"paths"`
		Search struct {
			BaseURL  string `toml:"base_url"`
			PageSize int    `toml:"page_size"`
		} `toml:"search"`
		Download struct {
			Jobs            int `toml:"jobs"`
			ChunkMultiplier int `toml:"chunk_multiplier"`
		} `toml:"download"`
	}
	custom := payload{}
	custom.Paths.ProjectDir = filepath.Join(tempDir, "project")
	custom.Search.BaseURL = "https://example.com/search"
	custom.Search.PageSize = 250
	custom.Download.Jobs = 8
	custom.Download.ChunkMultiplier = 10
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.ProjectDir != custom.Paths.ProjectDir {
		t.Fatalf("expected project dir from file, got %q", cfg.Paths.ProjectDir)
	}
	if cfg.Search.BaseURL != "https://example.com/search" {
		t.Fatalf("expected search base url override, got %q", cfg.Search.BaseURL)
	}
	if cfg.Search.PageSize != 250 {
		t.Fatalf("expected page size 250, got %d", cfg.Search.PageSize)
	}
	if cfg.ChunkSize() != 80 {
		t.Fatalf("expected chunk size 80, got %d", cfg.ChunkSize())
	}
}

func TestProjectDirEnvFallback(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	projectDir := filepath.Join(tempDir, "env-project")
	t.Setenv("RCSBSYNC_PROJECT_DIR", projectDir)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.ProjectDir != projectDir {
		t.Fatalf("expected project dir from env, got %q", cfg.Paths.ProjectDir)
	}
}

func TestNormalizationClampsPageSize(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "rcsbsync.toml")
	content := strings.Join([]string{
		"[paths]",
		"project_dir = " + tomlString(filepath.Join(tempDir, "project")),
		"[search]",
		"page_size = 99999",
	}, "\n")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Search.PageSize != 10000 {
		t.Fatalf("expected page size clamped to 10000, got %d", cfg.Search.PageSize)
	}
}

func TestValidateRejectsBadURL(t *testing.T) {
	cfg := config.Default()
	cfg.Search.BaseURL = "ftp://example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for non-http url")
	}

	cfg = config.Default()
	cfg.Download.EntryBaseURL = "not a url at all\x7f"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for malformed url")
	}
}

func TestValidateRejectsNonPositiveRate(t *testing.T) {
	cfg := config.Default()
	cfg.Download.RequestsPerSecond = -1
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "requests_per_second") {
		t.Fatalf("expected requests_per_second error, got %v", err)
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	tempDir := t.TempDir()
	samplePath := filepath.Join(tempDir, "nested", "config.toml")

	if err := config.CreateSample(samplePath); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	data, err := os.ReadFile(samplePath)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Search.BaseURL == "" {
		t.Fatal("expected sample to carry search base url")
	}
}

func tomlString(s string) string {
	data, _ := toml.Marshal(map[string]string{"v": s})
	trimmed := strings.TrimSpace(string(data))
	return strings.TrimPrefix(trimmed, "v = ")
}
