package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSearch()
	c.normalizeDownload()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	projectDir := strings.TrimSpace(c.Paths.ProjectDir)
	if projectDir == "" {
		projectDir = defaultProjectDir
	}
	// A config file value wins over the environment; the environment wins
	// over the built-in default.
	if projectDir == defaultProjectDir {
		if value, ok := os.LookupEnv("RCSBSYNC_PROJECT_DIR"); ok && strings.TrimSpace(value) != "" {
			projectDir = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Paths.ProjectDir, err = expandPath(projectDir); err != nil {
		return fmt.Errorf("paths.project_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSearch() {
	c.Search.BaseURL = strings.TrimRight(strings.TrimSpace(c.Search.BaseURL), "/")
	if c.Search.BaseURL == "" {
		c.Search.BaseURL = defaultSearchBaseURL
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = defaultSearchPageSize
	}
	if c.Search.PageSize > maxSearchPageSize {
		c.Search.PageSize = maxSearchPageSize
	}
	if c.Search.TimeoutSeconds <= 0 {
		c.Search.TimeoutSeconds = defaultSearchTimeoutSeconds
	}
}

func (c *Config) normalizeDownload() {
	c.Download.EntryBaseURL = strings.TrimRight(strings.TrimSpace(c.Download.EntryBaseURL), "/")
	if c.Download.EntryBaseURL == "" {
		c.Download.EntryBaseURL = defaultEntryBaseURL
	}
	c.Download.AlphaFoldBaseURL = strings.TrimRight(strings.TrimSpace(c.Download.AlphaFoldBaseURL), "/")
	if c.Download.AlphaFoldBaseURL == "" {
		c.Download.AlphaFoldBaseURL = defaultAlphaFoldBaseURL
	}
	if c.Download.Jobs <= 0 {
		c.Download.Jobs = defaultDownloadJobs
	}
	if c.Download.ChunkMultiplier <= 0 {
		c.Download.ChunkMultiplier = defaultChunkMultiplier
	}
	if c.Download.PauseSeconds < 0 {
		c.Download.PauseSeconds = defaultPauseSeconds
	}
	if c.Download.RequestsPerSecond <= 0 {
		c.Download.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.Download.RetryAttempts < 0 {
		c.Download.RetryAttempts = defaultRetryAttempts
	}
	if c.Download.RetryBackoffSeconds <= 0 {
		c.Download.RetryBackoffSeconds = defaultRetryBackoffSeconds
	}
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}
