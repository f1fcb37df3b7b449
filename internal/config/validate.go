package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/rcsbsync/config.toml"
		}
		return fmt.Errorf("paths.project_dir is required. Set RCSBSYNC_PROJECT_DIR env var or edit %s (create with 'rcsbsync config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateSearch() error {
	if err := validateHTTPURL("search.base_url", c.Search.BaseURL); err != nil {
		return err
	}
	if c.Search.PageSize <= 0 || c.Search.PageSize > maxSearchPageSize {
		return fmt.Errorf("search.page_size must be between 1 and %d", maxSearchPageSize)
	}
	if c.Search.TimeoutSeconds <= 0 {
		return errors.New("search.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if err := validateHTTPURL("download.entry_base_url", c.Download.EntryBaseURL); err != nil {
		return err
	}
	if err := validateHTTPURL("download.alphafold_base_url", c.Download.AlphaFoldBaseURL); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"download.jobs":                  c.Download.Jobs,
		"download.chunk_multiplier":      c.Download.ChunkMultiplier,
		"download.timeout_seconds":       c.Download.TimeoutSeconds,
		"download.retry_backoff_seconds": c.Download.RetryBackoffSeconds,
	}); err != nil {
		return err
	}
	if c.Download.PauseSeconds < 0 {
		return errors.New("download.pause_seconds must be >= 0")
	}
	if c.Download.RequestsPerSecond <= 0 {
		return errors.New("download.requests_per_second must be positive")
	}
	if c.Download.RetryAttempts < 0 {
		return errors.New("download.retry_attempts must be >= 0")
	}
	return nil
}

func validateHTTPURL(key, value string) error {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL", key)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
