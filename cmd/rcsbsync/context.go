package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"rcsbsync/internal/config"
	"rcsbsync/internal/fetchpool"
	"rcsbsync/internal/idcache"
	"rcsbsync/internal/logging"
	"rcsbsync/internal/project"
	"rcsbsync/internal/rcsb"
)

type commandContext struct {
	configFlag   *string
	projectFlag  *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, projectFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		projectFlag:  projectFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// resolvedLogLevel prefers the --log-level flag over the configured
// level.
func (c *commandContext) resolvedLogLevel(cfg *config.Config) string {
	if c.logLevelFlag != nil {
		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			return level
		}
	}
	return cfg.Logging.Level
}

// projectLayout resolves the project root from the --project flag or
// the configured default.
func (c *commandContext) projectLayout() (project.Layout, error) {
	root := ""
	if c.projectFlag != nil {
		root = strings.TrimSpace(*c.projectFlag)
	}
	if root == "" {
		cfg, err := c.ensureConfig()
		if err != nil {
			return project.Layout{}, err
		}
		root = cfg.Paths.ProjectDir
	} else {
		expanded, err := config.ExpandPath(root)
		if err != nil {
			return project.Layout{}, err
		}
		root = expanded
	}
	return project.NewLayout(root)
}

// newRunLogger opens a per-run log file in the configured log
// directory, repoints the stable rcsbsync.log name at it, and prunes
// run logs past the retention window. Console output goes to stderr
// only when console is true, keeping structured records off the
// terminal while a progress display owns it.
func (c *commandContext) newRunLogger(cfg *config.Config, console bool) (*slog.Logger, string, error) {
	stamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("rcsbsync-%s.log", stamp))

	paths := []string{logPath}
	if console {
		paths = append(paths, "stderr")
	}
	logger, err := logging.New(logging.Options{
		Level:  c.resolvedLogLevel(cfg),
		Format: cfg.Logging.Format,
		Paths:  paths,
	})
	if err != nil {
		return nil, "", fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update rcsbsync.log link: %v\n", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)
	return logger, logPath, nil
}

// newResolver wires the search client and the project's identifier
// cache into a catalog resolver.
func (c *commandContext) newResolver(cfg *config.Config, layout project.Layout, logger *slog.Logger) (*rcsb.Resolver, error) {
	search, err := rcsb.NewSearchClient(cfg.Search.BaseURL, rcsb.WithSearchTimeout(cfg.SearchTimeout()))
	if err != nil {
		return nil, err
	}
	cache := idcache.New(layout.CacheDir(), logger)
	return rcsb.NewResolver(search, cache, logger, rcsb.WithPageSize(cfg.Search.PageSize))
}

// newFileClient wires the archive download client from cfg.
func (c *commandContext) newFileClient(cfg *config.Config, logger *slog.Logger) (*rcsb.FileClient, error) {
	return rcsb.NewFileClient(cfg.Download.EntryBaseURL, cfg.Download.AlphaFoldBaseURL,
		rcsb.WithFileHTTPClient(&http.Client{Timeout: cfg.DownloadTimeout()}),
		rcsb.WithRequestsPerSecond(cfg.Download.RequestsPerSecond),
		rcsb.WithRetries(cfg.Download.RetryAttempts, cfg.RetryBackoff()),
		rcsb.WithGzipVerification(cfg.Download.VerifyGzip),
		rcsb.WithFileLogger(logger),
	)
}

// newDownloadPool builds the worker pool. A positive jobsOverride
// replaces the configured worker count and the chunk size scales with
// it.
func (c *commandContext) newDownloadPool(cfg *config.Config, files *rcsb.FileClient, logger *slog.Logger, jobsOverride int) (*fetchpool.Pool, error) {
	jobs := cfg.Download.Jobs
	if jobsOverride > 0 {
		jobs = jobsOverride
	}
	return fetchpool.New(files,
		fetchpool.WithWorkers(jobs),
		fetchpool.WithChunkSize(jobs*cfg.Download.ChunkMultiplier),
		fetchpool.WithPause(cfg.Pause()),
		fetchpool.WithLogger(logger),
	)
}

// ensureCurrentLogPointer keeps a stable rcsbsync.log name pointing at
// the newest per-run log file. Falls back to a hard link on
// filesystems without symlink support.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "rcsbsync.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
