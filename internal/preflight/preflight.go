package preflight

import (
	"context"
	"strings"

	"rcsbsync/internal/config"
	"rcsbsync/internal/project"
	"rcsbsync/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunLocal executes the filesystem and configuration checks that gate a
// sync run. No network traffic is generated.
func RunLocal(cfg *config.Config, layout project.Layout) []Result {
	results := []Result{
		CheckConfig(cfg),
		CheckDirectoryAccess("Project directory", layout.Root),
		CheckQueries(layout.QueriesDir()),
		CheckWritable("Data directory", layout.DataRoot(), layout.Root),
		CheckWritable("Cache directory", layout.CacheDir(), layout.Root),
	}
	return results
}

// RunAll adds remote endpoint probes to the local checks. The status
// command uses it; sync runs stay offline until confirmed.
func RunAll(ctx context.Context, cfg *config.Config, layout project.Layout) []Result {
	results := RunLocal(cfg, layout)
	if cfg != nil {
		results = append(results,
			CheckEndpoint(ctx, "Search service", cfg.Search.BaseURL),
			CheckEndpoint(ctx, "Entry archive", cfg.Download.EntryBaseURL),
		)
	}
	return results
}

// Err folds failed checks into one configuration error, nil when every
// check passed.
func Err(results []Result) error {
	var failed []string
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result.Name+": "+result.Detail)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "run", strings.Join(failed, "; "), nil)
}
