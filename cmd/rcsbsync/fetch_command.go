package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"rcsbsync/internal/config"
	"rcsbsync/internal/fetchpool"
	"rcsbsync/internal/identifier"
	"rcsbsync/internal/logging"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var queryName string
	var destDir string
	var jobs int

	cmd := &cobra.Command{
		Use:   "fetch <identifier>...",
		Short: "Download specific entries by identifier",
		Long: `Fetch downloads the named entries without consulting any query. Files
land in the query's data directory when --query is given, in --dir
otherwise, and in the current directory when neither is set. Entries
already present are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(args))
			for _, arg := range args {
				id, err := identifier.Normalize(arg)
				if err != nil {
					return fmt.Errorf("invalid identifier %q: %w", arg, err)
				}
				ids = append(ids, id)
			}

			dest := ""
			switch {
			case queryName != "":
				layout, err := ctx.projectLayout()
				if err != nil {
					return err
				}
				if dest, err = layout.EnsureDataDir(queryName); err != nil {
					return err
				}
			case destDir != "":
				expanded, err := config.ExpandPath(destDir)
				if err != nil {
					return err
				}
				if err := os.MkdirAll(expanded, 0o755); err != nil {
					return fmt.Errorf("create destination %q: %w", expanded, err)
				}
				dest = expanded
			default:
				if dest, err = filepath.Abs("."); err != nil {
					return err
				}
			}

			logger, err := logging.New(logging.Options{
				Level:  ctx.resolvedLogLevel(cfg),
				Format: cfg.Logging.Format,
				Paths:  []string{"stderr"},
			})
			if err != nil {
				return err
			}
			files, err := ctx.newFileClient(cfg, logger)
			if err != nil {
				return err
			}
			pool, err := ctx.newDownloadPool(cfg, files, logger, jobs)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var onProgress fetchpool.ProgressFunc
			stderr := cmd.ErrOrStderr()
			if isTerminal(stderr) {
				renderer := newProgressRenderer(stderr)
				onProgress = renderer.Update
			}

			outcomes, err := pool.FetchAll(runCtx, ids, dest, onProgress)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			headers := []string{"ID", "Status", "Size"}
			rows := make([][]string, 0, len(outcomes))
			for _, outcome := range outcomes {
				size := ""
				if outcome.Status == fetchpool.StatusDownloaded {
					size = humanize.Bytes(uint64(outcome.Bytes))
				}
				rows = append(rows, []string{outcome.ID, outcome.Status.String(), size})
			}
			fmt.Fprintln(stdout, renderTable(headers, rows, nil, []columnAlignment{alignLeft, alignLeft, alignRight}))
			for _, outcome := range outcomes {
				if outcome.Err != nil && outcome.Status == fetchpool.StatusFailed {
					fmt.Fprintf(stdout, "%s%s: %v\n", statusIndent, outcome.ID, outcome.Err)
				}
			}

			totals := fetchpool.Summarize(outcomes)
			if totals.Failed > 0 || totals.NotFound > 0 {
				return exitStatus(2, fmt.Sprintf("%d of %d entries were not retrieved", totals.Failed+totals.NotFound, len(ids)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&queryName, "query", "q", "", "Store files in this query's data directory")
	cmd.Flags().StringVar(&destDir, "dir", "", "Store files in this directory")
	cmd.Flags().IntVar(&jobs, "jobs", 0, "Override the configured download worker count")
	return cmd
}
