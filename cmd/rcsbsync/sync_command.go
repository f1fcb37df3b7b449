package main

import (
	"bufio"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"rcsbsync/internal/logging"
	"rcsbsync/internal/preflight"
	"rcsbsync/internal/project"
	"rcsbsync/internal/query"
	"rcsbsync/internal/syncer"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool
	var dryRun bool
	var jobs int

	cmd := &cobra.Command{
		Use:   "sync [query...]",
		Short: "Download missing entries and retire vanished ones for each saved query",
		Long: `Sync resolves every saved query against the remote catalog, compares the
result with the local data directory, and converges the two: entries the
catalog lists but the directory lacks are downloaded, entries the catalog
no longer lists are renamed aside as obsolete. Without arguments every
query in the project runs; naming queries restricts the run to them.

An interrupted run needs no special recovery. Running sync again
recomputes the remaining work from what is already on disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			layout, err := ctx.projectLayout()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			stderr := cmd.ErrOrStderr()

			if results := preflight.RunLocal(cfg, layout); preflight.Err(results) != nil {
				colorize := shouldColorize(stdout)
				for _, result := range results {
					fmt.Fprintln(stdout, renderCheckLine(result, colorize))
				}
				return preflight.Err(results)
			}

			all, err := query.Load(layout.QueriesDir())
			if err != nil {
				return err
			}
			queries, err := selectQueries(all, args)
			if err != nil {
				return err
			}

			interactive := isTerminal(cmd.InOrStdin()) && isTerminal(stderr)
			logger, logPath, err := ctx.newRunLogger(cfg, !interactive)
			if err != nil {
				return err
			}

			lock := project.NewLock(layout, logger)
			if err := lock.Acquire(); err != nil {
				return err
			}
			defer lock.Release()

			resolver, err := ctx.newResolver(cfg, layout, logger)
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

			opts := []syncer.Option{syncer.WithLogger(logger)}
			switch {
			case dryRun:
				opts = append(opts, syncer.WithConfirm(func(p syncer.Plan) bool {
					renderPlan(stdout, p)
					return false
				}))
			case assumeYes || cfg.Sync.AssumeYes || !interactive:
				// Batch runs and explicit approval apply every plan
				// without a prompt.
			default:
				stdin := bufio.NewReader(cmd.InOrStdin())
				opts = append(opts, syncer.WithConfirm(func(p syncer.Plan) bool {
					renderPlan(stdout, p)
					return promptApproval(stdin, stdout)
				}))
			}
			if interactive && !dryRun {
				renderer := newProgressRenderer(stderr)
				opts = append(opts, syncer.WithProgress(renderer.Update))
			}

			s, err := syncer.New(layout, resolver, pool, opts...)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := s.Run(runCtx, queries)
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Fprintln(stdout, "Dry run: no files were downloaded or marked.")
				return nil
			}

			if err := report.WriteCSV(layout.SummaryPath()); err != nil {
				logger.Warn("summary append failed",
					logging.Error(err),
					logging.String("path", layout.SummaryPath()))
				fmt.Fprintf(stderr, "warn: unable to append run summary: %v\n", err)
			}

			reportAligns := []columnAlignment{
				alignLeft, alignRight, alignRight, alignRight, alignRight,
				alignRight, alignRight, alignRight, alignRight, alignLeft,
			}
			fmt.Fprintln(stdout, renderTable(report.Header(), report.Rows(), report.TotalsRow(), reportAligns))
			totals := report.Totals()
			fmt.Fprintf(stdout, "Downloaded %d files (%s) in %s; log at %s\n",
				totals.Downloaded,
				humanize.Bytes(uint64(totals.Bytes)),
				report.Elapsed.Round(time.Second),
				logPath)

			if !report.Clean() {
				return exitStatus(2, "synchronization completed with failures; see the report above")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Apply every plan without prompting")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show each query's plan without downloading or marking files")
	cmd.Flags().IntVar(&jobs, "jobs", 0, "Override the configured download worker count")
	return cmd
}

// renderPlan prints one query's pending work in prompt-sized form.
func renderPlan(w io.Writer, p syncer.Plan) {
	fmt.Fprintf(w, "Query %s\n", p.Query)
	fmt.Fprintf(w, "%sremote catalog:   %d\n", statusIndent, p.Remote.Len())
	fmt.Fprintf(w, "%slocal active:     %d (%d obsolete)\n", statusIndent, p.LocalActive.Len(), p.LocalObsolete.Len())
	fmt.Fprintf(w, "%sto download:      %d\n", statusIndent, len(p.ToDownload))
	line := fmt.Sprintf("%sto mark obsolete: %d", statusIndent, len(p.ToMarkObsolete))
	if ids := formatIDs(p.ToMarkObsolete, 8); ids != "" {
		line += " (" + ids + ")"
	}
	fmt.Fprintln(w, line)
}
