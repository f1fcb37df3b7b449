package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"rcsbsync/internal/inventory"
	"rcsbsync/internal/logging"
	"rcsbsync/internal/pdbfile"
	"rcsbsync/internal/preflight"
	"rcsbsync/internal/project"
	"rcsbsync/internal/query"
	"rcsbsync/internal/services"
	"rcsbsync/internal/syncer"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var titles bool

	cmd := &cobra.Command{
		Use:   "status [query...]",
		Short: "Show project health and each query's sync position",
		Long: `Status runs the environment checks, then reports how far each query's
data directory is from the remote catalog. Catalog sizes come from the
identifier cache when today's entry exists; otherwise the query is
resolved against the search service first.`,
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
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Project", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("Root", statusInfo, layout.Root, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Queries", statusInfo, layout.QueriesDir(), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Summary", statusInfo, layout.SummaryPath(), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Logs", statusInfo, cfg.Paths.LogDir, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Assume yes", statusInfo, yesNo(cfg.Sync.AssumeYes), colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg, layout) {
				fmt.Fprintln(stdout, renderCheckLine(result, colorize))
			}
			fmt.Fprintln(stdout)

			all, err := query.Load(layout.QueriesDir())
			if err != nil {
				if errors.Is(err, services.ErrConfiguration) {
					fmt.Fprintln(stdout, "No query documents loaded; nothing to report.")
					return nil
				}
				return err
			}
			queries, err := selectQueries(all, args)
			if err != nil {
				return err
			}

			logger := logging.NewNop()
			resolver, err := ctx.newResolver(cfg, layout, logger)
			if err != nil {
				return err
			}
			files, err := ctx.newFileClient(cfg, logger)
			if err != nil {
				return err
			}
			pool, err := ctx.newDownloadPool(cfg, files, logger, 0)
			if err != nil {
				return err
			}
			s, err := syncer.New(layout, resolver, pool, syncer.WithLogger(logger))
			if err != nil {
				return err
			}

			for _, line := range renderSectionHeader("Queries", colorize) {
				fmt.Fprintln(stdout, line)
			}
			headers := []string{"Query", "Remote", "Active", "Obsolete", "To download", "To obsolete", "State"}
			rows := make([][]string, 0, len(queries))
			planErrors := make(map[string]error)
			for _, q := range queries {
				plan, err := s.Plan(cmd.Context(), q)
				if err != nil {
					planErrors[q.Name] = err
					rows = append(rows, []string{q.Name, "-", "-", "-", "-", "-", "error"})
					continue
				}
				state := "pending"
				if plan.Empty() {
					state = "in sync"
				}
				rows = append(rows, []string{
					q.Name,
					strconv.Itoa(plan.Remote.Len()),
					strconv.Itoa(plan.LocalActive.Len()),
					strconv.Itoa(plan.LocalObsolete.Len()),
					strconv.Itoa(len(plan.ToDownload)),
					strconv.Itoa(len(plan.ToMarkObsolete)),
					state,
				})
			}
			aligns := []columnAlignment{
				alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft,
			}
			fmt.Fprintln(stdout, renderTable(headers, rows, nil, aligns))
			for _, q := range queries {
				if err, ok := planErrors[q.Name]; ok {
					fmt.Fprintf(stdout, "%s%s: %v\n", statusIndent, q.Name, err)
				}
			}

			if titles {
				fmt.Fprintln(stdout)
				if err := renderTitles(stdout, layout, queries, colorize); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&titles, "titles", false, "List each downloaded entry's header title")
	return cmd
}

// renderTitles prints one table per query with the title line read from
// each active structure file.
func renderTitles(out io.Writer, layout project.Layout, queries []query.Query, colorize bool) error {
	scanner := inventory.NewScanner(logging.NewNop())
	for _, q := range queries {
		snapshot, err := scanner.Scan(layout.DataDir(q.Name))
		if err != nil {
			return err
		}
		ids := snapshot.Active().Sorted()
		if len(ids) == 0 {
			continue
		}
		for _, line := range renderSectionHeader(q.Name, colorize) {
			fmt.Fprintln(out, line)
		}
		rows := make([][]string, 0, len(ids))
		for _, id := range ids {
			entry, ok := snapshot.Entry(id)
			if !ok {
				continue
			}
			header, err := pdbfile.ReadHeader(entry.Path)
			if err != nil {
				rows = append(rows, []string{id, "", fmt.Sprintf("(unreadable: %v)", err)})
				continue
			}
			rows = append(rows, []string{id, header.Date, header.Title})
		}
		fmt.Fprintln(out, renderTable([]string{"ID", "Date", "Title"}, rows, nil, nil))
	}
	return nil
}
