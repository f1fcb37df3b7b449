package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rcsbsync/internal/logging"
	"rcsbsync/internal/query"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var printIDs bool

	cmd := &cobra.Command{
		Use:   "resolve [query...]",
		Short: "Resolve saved queries to their current identifier catalogs",
		Long: `Resolve runs each query against the search service and reports how many
identifiers it matches today. Results land in the project's identifier
cache, so a later sync on the same day reuses them without another
round trip. A query that already has a cache entry for today is
answered from disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			layout, err := ctx.projectLayout()
			if err != nil {
				return err
			}

			all, err := query.Load(layout.QueriesDir())
			if err != nil {
				return err
			}
			queries, err := selectQueries(all, args)
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:  ctx.resolvedLogLevel(cfg),
				Format: cfg.Logging.Format,
				Paths:  []string{"stderr"},
			})
			if err != nil {
				return err
			}
			resolver, err := ctx.newResolver(cfg, layout, logger)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			headers := []string{"Query", "Identifiers", "Status"}
			rows := make([][]string, 0, len(queries))
			failed := 0
			for _, q := range queries {
				ids, err := resolver.Resolve(cmd.Context(), q.Name, q.Document)
				if err != nil {
					failed++
					rows = append(rows, []string{q.Name, "-", "failed"})
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", q.Name, err)
					continue
				}
				rows = append(rows, []string{q.Name, strconv.Itoa(ids.Len()), "ok"})
				if printIDs {
					for _, id := range ids.Sorted() {
						fmt.Fprintln(stdout, id)
					}
				}
			}
			if !printIDs {
				aligns := []columnAlignment{alignLeft, alignRight, alignLeft}
				fmt.Fprintln(stdout, renderTable(headers, rows, nil, aligns))
			}

			if failed > 0 {
				return exitStatus(2, fmt.Sprintf("%d of %d queries failed to resolve", failed, len(queries)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&printIDs, "ids", false, "Print resolved identifiers one per line instead of the summary table")
	return cmd
}
