package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rcsbsync/internal/inventory"
	"rcsbsync/internal/logging"
	"rcsbsync/internal/project"
	"rcsbsync/internal/query"
)

func newQueryCommand(ctx *commandContext) *cobra.Command {
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Saved query utilities",
	}

	queryCmd.AddCommand(newQueryListCommand(ctx))
	queryCmd.AddCommand(newQueryGenerateCommand(ctx))

	return queryCmd
}

func newQueryListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the project's saved queries and their local holdings",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := ctx.projectLayout()
			if err != nil {
				return err
			}
			queries, err := query.Load(layout.QueriesDir())
			if err != nil {
				return err
			}
			if len(queries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No query documents found; add .json files under", layout.QueriesDir())
				return nil
			}

			scanner := inventory.NewScanner(logging.NewNop())
			headers := []string{"Query", "Active", "Obsolete", "Document"}
			rows := make([][]string, 0, len(queries))
			for _, q := range queries {
				snapshot, err := scanner.Scan(layout.DataDir(q.Name))
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					q.Name,
					strconv.Itoa(snapshot.Active().Len()),
					strconv.Itoa(snapshot.Obsolete().Len()),
					q.Path,
				})
			}
			aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignLeft}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, nil, aligns))
			return nil
		},
	}
}

func newQueryGenerateCommand(ctx *commandContext) *cobra.Command {
	var taxa []string
	var csm bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate query documents from the project manifest",
		Long: `Generate writes one query document per taxon into the project's queries
directory, plus a computed-structure companion per taxon when enabled.
Taxa come from project.toml unless --taxon is given. Existing documents
with the same names are overwritten, so regenerating after a manifest
edit is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := ctx.projectLayout()
			if err != nil {
				return err
			}

			specs := []query.Spec{}
			if len(taxa) > 0 {
				specs = query.SpecsFor(taxa, csm)
			} else {
				manifest, err := project.LoadManifest(layout.ManifestPath())
				if err != nil {
					return fmt.Errorf("%w (pass --taxon to generate without a manifest)", err)
				}
				specs = manifest.Specs()
			}

			generated, err := query.Generate(layout.QueriesDir(), specs)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			for _, q := range generated {
				fmt.Fprintf(stdout, "Wrote %s\n", q.Path)
			}
			fmt.Fprintf(stdout, "Generated %d query documents\n", len(generated))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&taxa, "taxon", nil, "Scientific name to generate a query for (repeatable)")
	cmd.Flags().BoolVar(&csm, "csm", false, "Also generate computed-structure queries (with --taxon)")
	return cmd
}
