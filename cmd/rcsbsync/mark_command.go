package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rcsbsync/internal/inventory"
	"rcsbsync/internal/logging"
)

func newMarkObsoleteCommand(ctx *commandContext) *cobra.Command {
	var queryName string

	cmd := &cobra.Command{
		Use:   "mark-obsolete <identifier>...",
		Short: "Rename local entries aside as obsolete",
		Long: `Mark-obsolete renames each named entry's file in the query's data
directory so it carries the obsolete marker. The file stays on disk and
stops counting toward the active inventory. Marking is idempotent:
already-marked or absent entries are left alone.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			layout, err := ctx.projectLayout()
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

			scanner := inventory.NewScanner(logger)
			dataDir := layout.DataDir(queryName)
			marked, err := scanner.MarkObsolete(dataDir, args)

			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d of %d entries obsolete under %s\n", marked, len(args), dataDir)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return exitStatus(2, "some entries could not be marked")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&queryName, "query", "q", "", "Query whose data directory holds the entries")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
