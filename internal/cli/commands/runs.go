package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapds/internal/cli/config"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "List journaled executions",
		Long: `List the most recent executions recorded in the journal, newest first.

With an execution ID, print the script that execution sent to the engine.`,
		Example: `  # Last 20 executions
  leapds runs

  # Script of one execution
  leapds runs 3f2a9c1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			store, err := openJournal(cmd, cfg.JournalPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if len(args) == 1 {
				e, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), e.Script)
				return nil
			}

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderRuns(cmd.OutOrStdout(), entries, cfg.Output)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of executions to list")

	return cmd
}
