package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapds/internal/cli/config"
	"github.com/leapstack-labs/leapds/internal/journal"
	"github.com/leapstack-labs/leapds/pkg/bridge"
	"github.com/leapstack-labs/leapds/pkg/operator"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	NoJournal bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <plan>",
		Short: "Execute a plan on the engine",
		Long: `Build the node graph described by a plan file, execute all of its
outputs on the engine in a single script, and print the results.

Every execution is recorded in the journal unless --no-journal is set.`,
		Example: `  # Run a plan against the configured engine
  leapds run plan.yaml

  # Run against a specific engine and print JSON
  leapds run plan.yaml --endpoint http://localhost:8080 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoJournal, "no-journal", false, "Do not record the execution")

	return cmd
}

func runRun(cmd *cobra.Command, path string, opts *RunOptions) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)

	if err := cfg.RequireEngine(); err != nil {
		return err
	}
	httpOpts, err := bridge.DecodeHTTPOptions(cfg.Engine.BridgeParams())
	if err != nil {
		return err
	}
	b, err := bridge.NewHTTP(cfg.Engine.Endpoint, httpOpts, logger)
	if err != nil {
		return err
	}

	ctxOpts := []operator.Option{operator.WithLogger(logger)}
	if !opts.NoJournal {
		store, err := openJournal(cmd, cfg.JournalPath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		ctxOpts = append(ctxOpts, operator.WithRecorder(store))
	}
	c := operator.NewContext(b, ctxOpts...)

	g, cleanup, err := buildPlan(ctx, path, c, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var computeOpts []operator.ComputeOption
	if cfg.Verbose {
		computeOpts = append(computeOpts, operator.Verbose())
	}
	values, err := operator.ComputeAll(ctx, g.Nodes(), computeOpts...)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	results := make([]result, len(values))
	for i, v := range values {
		results[i] = result{Name: g.Outputs[i].Name, Value: v}
	}
	return renderResults(cmd.OutOrStdout(), results, cfg.Output)
}

// openJournal opens the journal, creating its directory if needed.
func openJournal(cmd *cobra.Command, path string) (*journal.Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	return journal.Open(cmd.Context(), path, config.GetLogger(cmd.Context()))
}
