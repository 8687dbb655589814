package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/leapstack-labs/leapds/internal/cli/config"
	"github.com/leapstack-labs/leapds/pkg/operator"
	"github.com/leapstack-labs/leapds/pkg/script"
	"github.com/spf13/cobra"
)

// ScriptOptions holds options for the script command.
type ScriptOptions struct {
	Levels   bool
	Inputs   bool
	Watch    bool
	Upstream string
}

// NewScriptCommand creates the script command.
func NewScriptCommand() *cobra.Command {
	opts := &ScriptOptions{}

	cmd := &cobra.Command{
		Use:   "script <plan>",
		Short: "Print the DML script generated for a plan",
		Long: `Build the node graph described by a plan file and print the DML
script that would be sent to the engine, without executing it.

Plan inputs that read from a source are loaded so literal bindings
are known, but nothing is sent to the engine.`,
		Example: `  # Print the script
  leapds script plan.yaml

  # Also show execution levels and literal bindings
  leapds script plan.yaml --levels --inputs

  # Print only the statements V1 depends on
  leapds script plan.yaml --upstream V1

  # Regenerate whenever the plan file changes
  leapds script plan.yaml --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Levels, "levels", false, "Show statement execution levels")
	cmd.Flags().BoolVar(&opts.Inputs, "inputs", false, "Show literal input bindings")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Regenerate when the plan file changes")
	cmd.Flags().StringVar(&opts.Upstream, "upstream", "", "Print only the statements the named statement depends on")

	return cmd
}

func runScript(cmd *cobra.Command, path string, opts *ScriptOptions) error {
	if opts.Watch {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return watchPlan(ctx, path, cmd.ErrOrStderr(), func() error {
			return renderScript(ctx, cmd.OutOrStdout(), path, opts)
		})
	}
	return renderScript(cmd.Context(), cmd.OutOrStdout(), path, opts)
}

func renderScript(ctx context.Context, w io.Writer, path string, opts *ScriptOptions) error {
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)

	c := operator.NewContext(nil, operator.WithLogger(logger))
	g, cleanup, err := buildPlan(ctx, path, c, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	nodes := g.Nodes()
	outputs := make([]script.Node, len(nodes))
	for i, n := range nodes {
		outputs[i] = n
	}
	s, err := script.Generate(outputs...)
	if err != nil {
		return err
	}

	if opts.Upstream != "" {
		lines, ok := s.Upstream(opts.Upstream)
		if !ok {
			return fmt.Errorf("no statement assigns %q", opts.Upstream)
		}
		_, _ = fmt.Fprintln(w, strings.Join(lines, "\n"))
	} else {
		_, _ = fmt.Fprintln(w, s.String())
	}

	if opts.Inputs {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "# inputs")
		for _, in := range s.Inputs {
			_, _ = fmt.Fprintf(w, "# %s: %s\n", in.Name, strings.ToLower(string(in.DataType)))
		}
	}

	if opts.Levels {
		levels, err := s.Levels()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w)
		statements, edges := s.Size()
		_, _ = fmt.Fprintf(w, "# levels (%d statements, %d dependencies)\n", statements, edges)
		for i, names := range levels {
			_, _ = fmt.Fprintf(w, "# %d: %s\n", i, strings.Join(names, ", "))
		}
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "# outputs")
	for i, o := range g.Outputs {
		_, _ = fmt.Fprintf(w, "# %s = %s\n", o.Name, strings.Join(s.OutputNames(outputs[i]), ", "))
	}
	return nil
}
