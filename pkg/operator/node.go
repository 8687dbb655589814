package operator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapds/pkg/bridge"
	"github.com/leapstack-labs/leapds/pkg/core"
	"github.com/leapstack-labs/leapds/pkg/script"
)

// Node is a typed operation node that can be materialized on its own.
// The set of implementations is closed: *Frame, *Matrix and *Scalar.
type Node interface {
	script.Node
	DataType() core.DataType
	Context() *Context
	materialize(res bridge.Results, name string) (any, error)
}

// node holds what every variant shares: the owning context and the
// expression that produces the value.
type node struct {
	ctx  *Context
	expr script.Expr
}

// Expr implements script.Node.
func (n *node) Expr() script.Expr { return n.expr }

// Context returns the context the node was built from.
func (n *node) Context() *Context { return n.ctx }

// CodeLine renders the node's statement assigned to name given the
// resolved operand names.
func (n *node) CodeLine(name string, args []string, params []script.Arg) string {
	if n.expr == nil {
		return ""
	}
	return script.CodeLine(n.expr, name, args, params)
}

// ComputeOption configures a materializing call.
type ComputeOption func(*computeOptions)

type computeOptions struct {
	verbose bool
	lineage bool
}

// Verbose logs the generated script at info level before execution.
func Verbose() ComputeOption {
	return func(o *computeOptions) { o.verbose = true }
}

// Lineage asks the engine for a lineage trace of each output.
func Lineage() ComputeOption {
	return func(o *computeOptions) { o.lineage = true }
}

func buildOptions(opts []ComputeOption) computeOptions {
	var o computeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ComputeLineage materializes n with lineage tracing and returns the value
// together with the trace reported by the engine, from one execution.
// Host literals are returned without a trace.
func ComputeLineage(ctx context.Context, n Node, opts ...ComputeOption) (any, string, error) {
	o := buildOptions(append(opts, Lineage()))
	if v, ok := computeLocal(ctx, n, o); ok {
		return v, "", nil
	}
	return compute(ctx, n, o)
}

// computeLocal serves a host literal without generating a script.
func computeLocal(ctx context.Context, n Node, o computeOptions) (any, bool) {
	v, ok := localValue(n)
	if !ok {
		return nil, false
	}
	if c := n.Context(); c != nil {
		level := slog.LevelDebug
		if o.verbose {
			level = slog.LevelInfo
		}
		c.logger.Log(ctx, level, "host literal, no compilation necessary", "data_type", n.DataType())
	}
	return v, true
}

// compute runs the whole pipeline for a single node. Outputs of a
// multi-return operation are served by their owner so that sibling outputs
// share one execution.
func compute(ctx context.Context, n Node, o computeOptions) (any, string, error) {
	if owner, idx, ok := slotOwner(n); ok {
		values, traces, err := owner.run(ctx, o)
		if err != nil {
			return nil, "", err
		}
		return values[idx], traces[idx], nil
	}

	s, res, err := n.Context().execute(ctx, o, n)
	if err != nil {
		return nil, "", err
	}
	name := s.OutputNames(n)[0]
	v, err := n.materialize(res, name)
	if err != nil {
		return nil, "", err
	}
	var trace string
	if o.lineage {
		if trace, err = res.Lineage(name); err != nil {
			return nil, "", err
		}
	}
	return v, trace, nil
}

// checkType fails with a ConversionError when the engine result is not of
// the data type the node expects.
func checkType(res bridge.Results, name string, want core.DataType) error {
	got, err := res.DataType(name)
	if err != nil {
		return err
	}
	if got != want {
		return &core.ConversionError{Name: name, Want: want, Got: got}
	}
	return nil
}

func conversionError(name string, format string, args ...any) error {
	return &core.ConversionError{Name: name, Msg: fmt.Sprintf(format, args...)}
}

// ComputeAll materializes several nodes with a single execution. Host
// literals are returned as copies and are not requested from the engine.
// All other nodes must belong to the same context.
func ComputeAll(ctx context.Context, nodes []Node, opts ...ComputeOption) ([]any, error) {
	o := buildOptions(opts)
	values := make([]any, len(nodes))

	var (
		c       *Context
		bound   bool
		pending []script.Node
		index   []int
	)
	for i, n := range nodes {
		if v, ok := computeLocal(ctx, n, o); ok {
			values[i] = v
			continue
		}
		if !bound {
			c, bound = n.Context(), true
		} else if n.Context() != c {
			return nil, &core.IllegalStateError{Msg: "nodes computed together must share a context"}
		}
		pending = append(pending, n)
		index = append(index, i)
	}
	if len(pending) == 0 {
		return values, nil
	}

	s, res, err := c.execute(ctx, o, pending...)
	if err != nil {
		return nil, err
	}
	for k, i := range index {
		name := s.OutputNames(pending[k])[0]
		if values[i], err = nodes[i].materialize(res, name); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func localValue(n Node) (any, bool) {
	switch x := n.(type) {
	case *Frame:
		if x.local != nil {
			return x.local.Clone(), true
		}
	case *Matrix:
		if x.local != nil {
			return x.local.Clone(), true
		}
	}
	return nil, false
}
