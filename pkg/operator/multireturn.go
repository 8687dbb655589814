package operator

import (
	"context"
	"slices"
	"sync"

	"github.com/leapstack-labs/leapds/pkg/core"
	"github.com/leapstack-labs/leapds/pkg/script"
)

// MultiReturn is an operation with several outputs computed by a single
// statement. Its outputs are ordinary typed nodes that read one slot each.
//
// The first successful execution is memoized: materializing the outputs one
// by one runs the script once. Every call returns its own copies of the
// memoized frames and matrices.
type MultiReturn struct {
	node
	outputs []Node

	mu      sync.Mutex
	done    bool
	traced  bool
	values  []any
	lineage []string
}

// newMultiReturn builds the operation and its outputs. kinds lists the data
// type of each output slot in order.
func newMultiReturn(c *Context, op string, params []script.Param, kinds ...core.DataType) *MultiReturn {
	m := &MultiReturn{node: node{ctx: c}}
	m.outputs = make([]Node, len(kinds))
	outs := make([]script.Node, len(kinds))
	for i, dt := range kinds {
		base := node{ctx: c, expr: &script.Slot{Owner: m, Index: i}}
		switch dt {
		case core.DataTypeFrame:
			m.outputs[i] = &Frame{node: base}
		case core.DataTypeMatrix:
			m.outputs[i] = &Matrix{node: base}
		default:
			m.outputs[i] = &Scalar{node: base}
		}
		outs[i] = m.outputs[i]
	}
	m.expr = &script.Multi{Op: op, Params: params, Outputs: outs}
	return m
}

// DataType returns LIST.
func (m *MultiReturn) DataType() core.DataType { return core.DataTypeList }

// Outputs returns the output nodes in slot order.
func (m *MultiReturn) Outputs() []Node {
	return append([]Node(nil), m.outputs...)
}

// Matrix returns output i as a matrix node, or nil if it is not one.
func (m *MultiReturn) Matrix(i int) *Matrix {
	if i < 0 || i >= len(m.outputs) {
		return nil
	}
	out, _ := m.outputs[i].(*Matrix)
	return out
}

// Frame returns output i as a frame node, or nil if it is not one.
func (m *MultiReturn) Frame(i int) *Frame {
	if i < 0 || i >= len(m.outputs) {
		return nil
	}
	out, _ := m.outputs[i].(*Frame)
	return out
}

// Compute materializes every output in slot order. Frames are returned as
// *core.Frame, matrices as *core.Matrix and scalars as host values.
func (m *MultiReturn) Compute(ctx context.Context, opts ...ComputeOption) ([]any, error) {
	values, _, err := m.run(ctx, buildOptions(opts))
	return values, err
}

// ComputeLineage materializes every output and returns the values with the
// lineage trace of each.
func (m *MultiReturn) ComputeLineage(ctx context.Context, opts ...ComputeOption) ([]any, []string, error) {
	opts = append(opts, Lineage())
	return m.run(ctx, buildOptions(opts))
}

func (m *MultiReturn) run(ctx context.Context, o computeOptions) ([]any, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done && (m.traced || !o.lineage) {
		return cloneValues(m.values), slices.Clone(m.lineage), nil
	}

	s, res, err := m.ctx.execute(ctx, o, m)
	if err != nil {
		return nil, nil, err
	}

	names := s.OutputNames(m)
	values := make([]any, len(m.outputs))
	traces := make([]string, len(m.outputs))
	for i, out := range m.outputs {
		if values[i], err = out.materialize(res, names[i]); err != nil {
			return nil, nil, err
		}
		if o.lineage {
			if traces[i], err = res.Lineage(names[i]); err != nil {
				return nil, nil, err
			}
		}
	}

	m.done, m.traced = true, o.lineage
	m.values, m.lineage = values, traces
	return cloneValues(values), slices.Clone(traces), nil
}

func cloneValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case *core.Frame:
			out[i] = x.Clone()
		case *core.Matrix:
			out[i] = x.Clone()
		default:
			out[i] = v
		}
	}
	return out
}

// slotOwner reports the multi-return operation n reads its value from.
func slotOwner(n Node) (*MultiReturn, int, bool) {
	slot, ok := n.Expr().(*script.Slot)
	if !ok {
		return nil, 0, false
	}
	owner, ok := slot.Owner.(*MultiReturn)
	if !ok || slot.Index < 0 || slot.Index >= len(owner.outputs) {
		return nil, 0, false
	}
	return owner, slot.Index, true
}
