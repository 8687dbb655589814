package operator

import (
	"context"
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapds/pkg/bridge"
	"github.com/leapstack-labs/leapds/pkg/convert"
	"github.com/leapstack-labs/leapds/pkg/core"
	"github.com/leapstack-labs/leapds/pkg/script"
)

// Frame is a tabular node with typed, possibly mixed-type columns.
type Frame struct {
	node
	// local is the host literal for frames created by FromFrame.
	local *core.Frame
}

// DataType returns FRAME.
func (f *Frame) DataType() core.DataType { return core.DataTypeFrame }

// IsLocal reports whether the frame is a host literal.
func (f *Frame) IsLocal() bool { return f.local != nil }

func (f *Frame) call(op string, args ...any) *Frame {
	return &Frame{node: node{ctx: f.ctx, expr: &script.Call{Op: op, Args: args}}}
}

func (f *Frame) callNamed(op string, params ...script.Param) *Frame {
	return &Frame{node: node{ctx: f.ctx, expr: &script.Call{Op: op, Params: params}}}
}

// Rbind appends the rows of other below f.
func (f *Frame) Rbind(other *Frame) *Frame {
	return f.call("rbind", f, other)
}

// Cbind appends the columns of other to the right of f.
func (f *Frame) Cbind(other *Frame) *Frame {
	return f.call("cbind", f, other)
}

// Replace substitutes every cell equal to pattern with replacement.
func (f *Frame) Replace(pattern, replacement string) *Frame {
	return f.callNamed("replace",
		script.Param{Name: "target", Value: f},
		script.Param{Name: "pattern", Value: script.Quote(pattern)},
		script.Param{Name: "replacement", Value: script.Quote(replacement)},
	)
}

// ToString renders the frame as a string scalar. Options are passed as
// named operands in key order; string values are quoted. Keys must be
// identifiers.
func (f *Frame) ToString(options map[string]any) (*Scalar, error) {
	keys := make([]string, 0, len(options))
	for k := range options {
		if !script.IsIdentifier(k) {
			return nil, &core.ValueError{Op: "toString", Msg: fmt.Sprintf("option name %q is not an identifier", k)}
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	params := make([]script.Param, 0, len(keys))
	for _, k := range keys {
		v := options[k]
		if s, ok := v.(string); ok {
			v = script.Quote(s)
		}
		params = append(params, script.Param{Name: k, Value: v})
	}
	return &Scalar{node: node{ctx: f.ctx, expr: &script.Call{Op: "toString", Args: []any{f}, Params: params}}}, nil
}

// NRow returns the number of rows as a scalar node.
func (f *Frame) NRow() *Scalar {
	return &Scalar{node: node{ctx: f.ctx, expr: &script.Call{Op: "nrow", Args: []any{f}}}}
}

// NCol returns the number of columns as a scalar node.
func (f *Frame) NCol() *Scalar {
	return &Scalar{node: node{ctx: f.ctx, expr: &script.Call{Op: "ncol", Args: []any{f}}}}
}

// TransformEncode encodes the frame according to a JSON transform spec.
// Output 0 is the encoded matrix, output 1 the metadata frame.
func (f *Frame) TransformEncode(spec *Scalar) *MultiReturn {
	return newMultiReturn(f.ctx, "transformencode", []script.Param{
		{Name: "target", Value: f},
		{Name: "spec", Value: spec},
	}, core.DataTypeMatrix, core.DataTypeFrame)
}

// TransformApply encodes the frame with metadata produced by an earlier
// TransformEncode.
func (f *Frame) TransformApply(spec *Scalar, meta *Frame) *Matrix {
	return &Matrix{node: node{ctx: f.ctx, expr: &script.Call{Op: "transformapply", Params: []script.Param{
		{Name: "target", Value: f},
		{Name: "spec", Value: spec},
		{Name: "meta", Value: meta},
	}}}}
}

// Compute materializes the frame. A host literal is returned as a copy
// without contacting the engine.
func (f *Frame) Compute(ctx context.Context, opts ...ComputeOption) (*core.Frame, error) {
	o := buildOptions(opts)
	if v, ok := computeLocal(ctx, f, o); ok {
		return v.(*core.Frame), nil
	}
	v, _, err := compute(ctx, f, o)
	if err != nil {
		return nil, err
	}
	return v.(*core.Frame), nil
}

func (f *Frame) materialize(res bridge.Results, name string) (any, error) {
	if err := checkType(res, name, core.DataTypeFrame); err != nil {
		return nil, err
	}
	rec, err := res.FrameBlock(name)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	out, err := convert.RecordToFrame(rec)
	if err != nil {
		return nil, conversionError(name, "%v", err)
	}
	return out, nil
}
