package operator

import (
	"context"

	"github.com/leapstack-labs/leapds/pkg/bridge"
	"github.com/leapstack-labs/leapds/pkg/core"
	"github.com/leapstack-labs/leapds/pkg/script"
)

// Matrix is a homogeneous numeric node.
type Matrix struct {
	node
	local *core.Matrix
}

// DataType returns MATRIX.
func (m *Matrix) DataType() core.DataType { return core.DataTypeMatrix }

// IsLocal reports whether the matrix is a host literal.
func (m *Matrix) IsLocal() bool { return m.local != nil }

// Add adds v element-wise. v is a node or a number.
func (m *Matrix) Add(v any) *Matrix {
	return &Matrix{node: node{ctx: m.ctx, expr: &script.Call{Op: "+", Args: []any{m, v}}}}
}

// NRow returns the number of rows as a scalar node.
func (m *Matrix) NRow() *Scalar {
	return m.scalar("nrow")
}

// NCol returns the number of columns as a scalar node.
func (m *Matrix) NCol() *Scalar {
	return m.scalar("ncol")
}

// Sum returns the sum of all cells as a scalar node.
func (m *Matrix) Sum() *Scalar {
	return m.scalar("sum")
}

func (m *Matrix) scalar(op string) *Scalar {
	return &Scalar{node: node{ctx: m.ctx, expr: &script.Call{Op: op, Args: []any{m}}}}
}

// ToFrame converts the matrix into a frame of FP64 columns.
func (m *Matrix) ToFrame() *Frame {
	return &Frame{node: node{ctx: m.ctx, expr: &script.Call{Op: "as.frame", Args: []any{m}}}}
}

// Compute materializes the matrix. A host literal is returned as a copy
// without contacting the engine.
func (m *Matrix) Compute(ctx context.Context, opts ...ComputeOption) (*core.Matrix, error) {
	o := buildOptions(opts)
	if v, ok := computeLocal(ctx, m, o); ok {
		return v.(*core.Matrix), nil
	}
	v, _, err := compute(ctx, m, o)
	if err != nil {
		return nil, err
	}
	return v.(*core.Matrix), nil
}

func (m *Matrix) materialize(res bridge.Results, name string) (any, error) {
	if err := checkType(res, name, core.DataTypeMatrix); err != nil {
		return nil, err
	}
	block, err := res.Matrix(name)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, conversionError(name, "matrix result is empty")
	}
	data := make([]float64, len(block.Values))
	copy(data, block.Values)
	out, err := core.NewMatrix(block.Rows, block.Cols, data)
	if err != nil {
		return nil, conversionError(name, "%v", err)
	}
	return out, nil
}
