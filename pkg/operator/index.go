package operator

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapds/pkg/core"
	"github.com/leapstack-labs/leapds/pkg/script"
)

type axisKind int

const (
	axisAll axisKind = iota
	axisRange
	axisAt
	axisList
)

// Axis selects along one dimension of a frame. Build axes with All, Range,
// From, To, At and List. Positions are 0-based.
type Axis struct {
	kind     axisKind
	start    int
	stop     int
	hasStart bool
	hasStop  bool
	indices  []int
}

// All selects the whole dimension.
func All() Axis { return Axis{kind: axisAll} }

// Range selects positions [start, stop).
func Range(start, stop int) Axis {
	return Axis{kind: axisRange, start: start, stop: stop, hasStart: true, hasStop: true}
}

// From selects positions from start to the end.
func From(start int) Axis {
	return Axis{kind: axisRange, start: start, hasStart: true}
}

// To selects positions [0, stop).
func To(stop int) Axis {
	return Axis{kind: axisRange, stop: stop, hasStop: true}
}

// At selects a single position.
func At(i int) Axis { return Axis{kind: axisAt, start: i} }

// List selects arbitrary positions. Selected rows or columns keep the
// frame's order, not the order of indices.
func List(indices ...int) Axis {
	return Axis{kind: axisList, indices: append([]int(nil), indices...)}
}

// Get subscripts the frame. One axis selects rows; two axes select rows
// and columns. Plain slices become a bracket subscript; a list of rows (or
// of columns with All rows) is lowered into a selection-matrix filter.
// Invalid requests fail before any node is created.
func (f *Frame) Get(axes ...Axis) (*Frame, error) {
	if err := checkAxes(axes); err != nil {
		return nil, err
	}

	rows := axes[0]
	cols := All()
	if len(axes) == 2 {
		cols = axes[1]
	}

	switch {
	case rows.kind == axisList:
		return f.selectBy(rows.indices, f.NRow(), "rows"), nil
	case cols.kind == axisList:
		return f.selectBy(cols.indices, f.NCol(), "cols"), nil
	}

	slice := sliceFragment(rows) + "," + sliceFragment(cols)
	return &Frame{node: node{ctx: f.ctx, expr: &script.Index{Base: f, Slice: slice}}}, nil
}

// checkAxes validates an index request in order: shape, sign, then support.
func checkAxes(axes []Axis) error {
	if len(axes) == 0 || len(axes) > 2 {
		return &core.ValueError{Op: "index", Msg: fmt.Sprintf("expected one or two axes, got %d", len(axes))}
	}

	for _, a := range axes {
		if err := checkNonNegative(a); err != nil {
			return err
		}
	}

	var lists int
	for _, a := range axes {
		if a.kind == axisList {
			lists++
		}
	}
	if lists == 2 {
		return &core.NotImplementedError{Feature: "list indexing on both axes"}
	}
	if lists == 1 && len(axes) == 2 {
		other := axes[1]
		if axes[1].kind == axisList {
			other = axes[0]
		}
		if other.kind != axisAll {
			return &core.NotImplementedError{Feature: "list indexing combined with a bounded selection on the other axis"}
		}
	}

	for _, a := range axes {
		switch {
		case a.kind == axisRange && a.hasStart != a.hasStop:
			return &core.NotImplementedError{Feature: "slice with an open bound"}
		case a.kind == axisRange && a.start > a.stop:
			return &core.ValueError{Op: "index", Msg: fmt.Sprintf("slice start %d is after stop %d", a.start, a.stop)}
		case a.kind == axisList && len(a.indices) == 0:
			return &core.ValueError{Op: "index", Msg: "index list is empty"}
		}
	}
	return nil
}

func checkNonNegative(a Axis) error {
	neg := a.start < 0 || a.stop < 0
	for _, i := range a.indices {
		if i < 0 {
			neg = true
		}
	}
	if neg {
		return &core.ValueError{Op: "index", Msg: "indices must be >= 0"}
	}
	return nil
}

// sliceFragment renders a 0-based axis as a 1-based inclusive subscript.
func sliceFragment(a Axis) string {
	switch a.kind {
	case axisRange:
		return strconv.Itoa(a.start+1) + ":" + strconv.Itoa(a.stop)
	case axisAt:
		return strconv.Itoa(a.start + 1)
	}
	return ""
}

// selectBy keeps the rows or columns at indices: a one-hot selection
// vector is built with table over the 1-based indices, then removeEmpty
// drops everything not selected.
func (f *Frame) selectBy(indices []int, extent *Scalar, margin string) *Frame {
	sel := f.ctx.literalMatrix(core.ColumnVector(indices...)).Add(1)
	table := &Matrix{node: node{ctx: f.ctx, expr: &script.Call{Op: "table", Args: []any{sel, 1, extent, 1}}}}
	return f.callNamed("removeEmpty",
		script.Param{Name: "target", Value: f},
		script.Param{Name: "margin", Value: script.Quote(margin)},
		script.Param{Name: "select", Value: table},
	)
}
