// Package operator builds lazy operation graphs over frames, matrices and
// scalars and materializes them through an execution bridge.
//
// Builder calls never execute anything. Compute lowers the graph reachable
// from the receiver into a script, binds host literals, runs the script on
// the bridge and converts the requested outputs back into host values.
package operator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapds/pkg/bridge"
	"github.com/leapstack-labs/leapds/pkg/core"
	"github.com/leapstack-labs/leapds/pkg/script"
)

// Context owns the bridge every node built from it executes on.
type Context struct {
	bridge   bridge.Bridge
	logger   *slog.Logger
	recorder Recorder
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder registers a recorder notified after every execution.
func WithRecorder(r Recorder) Option {
	return func(c *Context) { c.recorder = r }
}

// NewContext creates a context executing on b.
func NewContext(b bridge.Bridge, opts ...Option) *Context {
	c := &Context{
		bridge: b,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execution describes one script run on the bridge.
type Execution struct {
	Script   string
	Inputs   []string
	Outputs  []string
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Recorder observes executions, for example to journal them.
type Recorder interface {
	Record(ctx context.Context, e Execution) error
}

// FromFrame wraps a deep copy of host frame f as a literal node.
func (c *Context) FromFrame(f *core.Frame) (*Frame, error) {
	if f == nil {
		return nil, &core.ValueError{Op: "from_frame", Msg: "frame is nil"}
	}
	if err := f.Validate(); err != nil {
		return nil, &core.ValueError{Op: "from_frame", Msg: err.Error()}
	}
	local := f.Clone()
	return &Frame{
		node:  node{ctx: c, expr: &script.Input{DataType: core.DataTypeFrame, Value: local}},
		local: local,
	}, nil
}

// FromMatrix wraps a deep copy of host matrix m as a literal node.
func (c *Context) FromMatrix(m *core.Matrix) (*Matrix, error) {
	if m == nil {
		return nil, &core.ValueError{Op: "from_matrix", Msg: "matrix is nil"}
	}
	if _, err := core.NewMatrix(m.Rows, m.Cols, m.Data); err != nil {
		return nil, &core.ValueError{Op: "from_matrix", Msg: err.Error()}
	}
	return c.literalMatrix(m.Clone()), nil
}

func (c *Context) literalMatrix(m *core.Matrix) *Matrix {
	return &Matrix{
		node:  node{ctx: c, expr: &script.Input{DataType: core.DataTypeMatrix, Value: m}},
		local: m,
	}
}

// Scalar creates a constant from an integer, float, bool or string value.
func (c *Context) Scalar(v any) (*Scalar, error) {
	var lit string
	switch x := v.(type) {
	case int:
		lit = strconv.Itoa(x)
	case int32:
		lit = strconv.FormatInt(int64(x), 10)
	case int64:
		lit = strconv.FormatInt(x, 10)
	case float32:
		lit = script.Float(float64(x))
	case float64:
		lit = script.Float(x)
	case bool:
		lit = script.Bool(x)
	case string:
		lit = script.Quote(x)
	default:
		return nil, &core.ValueError{Op: "scalar", Msg: fmt.Sprintf("unsupported scalar type %T", v)}
	}
	return &Scalar{node: node{ctx: c, expr: &script.Const{Literal: lit}}}, nil
}

// String creates a string constant.
func (c *Context) String(s string) *Scalar {
	return &Scalar{node: node{ctx: c, expr: &script.Const{Literal: script.Quote(s)}}}
}

// execute generates the script for outputs, runs it and returns the
// script together with the bridge results. Bridge errors are returned
// unmodified.
func (c *Context) execute(ctx context.Context, o computeOptions, outputs ...script.Node) (*script.Script, bridge.Results, error) {
	if c == nil || c.bridge == nil {
		return nil, nil, &core.IllegalStateError{Msg: "node is not attached to a context with an execution bridge"}
	}

	s, err := script.Generate(outputs...)
	if err != nil {
		return nil, nil, err
	}

	req := &bridge.Request{
		Script:  s.String(),
		Inputs:  make([]bridge.Input, len(s.Inputs)),
		Outputs: s.Outputs(),
		Lineage: o.lineage,
	}
	inputNames := make([]string, len(s.Inputs))
	for i, b := range s.Inputs {
		req.Inputs[i] = bridge.Input{Name: b.Name, DataType: b.DataType, Value: b.Value, Reuse: b.Reuse}
		inputNames[i] = b.Name
	}

	c.logger.Debug("generated script",
		"statements", len(s.Lines),
		"inputs", inputNames,
		"outputs", req.Outputs)
	if o.verbose {
		c.logger.Info("executing script", "script", req.Script)
	}

	start := time.Now()
	res, err := c.bridge.Execute(ctx, req)
	elapsed := time.Since(start)

	if c.recorder != nil {
		rec := Execution{
			Script:   req.Script,
			Inputs:   inputNames,
			Outputs:  req.Outputs,
			Started:  start,
			Duration: elapsed,
			Err:      err,
		}
		if rerr := c.recorder.Record(ctx, rec); rerr != nil {
			c.logger.Warn("failed to record execution", "error", rerr)
		}
	}

	if err != nil {
		c.logger.Debug("execution failed", "duration", elapsed, "error", err)
		return nil, nil, err
	}
	c.logger.Debug("execution finished", "duration", elapsed)
	return s, res, nil
}
