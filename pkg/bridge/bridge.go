// Package bridge defines the contract between the graph layer and the remote
// execution engine: a script plus pre-bound literals go in, named result
// handles come out.
//
// Concrete bridges live beside the contract (HTTP) or in tests
// (bridgetest). The graph layer never interprets bridge errors.
package bridge

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/leapstack-labs/leapds/pkg/core"
)

// Bridge executes generated scripts on the remote engine.
type Bridge interface {
	// Execute runs req.Script with req.Inputs bound and returns handles for
	// req.Outputs. It blocks until the engine answers or ctx is done.
	Execute(ctx context.Context, req *Request) (Results, error)
}

// Input is host literal data bound to a script variable. Value is a
// *core.Frame or *core.Matrix shared by reference with the literal node;
// it must not be mutated while the call is in flight.
type Input struct {
	Name     string
	DataType core.DataType
	Value    any
	// Reuse hints that the engine may cache the bound value across calls.
	Reuse bool
}

// Request is one script execution.
type Request struct {
	Script  string
	Inputs  []Input
	Outputs []string
	// Lineage asks the engine to return a lineage trace per output.
	Lineage bool
}

// Results gives typed access to the named outputs of one execution.
type Results interface {
	// DataType returns the engine-declared data type of an output.
	DataType(name string) (core.DataType, error)
	// FrameBlock returns a frame output as an Arrow record owned by the caller.
	FrameBlock(name string) (arrow.Record, error)
	// Scalar returns a scalar output as reported by the engine.
	Scalar(name string) (ScalarValue, error)
	// Matrix returns a matrix output.
	Matrix(name string) (*MatrixBlock, error)
	// Lineage returns the lineage trace of an output, if requested.
	Lineage(name string) (string, error)
}

// ScalarValue is a single engine value. Value may still be in wire form
// (for example a json.Number) and is converted by the materializer.
type ScalarValue struct {
	Type  core.ValueType
	Value any
}

// MatrixBlock is an engine matrix in row-major order.
type MatrixBlock struct {
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Values []float64 `json:"values"`
}

// RemoteError is an error reported by the engine or the transport. It is
// surfaced to callers unmodified.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("engine error (status %d): %s", e.Status, e.Message)
	}
	return "engine error: " + e.Message
}
