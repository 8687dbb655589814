package bridge

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/leapstack-labs/leapds/pkg/convert"
	"github.com/leapstack-labs/leapds/pkg/core"
)

// ResultSet is an in-memory Results.
type ResultSet struct {
	mem     memory.Allocator
	entries map[string]*entry
}

type entry struct {
	dataType core.DataType
	frame    func(memory.Allocator) (arrow.Record, error)
	scalar   ScalarValue
	matrix   *MatrixBlock
	lineage  string
}

// NewResultSet creates an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{mem: memory.DefaultAllocator, entries: make(map[string]*entry)}
}

// SetFrame stores a host frame result.
func (r *ResultSet) SetFrame(name string, f *core.Frame) {
	f = f.Clone()
	r.put(name, core.DataTypeFrame).frame = func(mem memory.Allocator) (arrow.Record, error) {
		return convert.FrameToRecord(mem, f)
	}
}

// SetFrameIPC stores a frame result encoded as an Arrow IPC stream.
func (r *ResultSet) SetFrameIPC(name string, data []byte) {
	r.put(name, core.DataTypeFrame).frame = func(mem memory.Allocator) (arrow.Record, error) {
		return convert.ReadIPC(mem, bytes.NewReader(data))
	}
}

// SetScalar stores a scalar result.
func (r *ResultSet) SetScalar(name string, v ScalarValue) {
	r.put(name, core.DataTypeScalar).scalar = v
}

// SetMatrix stores a matrix result.
func (r *ResultSet) SetMatrix(name string, m *MatrixBlock) {
	r.put(name, core.DataTypeMatrix).matrix = m
}

// SetLineage attaches a lineage trace to an existing result.
func (r *ResultSet) SetLineage(name, trace string) {
	if e, ok := r.entries[name]; ok {
		e.lineage = trace
	}
}

// Len returns the number of stored results.
func (r *ResultSet) Len() int {
	return len(r.entries)
}

func (r *ResultSet) put(name string, dt core.DataType) *entry {
	e := &entry{dataType: dt}
	r.entries[name] = e
	return e
}

func (r *ResultSet) get(name string, want core.DataType) (*entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("no result named %q", name)
	}
	if want != "" && e.dataType != want {
		return nil, &core.ConversionError{Name: name, Want: want, Got: e.dataType}
	}
	return e, nil
}

// DataType implements Results.
func (r *ResultSet) DataType(name string) (core.DataType, error) {
	e, err := r.get(name, "")
	if err != nil {
		return "", err
	}
	return e.dataType, nil
}

// FrameBlock implements Results.
func (r *ResultSet) FrameBlock(name string) (arrow.Record, error) {
	e, err := r.get(name, core.DataTypeFrame)
	if err != nil {
		return nil, err
	}
	return e.frame(r.mem)
}

// Scalar implements Results.
func (r *ResultSet) Scalar(name string) (ScalarValue, error) {
	e, err := r.get(name, core.DataTypeScalar)
	if err != nil {
		return ScalarValue{}, err
	}
	return e.scalar, nil
}

// Matrix implements Results.
func (r *ResultSet) Matrix(name string) (*MatrixBlock, error) {
	e, err := r.get(name, core.DataTypeMatrix)
	if err != nil {
		return nil, err
	}
	return e.matrix, nil
}

// Lineage implements Results.
func (r *ResultSet) Lineage(name string) (string, error) {
	e, err := r.get(name, "")
	if err != nil {
		return "", err
	}
	return e.lineage, nil
}

var _ Results = (*ResultSet)(nil)
