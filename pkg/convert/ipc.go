package convert

import (
	"bytes"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/leapstack-labs/leapds/pkg/core"
)

// WriteIPC writes rec as a single-batch Arrow IPC stream.
func WriteIPC(w io.Writer, rec arrow.Record) error {
	wr := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()))
	if err := wr.Write(rec); err != nil {
		_ = wr.Close()
		return fmt.Errorf("failed to write arrow batch: %w", err)
	}
	return wr.Close()
}

// ReadIPC reads an Arrow IPC stream into one record, concatenating batches.
// The caller owns the returned record and must Release it.
func ReadIPC(mem memory.Allocator, r io.Reader) (arrow.Record, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow stream: %w", err)
	}
	defer rdr.Release()

	schema := rdr.Schema()
	var batches []arrow.Record
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()
	for rdr.Next() {
		rec := rdr.Record()
		rec.Retain()
		batches = append(batches, rec)
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read arrow stream: %w", err)
	}

	switch len(batches) {
	case 0:
		b := array.NewRecordBuilder(mem, schema)
		defer b.Release()
		return b.NewRecord(), nil
	case 1:
		batches[0].Retain()
		return batches[0], nil
	}

	cols := make([]arrow.Array, schema.NumFields())
	var rows int64
	for _, b := range batches {
		rows += b.NumRows()
	}
	for i := range cols {
		parts := make([]arrow.Array, len(batches))
		for j, b := range batches {
			parts[j] = b.Column(i)
		}
		col, err := array.Concatenate(parts, mem)
		if err != nil {
			for _, c := range cols[:i] {
				c.Release()
			}
			return nil, fmt.Errorf("failed to concatenate column %q: %w", schema.Field(i).Name, err)
		}
		cols[i] = col
	}
	rec := array.NewRecord(schema, cols, rows)
	for _, c := range cols {
		c.Release()
	}
	return rec, nil
}

// EncodeFrame serializes a host frame as an Arrow IPC stream.
func EncodeFrame(f *core.Frame) ([]byte, error) {
	rec, err := FrameToRecord(memory.DefaultAllocator, f)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	var buf bytes.Buffer
	if err := WriteIPC(&buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeFrame parses an Arrow IPC stream into a host frame.
func DecodeFrame(data []byte) (*core.Frame, error) {
	rec, err := ReadIPC(memory.DefaultAllocator, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return RecordToFrame(rec)
}
