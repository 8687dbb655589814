// Package convert translates host frames to and from Arrow records, the
// columnar representation frame blocks use on the wire.
package convert

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/leapstack-labs/leapds/pkg/core"
)

// ArrowType returns the Arrow type used for a column value type.
func ArrowType(vt core.ValueType) (arrow.DataType, error) {
	switch vt {
	case core.ValueTypeString:
		return arrow.BinaryTypes.String, nil
	case core.ValueTypeInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case core.ValueTypeInt32:
		return arrow.PrimitiveTypes.Int32, nil
	case core.ValueTypeFP64:
		return arrow.PrimitiveTypes.Float64, nil
	case core.ValueTypeFP32:
		return arrow.PrimitiveTypes.Float32, nil
	case core.ValueTypeBoolean:
		return arrow.FixedWidthTypes.Boolean, nil
	}
	return nil, fmt.Errorf("no arrow type for value type %q", vt)
}

// ValueType returns the column value type for an Arrow type.
func ValueType(dt arrow.DataType) (core.ValueType, error) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return core.ValueTypeString, nil
	case arrow.INT64:
		return core.ValueTypeInt64, nil
	case arrow.INT32:
		return core.ValueTypeInt32, nil
	case arrow.FLOAT64:
		return core.ValueTypeFP64, nil
	case arrow.FLOAT32:
		return core.ValueTypeFP32, nil
	case arrow.BOOL:
		return core.ValueTypeBoolean, nil
	}
	return "", fmt.Errorf("unsupported arrow type %s", dt)
}

// Schema builds the Arrow schema for a frame, keeping column order.
func Schema(f *core.Frame) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(f.Columns))
	for i, c := range f.Columns {
		dt, err := ArrowType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		fields[i] = arrow.Field{Name: c.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// FrameToRecord converts a host frame into an Arrow record. The caller owns
// the returned record and must Release it.
func FrameToRecord(mem memory.Allocator, f *core.Frame) (arrow.Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	schema, err := Schema(f)
	if err != nil {
		return nil, err
	}

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, c := range f.Columns {
		if err := appendColumn(b.Field(i), c); err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
	}
	return b.NewRecord(), nil
}

func appendColumn(fb array.Builder, c core.Column) error {
	for _, v := range c.Values {
		if v == nil {
			fb.AppendNull()
			continue
		}
		switch b := fb.(type) {
		case *array.StringBuilder:
			b.Append(v.(string))
		case *array.Int64Builder:
			b.Append(v.(int64))
		case *array.Int32Builder:
			b.Append(v.(int32))
		case *array.Float64Builder:
			b.Append(v.(float64))
		case *array.Float32Builder:
			b.Append(v.(float32))
		case *array.BooleanBuilder:
			b.Append(v.(bool))
		default:
			return fmt.Errorf("unsupported builder %T", fb)
		}
	}
	return nil
}

// RecordToFrame converts an Arrow record into a host frame, preserving
// column order and column types. The record is not released.
func RecordToFrame(rec arrow.Record) (*core.Frame, error) {
	schema := rec.Schema()
	rows := int(rec.NumRows())
	f := &core.Frame{Columns: make([]core.Column, rec.NumCols())}

	for i := range f.Columns {
		field := schema.Field(i)
		vt, err := ValueType(field.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", field.Name, err)
		}
		values, err := columnValues(rec.Column(i), rows)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", field.Name, err)
		}
		f.Columns[i] = core.Column{Name: field.Name, Type: vt, Values: values}
	}
	return f, nil
}

func columnValues(col arrow.Array, rows int) ([]any, error) {
	values := make([]any, rows)
	for j := 0; j < rows; j++ {
		if col.IsNull(j) {
			continue
		}
		switch a := col.(type) {
		case *array.String:
			values[j] = a.Value(j)
		case *array.LargeString:
			values[j] = a.Value(j)
		case *array.Int64:
			values[j] = a.Value(j)
		case *array.Int32:
			values[j] = a.Value(j)
		case *array.Float64:
			values[j] = a.Value(j)
		case *array.Float32:
			values[j] = a.Value(j)
		case *array.Boolean:
			values[j] = a.Value(j)
		default:
			return nil, fmt.Errorf("unsupported array %T", col)
		}
	}
	return values, nil
}
