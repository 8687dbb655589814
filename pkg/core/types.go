package core

import (
	"fmt"
	"strings"
)

// DataType is the engine-side kind of a value.
type DataType string

// Engine data types.
const (
	DataTypeFrame  DataType = "FRAME"
	DataTypeMatrix DataType = "MATRIX"
	DataTypeScalar DataType = "SCALAR"
	DataTypeList   DataType = "LIST"
)

// ValueType is the element type of a scalar or of a frame column.
type ValueType string

// Value types understood by the engine.
const (
	ValueTypeString  ValueType = "STRING"
	ValueTypeInt64   ValueType = "INT64"
	ValueTypeInt32   ValueType = "INT32"
	ValueTypeFP64    ValueType = "FP64"
	ValueTypeFP32    ValueType = "FP32"
	ValueTypeBoolean ValueType = "BOOLEAN"
)

// ParseValueType parses a value type name, case-insensitively.
func ParseValueType(s string) (ValueType, error) {
	switch vt := ValueType(strings.ToUpper(strings.TrimSpace(s))); vt {
	case ValueTypeString, ValueTypeInt64, ValueTypeInt32, ValueTypeFP64, ValueTypeFP32, ValueTypeBoolean:
		return vt, nil
	}
	return "", fmt.Errorf("unknown value type %q", s)
}

// Accepts reports whether v is a valid host value for the type.
// nil is always accepted and stands for a missing value.
func (t ValueType) Accepts(v any) bool {
	if v == nil {
		return true
	}
	switch t {
	case ValueTypeString:
		_, ok := v.(string)
		return ok
	case ValueTypeInt64:
		_, ok := v.(int64)
		return ok
	case ValueTypeInt32:
		_, ok := v.(int32)
		return ok
	case ValueTypeFP64:
		_, ok := v.(float64)
		return ok
	case ValueTypeFP32:
		_, ok := v.(float32)
		return ok
	case ValueTypeBoolean:
		_, ok := v.(bool)
		return ok
	}
	return false
}
