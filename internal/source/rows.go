package source

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapds/pkg/core"
)

// scanFrame reads all rows into a frame. typeOf maps the driver's
// database type name of each column to a frame value type.
func scanFrame(rows *sql.Rows, typeOf func(dbType string) core.ValueType) (*core.Frame, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	f := &core.Frame{Columns: make([]core.Column, len(colTypes))}
	for i, ct := range colTypes {
		f.Columns[i] = core.Column{Name: ct.Name(), Type: typeOf(ct.DatabaseTypeName()), Values: []any{}}
	}

	dest := make([]any, len(colTypes))
	ptrs := make([]any, len(colTypes))
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i := range dest {
			v, err := hostValue(f.Columns[i].Type, dest[i])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", f.Columns[i].Name, err)
			}
			f.Columns[i].Values = append(f.Columns[i].Values, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return f, nil
}

type float64er interface{ Float64() float64 }

// hostValue normalizes a scanned driver value to the Go type of vt.
func hostValue(vt core.ValueType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch vt {
	case core.ValueTypeInt64:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int32:
			return int64(x), nil
		case uint32:
			return int64(x), nil
		case uint64:
			return int64(x), nil //nolint:gosec // values above MaxInt64 are not representable in frames
		case interface{ Int64() int64 }:
			return x.Int64(), nil
		}
	case core.ValueTypeInt32:
		switch x := v.(type) {
		case int32:
			return x, nil
		case int64:
			// database/sql widens some integer columns
			return int32(x), nil //nolint:gosec // column type bounds the value
		case int16:
			return int32(x), nil
		case int8:
			return int32(x), nil
		case uint16:
			return int32(x), nil
		case uint8:
			return int32(x), nil
		}
	case core.ValueTypeFP64:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float64er:
			return x.Float64(), nil
		case string:
			return strconv.ParseFloat(x, 64)
		case []byte:
			return strconv.ParseFloat(string(x), 64)
		}
	case core.ValueTypeFP32:
		switch x := v.(type) {
		case float32:
			return x, nil
		case float64:
			return float32(x), nil
		}
	case core.ValueTypeBoolean:
		if x, ok := v.(bool); ok {
			return x, nil
		}
	case core.ValueTypeString:
		switch x := v.(type) {
		case string:
			return x, nil
		case []byte:
			return string(x), nil
		case time.Time:
			return x.Format(time.RFC3339Nano), nil
		}
		return fmt.Sprint(v), nil
	}
	return nil, fmt.Errorf("unexpected %T value for %s column", v, vt)
}
