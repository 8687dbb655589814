package operator

import (
	"context"
	"encoding/json"
	"math"

	"github.com/leapstack-labs/leapds/pkg/bridge"
	"github.com/leapstack-labs/leapds/pkg/core"
)

// Scalar is a single-value node.
type Scalar struct {
	node
}

// DataType returns SCALAR.
func (s *Scalar) DataType() core.DataType { return core.DataTypeScalar }

// Compute materializes the scalar as int64, float64, bool or string.
// A missing engine value is returned as nil.
func (s *Scalar) Compute(ctx context.Context, opts ...ComputeOption) (any, error) {
	v, _, err := compute(ctx, s, buildOptions(opts))
	return v, err
}

func (s *Scalar) materialize(res bridge.Results, name string) (any, error) {
	if err := checkType(res, name, core.DataTypeScalar); err != nil {
		return nil, err
	}
	sv, err := res.Scalar(name)
	if err != nil {
		return nil, err
	}
	return hostScalar(name, sv)
}

// hostScalar converts an engine scalar into the host type for its value
// type. Numbers may arrive as json.Number or any Go numeric type.
func hostScalar(name string, sv bridge.ScalarValue) (any, error) {
	if sv.Value == nil {
		return nil, nil
	}
	switch sv.Type {
	case core.ValueTypeInt64, core.ValueTypeInt32:
		return toInt64(name, sv.Value)
	case core.ValueTypeFP64, core.ValueTypeFP32:
		return toFloat64(name, sv.Value)
	case core.ValueTypeBoolean:
		if b, ok := sv.Value.(bool); ok {
			return b, nil
		}
	case core.ValueTypeString:
		if str, ok := sv.Value.(string); ok {
			return str, nil
		}
	default:
		return nil, conversionError(name, "unknown value type %q", sv.Type)
	}
	return nil, conversionError(name, "value %v (%T) is not a %s", sv.Value, sv.Value, sv.Type)
}

func toInt64(name string, v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, conversionError(name, "invalid integer %q", x.String())
		}
		return toInt64(name, f)
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, conversionError(name, "value %v is not integral", x)
		}
		if x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, conversionError(name, "value %v overflows int64", x)
		}
		return int64(x), nil
	}
	return 0, conversionError(name, "value %v (%T) is not an integer", v, v)
}

func toFloat64(name string, v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, conversionError(name, "invalid number %q", x.String())
		}
		return f, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		// the engine spells non-finite values as text
		switch x {
		case "NaN":
			return math.NaN(), nil
		case "Infinity", "Inf":
			return math.Inf(1), nil
		case "-Infinity", "-Inf":
			return math.Inf(-1), nil
		}
	}
	return 0, conversionError(name, "value %v (%T) is not a number", v, v)
}
