package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrame_Validates(t *testing.T) {
	tests := []struct {
		name    string
		columns []Column
		wantErr string
	}{
		{
			name: "valid mixed types",
			columns: []Column{
				{Name: "id", Type: ValueTypeInt64, Values: []any{int64(1), int64(2)}},
				{Name: "city", Type: ValueTypeString, Values: []any{"Graz", nil}},
			},
		},
		{
			name: "ragged columns",
			columns: []Column{
				{Name: "id", Type: ValueTypeInt64, Values: []any{int64(1), int64(2)}},
				{Name: "city", Type: ValueTypeString, Values: []any{"Graz"}},
			},
			wantErr: `column "city" has 1 values, expected 2`,
		},
		{
			name: "wrong value type",
			columns: []Column{
				{Name: "score", Type: ValueTypeFP64, Values: []any{1}},
			},
			wantErr: "int is not a FP64 value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFrame(tt.columns...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, f.NumRows())
			assert.Equal(t, 2, f.NumCols())
			assert.Equal(t, []string{"id", "city"}, f.ColumnNames())
			assert.Equal(t, []any{int64(2), nil}, f.Row(1))
		})
	}
}

func TestFrame_CloneIsDeep(t *testing.T) {
	f, err := NewFrame(Column{Name: "a", Type: ValueTypeString, Values: []any{"x", "y"}})
	require.NoError(t, err)

	c := f.Clone()
	c.Columns[0].Values[0] = "changed"
	c.Columns[0].Name = "b"

	assert.Equal(t, "x", f.Columns[0].Values[0])
	assert.Equal(t, "a", f.Columns[0].Name)
	assert.Nil(t, (*Frame)(nil).Clone())
	assert.Equal(t, 0, (*Frame)(nil).NumRows())
}

func TestMatrix(t *testing.T) {
	m, err := NewMatrix(2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 3.0, m.At(1, 0))

	c := m.Clone()
	c.Data[0] = 9
	assert.Equal(t, 1.0, m.At(0, 0))

	_, err = NewMatrix(2, 3, []float64{1})
	assert.Error(t, err)

	v := ColumnVector(2, 0)
	assert.Equal(t, 2, v.Rows)
	assert.Equal(t, 1, v.Cols)
	assert.Equal(t, []float64{2, 0}, v.Data)
}

func TestParseValueType(t *testing.T) {
	vt, err := ParseValueType(" fp64 ")
	require.NoError(t, err)
	assert.Equal(t, ValueTypeFP64, vt)

	_, err = ParseValueType("decimal")
	assert.Error(t, err)
}

func TestErrors_MatchSentinels(t *testing.T) {
	tests := []struct {
		err    error
		target error
	}{
		{err: &ValueError{Op: "index", Msg: "indices must be >= 0"}, target: ErrValue},
		{err: &NotImplementedError{Feature: "double slicing"}, target: ErrNotImplemented},
		{err: &IllegalStateError{Msg: "dangling"}, target: ErrIllegalState},
		{err: &ConversionError{Name: "V0", Want: DataTypeFrame, Got: DataTypeScalar}, target: ErrConversion},
	}
	for _, tt := range tests {
		assert.True(t, errors.Is(tt.err, tt.target), tt.err.Error())
	}

	err := &ConversionError{Name: "V0", Want: DataTypeFrame, Got: DataTypeScalar}
	assert.Equal(t, "cannot convert result V0: engine returned SCALAR, node expects FRAME", err.Error())
}
