package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapds/internal/testutil"
	"github.com/leapstack-labs/leapds/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDuckDB(t *testing.T, params map[string]any) Source {
	t.Helper()
	src, err := Open(context.Background(), Config{Type: "duckdb", Params: params}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestDuckDB_QueryTypes(t *testing.T) {
	src := openDuckDB(t, nil)

	f, err := src.Query(context.Background(), `
		SELECT * FROM (VALUES
			('a', 1::BIGINT, 2::INTEGER, 1.5::DOUBLE, 0.5::FLOAT, true, 1.25::DECIMAL(5,2)),
			(NULL, NULL, NULL, NULL, NULL, NULL, NULL)
		) t(s, i64, i32, f64, f32, b, d)`)
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	assert.Equal(t, []string{"s", "i64", "i32", "f64", "f32", "b", "d"}, f.ColumnNames())
	wantTypes := []core.ValueType{
		core.ValueTypeString, core.ValueTypeInt64, core.ValueTypeInt32,
		core.ValueTypeFP64, core.ValueTypeFP32, core.ValueTypeBoolean, core.ValueTypeFP64,
	}
	for i, c := range f.Columns {
		assert.Equal(t, wantTypes[i], c.Type, c.Name)
	}
	assert.Equal(t, []any{"a", int64(1), int32(2), 1.5, float32(0.5), true, 1.25}, f.Row(0))
	assert.Equal(t, []any{nil, nil, nil, nil, nil, nil, nil}, f.Row(1))
}

func TestDuckDB_QueryEmptyResultKeepsSchema(t *testing.T) {
	src := openDuckDB(t, nil)

	f, err := src.Query(context.Background(), "SELECT 'x' AS name, 1::BIGINT AS n WHERE false")
	require.NoError(t, err)
	assert.Equal(t, 0, f.NumRows())
	assert.Equal(t, []string{"name", "n"}, f.ColumnNames())
}

func TestDuckDB_LoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "people's.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,age\nana,31\nbo,27\n"), 0600))

	src := openDuckDB(t, nil)
	f, err := src.LoadCSV(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, f.NumRows())
	assert.Equal(t, []string{"name", "age"}, f.ColumnNames())
	assert.Equal(t, core.ValueTypeString, f.Columns[0].Type)
	assert.Equal(t, []any{"ana", "bo"}, f.Columns[0].Values)
}

func TestDuckDB_Settings(t *testing.T) {
	src := openDuckDB(t, map[string]any{
		"settings": map[string]any{"threads": 2},
	})

	f, err := src.Query(context.Background(), "SELECT current_setting('threads') AS threads")
	require.NoError(t, err)
	require.Equal(t, 1, f.NumRows())
	assert.EqualValues(t, 2, f.Columns[0].Values[0])
}

func TestDuckDB_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewDuckDB(nil).Query(ctx, "SELECT 1")
	require.Error(t, err)

	src := openDuckDB(t, nil)
	_, err = src.Query(ctx, "SELECT * FROM missing_table")
	require.Error(t, err)

	_, err = src.LoadCSV(ctx, filepath.Join(t.TempDir(), "none.csv"))
	require.Error(t, err)
}

func TestParseDuckDBParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *DuckDBParams
		wantErr bool
	}{
		{name: "nil params", input: nil, want: &DuckDBParams{}},
		{
			name:  "extensions and settings",
			input: map[string]any{"extensions": []any{"json"}, "settings": map[string]any{"threads": "4"}},
			want:  &DuckDBParams{Extensions: []string{"json"}, Settings: map[string]string{"threads": "4"}},
		},
		{name: "unknown key", input: map[string]any{"secrets": []any{}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuckDBParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_UnknownSource(t *testing.T) {
	_, err := Open(context.Background(), Config{Type: "parquet-lake"}, nil)
	var unknown *UnknownSourceError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, unknown.Available, "duckdb")

	_, err = Open(context.Background(), Config{}, nil)
	require.Error(t, err)
}
