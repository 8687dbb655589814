package commands

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/leapstack-labs/leapds/internal/journal"
	"github.com/leapstack-labs/leapds/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults(t *testing.T) []result {
	t.Helper()
	f, err := core.NewFrame(
		core.Column{Name: "city", Type: core.ValueTypeString, Values: []any{"Oslo", nil}},
		core.Column{Name: "n", Type: core.ValueTypeInt64, Values: []any{int64(1), int64(2)}},
	)
	require.NoError(t, err)
	m, err := core.NewMatrix(2, 2, []float64{1, 2.5, 3, 4})
	require.NoError(t, err)
	return []result{
		{Name: "people", Value: f},
		{Name: "encoded", Value: m},
		{Name: "n", Value: int64(2)},
	}
}

func TestRenderResults_Table(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, renderResults(buf, sampleResults(t), "table"))
	out := buf.String()

	assert.Contains(t, out, "people:")
	assert.Contains(t, out, "city")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")
	assert.Contains(t, out, "encoded:")
	assert.Contains(t, out, "C2")
	assert.Contains(t, out, "2.5")
	assert.Contains(t, out, "(2x2 matrix)")
	assert.Contains(t, out, "n = 2")
}

func TestRenderResults_Empty(t *testing.T) {
	f, err := core.NewFrame(core.Column{Name: "a", Type: core.ValueTypeInt64})
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	require.NoError(t, renderResults(buf, []result{{Name: "f", Value: f}, {Name: "s", Value: nil}}, "table"))
	assert.Contains(t, buf.String(), "(0 rows)")
	assert.Contains(t, buf.String(), "s = NULL")
}

func TestRenderResults_JSON(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, renderResults(buf, sampleResults(t), "json"))

	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 3)

	assert.Equal(t, "FRAME", out[0]["type"])
	assert.Equal(t, []any{"city", "n"}, out[0]["columns"])
	assert.Equal(t, []any{[]any{"Oslo", float64(1)}, []any{nil, float64(2)}}, out[0]["rows"])

	assert.Equal(t, "MATRIX", out[1]["type"])
	assert.Equal(t, []any{float64(2), float64(2)}, out[1]["shape"])

	assert.Equal(t, "SCALAR", out[2]["type"])
	assert.EqualValues(t, 2, out[2]["value"])
}

func TestRenderRuns(t *testing.T) {
	entries := []*journal.Entry{{
		ID:        "run-1",
		Script:    "V0 = nrow(V1);",
		Outputs:   []string{"V0"},
		Status:    journal.StatusFailed,
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Error:     "boom",
	}}

	buf := new(bytes.Buffer)
	require.NoError(t, renderRuns(buf, entries, "table"))
	assert.Contains(t, buf.String(), "run-1")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "1.5s")
	assert.Contains(t, buf.String(), "(1 runs)")

	buf.Reset()
	require.NoError(t, renderRuns(buf, entries, "json"))
	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "failed", out[0]["status"])
	assert.EqualValues(t, 1500, out[0]["duration_ms"])
	assert.Equal(t, "2026-01-02T03:04:05Z", out[0]["started_at"])

	buf.Reset()
	require.NoError(t, renderRuns(buf, nil, "table"))
	assert.Equal(t, "(0 runs)\n", buf.String())
}
