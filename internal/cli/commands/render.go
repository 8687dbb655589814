package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapds/internal/journal"
	"github.com/leapstack-labs/leapds/pkg/core"
)

// result is one materialized plan output.
type result struct {
	Name  string
	Value any
}

func renderResults(w io.Writer, results []result, format string) error {
	if format == "json" {
		out := make([]map[string]any, len(results))
		for i, r := range results {
			out[i] = jsonResult(r)
		}
		return renderJSON(w, out)
	}

	for i, r := range results {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		switch v := r.Value.(type) {
		case *core.Frame:
			_, _ = fmt.Fprintf(w, "%s:\n", r.Name)
			renderFrame(w, v)
		case *core.Matrix:
			_, _ = fmt.Fprintf(w, "%s:\n", r.Name)
			renderMatrix(w, v)
		default:
			_, _ = fmt.Fprintf(w, "%s = %s\n", r.Name, formatValue(v))
		}
	}
	return nil
}

func renderFrame(w io.Writer, f *core.Frame) {
	if f.NumRows() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, f.NumCols())
	for i, c := range f.Columns {
		header[i] = c.Name
	}
	t.AppendHeader(header)

	for i := 0; i < f.NumRows(); i++ {
		values := f.Row(i)
		row := make(table.Row, len(values))
		for j, v := range values {
			row[j] = formatValue(v)
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", f.NumRows())
}

func renderMatrix(w io.Writer, m *core.Matrix) {
	if m.Rows == 0 || m.Cols == 0 {
		_, _ = fmt.Fprintf(w, "(%dx%d matrix)\n", m.Rows, m.Cols)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, m.Cols)
	for j := range header {
		header[j] = "C" + strconv.Itoa(j+1)
	}
	t.AppendHeader(header)

	for i := 0; i < m.Rows; i++ {
		row := make(table.Row, m.Cols)
		for j := range row {
			row[j] = formatValue(m.At(i, j))
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%dx%d matrix)\n", m.Rows, m.Cols)
}

func renderRuns(w io.Writer, entries []*journal.Entry, format string) error {
	if format == "json" {
		out := make([]map[string]any, len(entries))
		for i, e := range entries {
			out[i] = map[string]any{
				"id":          e.ID,
				"status":      e.Status,
				"started_at":  e.StartedAt.Format(time.RFC3339),
				"duration_ms": e.Duration.Milliseconds(),
				"inputs":      e.Inputs,
				"outputs":     e.Outputs,
				"error":       e.Error,
			}
		}
		return renderJSON(w, out)
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "(0 runs)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Status", "Started", "Duration", "Outputs", "Error"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.ID,
			string(e.Status),
			e.StartedAt.Local().Format(time.DateTime),
			e.Duration.Round(time.Millisecond).String(),
			len(e.Outputs),
			e.Error,
		})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d runs)\n", len(entries))
	return nil
}

func jsonResult(r result) map[string]any {
	out := map[string]any{"name": r.Name}
	switch v := r.Value.(type) {
	case *core.Frame:
		rows := make([][]any, v.NumRows())
		for i := range rows {
			rows[i] = v.Row(i)
		}
		out["type"] = string(core.DataTypeFrame)
		out["columns"] = v.ColumnNames()
		out["rows"] = rows
	case *core.Matrix:
		out["type"] = string(core.DataTypeMatrix)
		out["shape"] = []int{v.Rows, v.Cols}
		out["data"] = v.Data
	default:
		out["type"] = string(core.DataTypeScalar)
		out["value"] = v
	}
	return out
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
