package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/leapds/internal/cli/config"
	"github.com/leapstack-labs/leapds/internal/testutil"
	"github.com/leapstack-labs/leapds/pkg/bridge"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const countPlan = `
inputs:
  people: {query: "select 'Oslo' as city union all select 'Rome'"}
nodes:
  - {name: both, op: rbind, args: [people, people]}
  - {name: n, op: nrow, args: [both]}
outputs: [n]
`

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(t *testing.T, endpoint string) *config.Config {
	t.Helper()
	return &config.Config{
		Engine:      config.EngineConfig{Endpoint: endpoint, Timeout: config.DefaultTimeout},
		JournalPath: filepath.Join(t.TempDir(), "state", "journal.db"),
		Source:      config.SourceConfig{Type: config.DefaultSourceType},
		Output:      config.DefaultOutput,
	}
}

// execute runs cmd with cfg and a test logger in its context.
func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	ctx := config.WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, testutil.NewTestLogger(t))

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

// fakeEngine answers every requested output with the integer scalar 4,
// or fails with failure when it is set.
func fakeEngine(t *testing.T, failure string) (*httptest.Server, *[]string) {
	t.Helper()
	var scripts []string
	r := chi.NewRouter()
	r.Post(bridge.ExecutePath, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Script  string   `json:"script"`
			Outputs []string `json:"outputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		scripts = append(scripts, req.Script)
		if failure != "" {
			http.Error(w, failure, http.StatusInternalServerError)
			return
		}
		results := make(map[string]any, len(req.Outputs))
		for _, name := range req.Outputs {
			results[name] = map[string]any{"data_type": "SCALAR", "value_type": "INT64", "value": 4}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &scripts
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewScriptCommand(), use: "script <plan>", flags: []string{"levels", "inputs", "watch", "upstream"}},
		{cmd: NewRunCommand(), use: "run <plan>", flags: []string{"no-journal"}},
		{cmd: NewRunsCommand(), use: "runs [id]", flags: []string{"limit"}},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			assert.NotEmpty(t, tt.cmd.Example)
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestScriptCommand(t *testing.T) {
	out, err := execute(t, NewScriptCommand(), testConfig(t, ""), writePlan(t, countPlan), "--levels", "--inputs")
	require.NoError(t, err)

	assert.Contains(t, out, strings.Join([]string{
		`V2 = read("V2", data_type="frame");`,
		"V1 = rbind(V2, V2);",
		"V0 = nrow(V1);",
	}, "\n"))
	assert.Contains(t, out, "# levels (3 statements, 2 dependencies)")
	assert.Contains(t, out, "# V2: frame")
	assert.Contains(t, out, "# 0: V2\n# 1: V1\n# 2: V0")
	assert.Contains(t, out, "# n = V0")
}

func TestScriptCommand_Upstream(t *testing.T) {
	plan := writePlan(t, countPlan)

	out, err := execute(t, NewScriptCommand(), testConfig(t, ""), plan, "--upstream", "V1")
	require.NoError(t, err)
	assert.Contains(t, out, "V2 = read(\"V2\", data_type=\"frame\");\nV1 = rbind(V2, V2);\n")
	assert.NotContains(t, out, "V0 = nrow(V1);")

	_, err = execute(t, NewScriptCommand(), testConfig(t, ""), plan, "--upstream", "V7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no statement assigns "V7"`)
}

func TestScriptCommand_Errors(t *testing.T) {
	_, err := execute(t, NewScriptCommand(), testConfig(t, ""), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := writePlan(t, "nodes:\n  - {name: n, op: nrow, args: [nope]}\noutputs: [n]\n")
	_, err = execute(t, NewScriptCommand(), testConfig(t, ""), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	cfg := testConfig(t, "")
	cfg.Source.Type = "oracle"
	_, err = execute(t, NewScriptCommand(), cfg, writePlan(t, countPlan))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source type")
}

func TestRunCommand_ExecutesAndJournals(t *testing.T) {
	srv, scripts := fakeEngine(t, "")
	cfg := testConfig(t, srv.URL)
	plan := writePlan(t, countPlan)

	out, err := execute(t, NewRunCommand(), cfg, plan)
	require.NoError(t, err)
	assert.Contains(t, out, "n = 4")
	require.Len(t, *scripts, 1)
	assert.Contains(t, (*scripts)[0], "V0 = nrow(V1);")

	cfg.Output = "json"
	out, err = execute(t, NewRunCommand(), cfg, plan)
	require.NoError(t, err)
	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "n", results[0]["name"])
	assert.Equal(t, "SCALAR", results[0]["type"])
	assert.EqualValues(t, 4, results[0]["value"])

	out, err = execute(t, NewRunsCommand(), cfg)
	require.NoError(t, err)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "success", runs[0]["status"])

	out, err = execute(t, NewRunsCommand(), cfg, runs[0]["id"].(string))
	require.NoError(t, err)
	assert.Contains(t, out, "V0 = nrow(V1);")
}

func TestRunCommand_RemoteFailure(t *testing.T) {
	srv, _ := fakeEngine(t, "engine exploded")
	cfg := testConfig(t, srv.URL)

	_, err := execute(t, NewRunCommand(), cfg, writePlan(t, countPlan))
	require.Error(t, err)
	var remote *bridge.RemoteError
	require.True(t, errors.As(err, &remote), "got %v", err)
	assert.Equal(t, http.StatusInternalServerError, remote.Status)
	assert.Contains(t, remote.Message, "engine exploded")

	out, err := execute(t, NewRunsCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "(1 runs)")
}

func TestRunCommand_NoJournal(t *testing.T) {
	srv, _ := fakeEngine(t, "")
	cfg := testConfig(t, srv.URL)

	_, err := execute(t, NewRunCommand(), cfg, writePlan(t, countPlan), "--no-journal")
	require.NoError(t, err)
	_, statErr := os.Stat(cfg.JournalPath)
	assert.True(t, os.IsNotExist(statErr), "journal should not be created")
}

func TestRunCommand_ConfigErrors(t *testing.T) {
	_, err := execute(t, NewRunCommand(), testConfig(t, ""), writePlan(t, countPlan))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no engine endpoint")

	cfg := testConfig(t, "ftp://engine")
	_, err = execute(t, NewRunCommand(), cfg, writePlan(t, countPlan))
	assert.Error(t, err)

	cfg = testConfig(t, "http://engine")
	cfg.Engine.Params = map[string]any{"retries": 3}
	_, err = execute(t, NewRunCommand(), cfg, writePlan(t, countPlan))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid engine params")
}
