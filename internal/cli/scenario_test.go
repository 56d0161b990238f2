package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	harnessScenarios = "../harness/testdata/scenarios"
	harnessGolden    = "../harness/testdata/golden"
)

func runScenarioCmd(t *testing.T, args ...string) (ScenarioReport, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--format", "json", "scenario"}, args...))
	err := cmd.Execute()

	var resp struct {
		Data ScenarioReport `json:"data"`
	}
	if out.Len() > 0 {
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	}
	return resp.Data, err
}

func TestScenarioCommandGolden(t *testing.T) {
	report, err := runScenarioCmd(t, harnessScenarios, "--golden", harnessGolden)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Passed)
	for _, s := range report.Scenarios {
		assert.True(t, s.Pass, "%s: %v", s.Name, s.Errors)
		assert.NotEmpty(t, s.Trace)
	}
}

func TestScenarioCommandFilter(t *testing.T) {
	report, err := runScenarioCmd(t, harnessScenarios, "--filter", "demand_*")
	require.NoError(t, err)
	require.Equal(t, 1, report.Total)
	assert.Equal(t, "demand_lifecycle", report.Scenarios[0].Name)
}

func TestScenarioCommandUpdate(t *testing.T) {
	golden := t.TempDir()
	scenario := filepath.Join(harnessScenarios, "demand_lifecycle.yaml")

	_, err := runScenarioCmd(t, scenario, "--golden", golden, "--update")
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(golden, "demand_lifecycle.golden"))
	require.NoError(t, err)
	expected, err := os.ReadFile(filepath.Join(harnessGolden, "demand_lifecycle.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(written))
}

func TestScenarioCommandFailures(t *testing.T) {
	dir := t.TempDir()
	failing := filepath.Join(dir, "failing.yaml")
	require.NoError(t, os.WriteFile(failing, []byte(`
name: failing
actors:
  consumer: ""
steps:
  - actor: consumer
    op: delete_demand
    id: 0
`), 0o644))
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("name: [\n"), 0o644))

	report, err := runScenarioCmd(t, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, 2, report.Failed)

	_, err = runScenarioCmd(t, filepath.Join(dir, "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runScenarioCmd(t, dir, "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
