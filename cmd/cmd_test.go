package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var twoArea = filepath.Join("..", "infra", "casefile", "testdata", "two_area.yaml")

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func tempConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "runlog:\n  backend: jsonl\n  path: " + filepath.Join(dir, "runs.jsonl") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return dir, path
}

func TestValidateCommand(t *testing.T) {
	_, cfg := tempConfig(t)
	out, err := execute(t, "validate", "-c", cfg, twoArea)
	require.NoError(t, err)
	assert.Contains(t, out, "case two-area is valid: 6 periods, 2 buses, 2 generators")
	assert.Contains(t, out, "integer")
}

func TestValidateCommandRejectsBadCase(t *testing.T) {
	dir, cfg := tempConfig(t)
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("periods: 2\nbuses:\n  - id: b1\n    demand: [1]\n"), 0o600))
	_, err := execute(t, "validate", "-c", cfg, bad)
	assert.ErrorContains(t, err, "demand has 1 values, want 2")
}

func TestSolveAndRunsCommands(t *testing.T) {
	dir, cfg := tempConfig(t)
	results := filepath.Join(dir, "results.json")
	csvPath := filepath.Join(dir, "schedule.csv")
	lpPath := filepath.Join(dir, "model.lp")

	out, err := execute(t, "solve", "-c", cfg, "--out", results, "--csv", csvPath, "--write-lp", lpPath, twoArea)
	require.NoError(t, err)
	assert.Contains(t, out, "case two-area solved by bnb")
	assert.Contains(t, out, "total cost:")

	data, err := os.ReadFile(results)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "transmission_lines")
	assert.Contains(t, doc["generators"], "g1")

	data, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "kind,id,field,period,value\n"))

	data, err = os.ReadFile(lpPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Minimize")

	out, err = execute(t, "runs", "-c", cfg, "--case", "two-area")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "optimal")

	_, err = execute(t, "runs", "-c", cfg, "--since", "yesterday")
	assert.ErrorContains(t, err, "--since")
}
