package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/discrete/internal/store"
)

// enumerateToDB enumerates the model at path into db and returns the run ID.
func enumerateToDB(t *testing.T, path, db string, extra ...string) string {
	t.Helper()
	args := append([]string{"--format", "json", "enumerate", path, "--db", db}, extra...)
	out, _, _ := execute(t, args...)
	resp := decodeEnumerate(t, out)
	require.NotEmpty(t, resp.RunID)
	return resp.RunID
}

func TestRunsEmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")
}

func TestRunsListsInOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "coins.cue", coinsModel)
	db := filepath.Join(dir, "runs.db")

	first := enumerateToDB(t, path, db)
	second := enumerateToDB(t, path, db, "--max-paths", "1")

	out, _, err := execute(t, "--format", "json", "runs", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)

	assert.Equal(t, first, resp.Data[0].ID)
	assert.Equal(t, store.RunCompleted, resp.Data[0].Status)
	assert.Equal(t, int64(4), resp.Data[0].PathCount)

	assert.Equal(t, second, resp.Data[1].ID)
	assert.Equal(t, store.RunFailed, resp.Data[1].Status)
	assert.Equal(t, int64(1), resp.Data[1].PathCount)
	assert.Contains(t, resp.Data[1].Error, "QUOTA_EXCEEDED")
}

func TestRunsMissingDatabase(t *testing.T) {
	_, _, err := execute(t, "runs", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestRunsMissingDatabaseFlag(t *testing.T) {
	_, _, err := execute(t, "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}

func TestShowRun(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "weather.cue", weatherModel)
	db := filepath.Join(dir, "runs.db")
	runID := enumerateToDB(t, path, db)

	out, _, err := execute(t, "show", "--db", db, "--run", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "Run "+runID)
	assert.Contains(t, out, "model:  weather")
	assert.Contains(t, out, "status: completed")
	assert.Contains(t, out, "graph:  flat, order: lifo, seed: 0")
	assert.Contains(t, out, `[1] {rain=0 sprinkler="off"} weight=0.480000`)
	assert.NotContains(t, out, "(observed)")

	out, _, err = execute(t, "--verbose", "show", "--db", db, "--run", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "wet=1 (observed)")
}

func TestShowRunJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "coins.cue", coinsModel)
	db := filepath.Join(dir, "runs.db")
	runID := enumerateToDB(t, path, db)

	out, _, err := execute(t, "--format", "json", "show", "--db", db, "--run", runID)
	require.NoError(t, err)

	var resp struct {
		Data struct {
			Run   store.Run `json:"run"`
			Paths []struct {
				ID     string  `json:"id"`
				Seq    int64   `json:"seq"`
				Weight float64 `json:"weight"`
			} `json:"paths"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, runID, resp.Data.Run.ID)
	require.Len(t, resp.Data.Paths, 4)
	for i, p := range resp.Data.Paths {
		assert.Equal(t, int64(i+1), p.Seq)
	}
	assert.InDelta(t, 0.42, resp.Data.Paths[1].Weight, 1e-12)
}

func TestShowRunNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "coins.cue", coinsModel)
	db := filepath.Join(dir, "runs.db")
	enumerateToDB(t, path, db)

	out, _, err := execute(t, "show", "--db", db, "--run", "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestFormatWeightList(t *testing.T) {
	assert.Equal(t, "0.250000", formatWeightList([]float64{0.25}))
	assert.Equal(t, "[0.25 0.75]", formatWeightList([]float64{0.25, 0.75}))
}

func TestShowWhere(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "weather.cue", weatherModel)
	db := filepath.Join(dir, "runs.db")
	runID := enumerateToDB(t, path, db)

	out, _, err := execute(t, "show", "--db", db, "--run", runID, "--where", "rain = 1")
	require.NoError(t, err)
	assert.Contains(t, out, "where:  rain = 1 (2 of 4 path(s))")
	assert.Contains(t, out, `{rain=1 sprinkler="off"}`)
	assert.Contains(t, out, `{rain=1 sprinkler="on"}`)
	assert.NotContains(t, out, "{rain=0")

	out, _, err = execute(t, "show", "--db", db, "--run", runID, "--where", `rain = 0 AND sprinkler = "on"`)
	require.NoError(t, err)
	assert.Contains(t, out, "(1 of 4 path(s))")

	// Observed sites are stored, so they can be filtered on too.
	out, _, err = execute(t, "show", "--db", db, "--run", runID, "--where", "wet = 1")
	require.NoError(t, err)
	assert.Contains(t, out, "(4 of 4 path(s))")
}

func TestShowWhereJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "weather.cue", weatherModel)
	db := filepath.Join(dir, "runs.db")
	runID := enumerateToDB(t, path, db)

	out, _, err := execute(t, "--format", "json", "show", "--db", db, "--run", runID,
		"--where", "sprinkler in (on) and rain in (0, 1)")
	require.NoError(t, err)

	var resp struct {
		Data struct {
			Filter string `json:"filter"`
			Paths  []struct {
				Seq        int64          `json:"seq"`
				Assignment map[string]any `json:"assignment"`
			} `json:"paths"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "sprinkler in (on) and rain in (0, 1)", resp.Data.Filter)
	require.Len(t, resp.Data.Paths, 2)
	assert.Less(t, resp.Data.Paths[0].Seq, resp.Data.Paths[1].Seq)
	for _, p := range resp.Data.Paths {
		assert.Equal(t, "on", p.Assignment["sprinkler"])
	}
}

func TestShowWhereInvalid(t *testing.T) {
	tests := []struct {
		name  string
		where string
		want  string
	}{
		{"syntax", "rain > 1", "no = found"},
		{"float", "rain = 0.5", "float value"},
		{"not equals", "rain != 1", "!="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The filter is checked before the database is opened.
			out, _, err := execute(t, "show", "--db", "/nonexistent/runs.db", "--run", "r1", "--where", tt.where)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E008]")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
