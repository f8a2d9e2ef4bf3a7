package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gosim/adapters/postgres"
)

const welchStudy = `
name: cli-welch
seed: 7
replications: 25
generator: two_group
analyzer: t_test
fixed:
  n_control: 20
  n_intervention: 20
  mean_control: 0
axes:
  - name: mean_intervention
    values: [0, 0.8]
`

func writeStudy(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "welch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(welchStudy), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "ERROR")
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCatalog_ListsGeneratorsAndAnalyzers(t *testing.T) {
	out, err := execute(t, "catalog", "--db", "")
	require.NoError(t, err)
	for _, name := range []string{"two_group", "k_group", "t_test", "anova", "p_value"} {
		assert.Contains(t, out, name)
	}
}

func TestGrid_PrintsCellsWithoutRunning(t *testing.T) {
	out, err := execute(t, "grid", writeStudy(t), "--db", "")
	require.NoError(t, err)
	assert.Contains(t, out, "mean_intervention")
	assert.Contains(t, out, "0.8")
	assert.Contains(t, out, "2 cells × 25 reps = 50 trials")
}

func TestGrid_RejectsUnknownGenerator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	bad := strings.Replace(welchStudy, "generator: two_group", "generator: nope", 1)
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	_, err := execute(t, "grid", path, "--db", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestRun_CSVSummary(t *testing.T) {
	out, err := execute(t, "run", writeStudy(t), "--db", "", "--format", "csv", "-q")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "mean_intervention,n,failed,failure_rate,rejection_rate"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0,25,0,"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "0.8,25,0,"), lines[2])
}

func TestRun_SameSeedSameOutput(t *testing.T) {
	path := writeStudy(t)
	first, err := execute(t, "run", path, "--db", "", "--format", "csv", "-q")
	require.NoError(t, err)
	second, err := execute(t, "run", path, "--db", "", "--format", "csv", "-q")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRun_MultiverseAndWorkbook(t *testing.T) {
	xlsx := filepath.Join(t.TempDir(), "welch.xlsx")
	out, err := execute(t, "run", writeStudy(t), "--db", "", "-q", "--multiverse", "--xlsx", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, "cli-welch")
	assert.Contains(t, out, "mean_intervention = 0.8")

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "trials")
	assert.Contains(t, f.GetSheetList(), "multiverse")
}

func TestRun_RejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "run", writeStudy(t), "--db", "", "--format", "html")
	assert.Error(t, err)
}

func TestRuns_RequiresDatabase(t *testing.T) {
	_, err := execute(t, "runs", "--db", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database")
}

func TestRunThenShow_StoredRun(t *testing.T) {
	db := "sqlite://" + filepath.Join(t.TempDir(), "runs.db")
	_, err := execute(t, "run", writeStudy(t), "--db", db, "-q")
	require.NoError(t, err)

	out, err := execute(t, "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "cli-welch")

	conn, err := postgres.Open(context.Background(), db, 1)
	require.NoError(t, err)
	runs, err := postgres.NewRunRepository(conn).ListRuns(context.Background(), 1, 0)
	conn.Close()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	out, err = execute(t, "show", string(runs[0].Manifest.RunID), "--db", db, "--format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "mean_intervention,n,failed"), out)

	_, err = execute(t, "show", "missing-run", "--db", db)
	assert.Error(t, err)
}
