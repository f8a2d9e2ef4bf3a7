package app

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosim/domain/core"
	"gosim/domain/design"
	"gosim/domain/summary"
	"gosim/internal/testkit"
)

func newSimulator(kit *testkit.TestKit) *SimulationService {
	return NewSimulationService(kit.RNGAdapter(), kit.Logger())
}

func twoGroupRequest(t *testing.T, kit *testkit.TestKit, reps int, seed int64, workers int) RunRequest {
	t.Helper()
	st := testkit.TwoGroupStudy(reps, seed)
	grid, err := st.Grid()
	require.NoError(t, err)
	gen, err := kit.Generators().Generator(st.Generator)
	require.NoError(t, err)
	an, err := kit.Analyzers().Analyzer(st.Analyzer)
	require.NoError(t, err)
	return RunRequest{Table: grid, Generator: gen, Analyzer: an, Seed: seed, Workers: workers}
}

func TestSimulationService_OneRecordPerRow(t *testing.T) {
	kit := testkit.NewTestKit()
	req := twoGroupRequest(t, kit, 25, 7, 4)

	tbl, err := newSimulator(kit).Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.Table.Len(), tbl.Len())
	assert.Equal(t, 0, tbl.FailureCount())
	for i, trial := range tbl.Trials {
		assert.Equal(t, i, trial.Condition.Row)
		assert.Len(t, trial.Record.Values, len(tbl.Schema))
		assert.Nil(t, trial.Data, "datasets are dropped unless retained")
	}
}

func TestSimulationService_IdenticalAcrossWorkerCounts(t *testing.T) {
	kit := testkit.NewTestKit()
	sim := newSimulator(kit)

	serial, err := sim.Run(context.Background(), twoGroupRequest(t, kit, 40, 2024, 1))
	require.NoError(t, err)
	parallel, err := sim.Run(context.Background(), twoGroupRequest(t, kit, 40, 2024, 8))
	require.NoError(t, err)
	again, err := sim.Run(context.Background(), twoGroupRequest(t, kit, 40, 2024, 3))
	require.NoError(t, err)

	assert.True(t, serial.Equal(parallel), "serial and parallel runs differ")
	assert.True(t, serial.Equal(again), "reruns differ")

	other, err := sim.Run(context.Background(), twoGroupRequest(t, kit, 40, 2025, 8))
	require.NoError(t, err)
	assert.False(t, serial.Equal(other), "different seeds gave identical tables")

	st := testkit.TwoGroupStudy(40, 2024)
	grid, err := st.Grid()
	require.NoError(t, err)
	a, err := Aggregate(grid, serial, st.Metrics)
	require.NoError(t, err)
	b, err := Aggregate(grid, parallel, st.Metrics)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSimulationService_RetainData(t *testing.T) {
	kit := testkit.NewTestKit()
	req := twoGroupRequest(t, kit, 2, 1, 2)
	req.RetainData = true

	tbl, err := newSimulator(kit).Run(context.Background(), req)
	require.NoError(t, err)
	for _, trial := range tbl.Trials {
		require.NotNil(t, trial.Data)
		assert.Equal(t, 100, trial.Data.Len())
	}
}

func TestSimulationService_Progress(t *testing.T) {
	kit := testkit.NewTestKit()
	req := twoGroupRequest(t, kit, 10, 3, 4)

	var calls, last atomic.Int64
	req.OnProgress = func(done, total int) {
		calls.Add(1)
		if int64(done) > last.Load() {
			last.Store(int64(done))
		}
		assert.Equal(t, 40, total)
	}

	_, err := newSimulator(kit).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(40), calls.Load())
	assert.Equal(t, int64(40), last.Load())
}

func flakyRequest(t *testing.T, reps int, analyzer *testkit.FlakyAnalyzer) RunRequest {
	t.Helper()
	grid, err := design.Cross(design.Params{}, nil, reps)
	require.NoError(t, err)
	return RunRequest{Table: grid, Generator: testkit.ConstantGenerator{}, Analyzer: analyzer, Seed: 1, Workers: 2}
}

func TestSimulationService_IsolatesFailures(t *testing.T) {
	tests := []struct {
		name   string
		panics bool
		reason string
	}{
		{"error", false, "stub failure"},
		{"panic", true, "panicked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kit := testkit.NewTestKit()
			req := flakyRequest(t, 5, &testkit.FlakyAnalyzer{FailOn: map[int]bool{2: true}, Panic: tt.panics})

			tbl, err := newSimulator(kit).Run(context.Background(), req)
			require.NoError(t, err)
			require.Equal(t, 5, tbl.Len())
			assert.Equal(t, 1, tbl.FailureCount())

			failed := tbl.Trials[1]
			assert.True(t, failed.Record.IsMissing())
			assert.Contains(t, failed.Err, tt.reason)
			assert.Contains(t, failed.Record.Reason, tt.reason)

			sum, err := Aggregate(req.Table, tbl, []summary.Metric{{Name: "mean_rep", Kind: summary.KindMean, Field: "rep"}})
			require.NoError(t, err)
			require.Len(t, sum.Rows, 1)
			row := sum.Rows[0]
			assert.Equal(t, 5, row.N)
			assert.Equal(t, 1, row.Failed)
			assert.InDelta(t, 0.2, row.FailureRate, 1e-12)
			assert.InDelta(t, 3.25, row.Metrics["mean_rep"].Value, 1e-12)
		})
	}
}

func TestSimulationService_FailFast(t *testing.T) {
	kit := testkit.NewTestKit()
	req := flakyRequest(t, 20, &testkit.FlakyAnalyzer{FailOn: map[int]bool{3: true}})
	req.FailFast = true

	tbl, err := newSimulator(kit).Run(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, tbl)

	var trialErr *TrialError
	require.True(t, errors.As(err, &trialErr))
	assert.Equal(t, 2, trialErr.Row)
	assert.Equal(t, 3, trialErr.Rep)
	assert.ErrorIs(t, err, testkit.ErrStub)
}

func TestSimulationService_Cancelled(t *testing.T) {
	kit := testkit.NewTestKit()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSimulator(kit).Run(ctx, twoGroupRequest(t, kit, 10, 1, 2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulationService_InvalidParamsBecomeMissing(t *testing.T) {
	kit := testkit.NewTestKit()
	gen, err := kit.Generators().Generator("two_group")
	require.NoError(t, err)
	an, err := kit.Analyzers().Analyzer("t_test")
	require.NoError(t, err)

	grid, err := design.Cross(
		design.MustParams(map[string]interface{}{"n_intervention": 10}),
		[]design.Axis{design.MustAxis("n_control", 0, 10)},
		3,
	)
	require.NoError(t, err)

	tbl, err := newSimulator(kit).Run(context.Background(), RunRequest{Table: grid, Generator: gen, Analyzer: an, Seed: 9})
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.FailureCount())
	for _, trial := range tbl.Trials[:3] {
		assert.True(t, strings.Contains(trial.Err, "n_control"), trial.Err)
	}
	for _, trial := range tbl.Trials[3:] {
		assert.False(t, trial.Failed())
	}
}

func TestSimulationService_RejectsBadRequest(t *testing.T) {
	kit := testkit.NewTestKit()
	_, err := newSimulator(kit).Run(context.Background(), RunRequest{})
	assert.Error(t, err)

	req := twoGroupRequest(t, kit, 2, 1, 1)
	req.Table.Rows = req.Table.Rows[1:]
	_, err = newSimulator(kit).Run(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrInvalidGrid)
}
