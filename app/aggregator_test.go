package app

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosim/domain/core"
	"gosim/domain/design"
	"gosim/domain/result"
	"gosim/domain/summary"
)

var aggFields = result.Schema{"estimate", "lower", "upper", "p_value"}

// tableFrom builds a result table whose record i holds values[i]; a nil
// entry becomes a missing record
func tableFrom(t *testing.T, ct *design.ConditionTable, values [][]float64) *result.Table {
	t.Helper()
	require.Equal(t, ct.Len(), len(values))
	tbl := result.NewTable(aggFields, ct.Len())
	for i, cond := range ct.Rows {
		tbl.Trials[i].Condition = cond
		if values[i] == nil {
			tbl.Trials[i].Record = result.Missing(aggFields, "failed")
			continue
		}
		tbl.Trials[i].Record = result.Record{Schema: aggFields, Values: values[i]}
	}
	return tbl
}

func TestAggregate_OneRowPerCell(t *testing.T) {
	ct, err := design.Cross(design.Params{}, []design.Axis{
		design.MustAxis("n", 10, 20, 30),
		design.MustAxis("delta", 0.0, 0.5),
	}, 4)
	require.NoError(t, err)

	values := make([][]float64, ct.Len())
	for i := range values {
		values[i] = []float64{1, 0, 2, 0.5}
	}
	sum, err := Aggregate(ct, tableFrom(t, ct, values), []summary.Metric{summary.RejectionRate("power", 0.05)})
	require.NoError(t, err)

	assert.Len(t, sum.Rows, 6)
	assert.Equal(t, []string{"n", "delta"}, sum.Axes)
	assert.Equal(t, []string{"power"}, sum.Metrics)
	for i, row := range sum.Rows {
		assert.Equal(t, i, row.Cell)
		assert.Equal(t, 4, row.N)
		assert.Equal(t, 0, row.Failed)
		assert.Equal(t, 2, row.Params.Len(), "only axis values are kept")
		assert.False(t, row.Params.Has(design.RepColumn))
	}
	assert.Equal(t, "n=20,delta=0.5", sum.Rows[3].Key)
}

func TestAggregate_Metrics(t *testing.T) {
	ct, err := design.Cross(design.MustParams(map[string]interface{}{"mu": 1.0}), nil, 4)
	require.NoError(t, err)

	tbl := tableFrom(t, ct, [][]float64{
		{1.0, 0.0, 2.0, 0.01},
		{2.0, 1.5, 2.5, 0.20},
		{3.0, 2.0, 4.0, 0.03},
		{4.0, -1.0, 0.5, 0.90},
	})
	metrics := []summary.Metric{
		summary.RejectionRate("rejection", 0.05),
		{Name: "large", Kind: summary.KindProportion, Field: "p_value", Threshold: 0.5, Above: true},
		{Name: "mean", Kind: summary.KindMean, Field: "estimate"},
		{Name: "bias", Kind: summary.KindBias, Field: "estimate", Truth: &summary.Truth{Param: "mu"}},
		{Name: "emp_se", Kind: summary.KindEmpiricalSE, Field: "estimate"},
		{Name: "coverage", Kind: summary.KindCoverage, Lower: "lower", Upper: "upper", Truth: &summary.Truth{Param: "mu"}},
	}

	sum, err := Aggregate(ct, tbl, metrics)
	require.NoError(t, err)
	require.Len(t, sum.Rows, 1)
	m := sum.Rows[0].Metrics

	assert.InDelta(t, 0.5, m["rejection"].Value, 1e-12)
	assert.InDelta(t, math.Sqrt(0.25/4), m["rejection"].MCSE, 1e-12)
	assert.InDelta(t, 0.25, m["large"].Value, 1e-12)

	sd := math.Sqrt(5.0 / 3.0)
	assert.InDelta(t, 2.5, m["mean"].Value, 1e-12)
	assert.InDelta(t, sd/2, m["mean"].MCSE, 1e-12)
	assert.InDelta(t, 1.5, m["bias"].Value, 1e-12)
	assert.InDelta(t, sd/2, m["bias"].MCSE, 1e-12)
	assert.InDelta(t, sd, m["emp_se"].Value, 1e-12)
	assert.InDelta(t, sd/math.Sqrt(6), m["emp_se"].MCSE, 1e-12)

	// only [0, 2] covers 1.0
	assert.InDelta(t, 0.25, m["coverage"].Value, 1e-12)
}

func TestAggregate_MissingRecordsExcluded(t *testing.T) {
	ct, err := design.Cross(design.Params{}, nil, 3)
	require.NoError(t, err)

	tbl := tableFrom(t, ct, [][]float64{
		{1, 0, 0, 0.01},
		nil,
		{3, 0, 0, math.NaN()},
	})
	metrics := []summary.Metric{
		summary.RejectionRate("rejection", 0.05),
		{Name: "mean", Kind: summary.KindMean, Field: "estimate"},
		{Name: "emp_se", Kind: summary.KindEmpiricalSE, Field: "p_value"},
	}
	sum, err := Aggregate(ct, tbl, metrics)
	require.NoError(t, err)

	row := sum.Rows[0]
	assert.Equal(t, 3, row.N)
	assert.Equal(t, 1, row.Failed)
	assert.InDelta(t, 1.0/3, row.FailureRate, 1e-12)
	assert.Equal(t, 1.0, row.Metrics["rejection"].Value, "the NaN p-value does not count")
	assert.Equal(t, 2.0, row.Metrics["mean"].Value)
	assert.True(t, math.IsNaN(row.Metrics["emp_se"].Value), "one usable value has no spread")
}

func TestAggregate_AllMissing(t *testing.T) {
	ct, err := design.Cross(design.Params{}, nil, 2)
	require.NoError(t, err)

	sum, err := Aggregate(ct, tableFrom(t, ct, [][]float64{nil, nil}), []summary.Metric{summary.RejectionRate("r", 0.05)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, sum.Rows[0].FailureRate)
	assert.True(t, math.IsNaN(sum.Rows[0].Metrics["r"].Value))
}

func TestAggregate_Rejects(t *testing.T) {
	ct, err := design.Cross(design.Params{}, nil, 2)
	require.NoError(t, err)
	tbl := tableFrom(t, ct, [][]float64{{1, 0, 0, 0}, {1, 0, 0, 0}})

	_, err = Aggregate(ct, tbl, []summary.Metric{{Name: "x", Kind: summary.KindMean, Field: "nope"}})
	assert.ErrorIs(t, err, core.ErrInvalidStudy)

	_, err = Aggregate(ct, &result.Table{Schema: aggFields}, nil)
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)

	_, err = Aggregate(ct, tbl, []summary.Metric{{Name: "b", Kind: summary.KindBias, Field: "estimate", Truth: &summary.Truth{Param: "missing"}}})
	assert.ErrorIs(t, err, core.ErrParameterNotFound)
}
