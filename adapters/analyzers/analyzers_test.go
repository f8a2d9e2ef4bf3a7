package analyzers

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/domain/design"
	"gosim/domain/result"
	"gosim/internal/distributions"
)

var twoGroup = dataset.MustSchema(
	dataset.LabelColumn("condition", "control", "intervention"),
	dataset.FloatColumn("score"),
)

func twoGroupData(t *testing.T, control, intervention []float64) *dataset.Dataset {
	t.Helper()
	labels := make([]string, 0, len(control)+len(intervention))
	scores := append(append([]float64(nil), control...), intervention...)
	for range control {
		labels = append(labels, "control")
	}
	for range intervention {
		labels = append(labels, "intervention")
	}
	ds, err := dataset.New(twoGroup, map[string][]float64{"score": scores}, map[string][]string{"condition": labels})
	require.NoError(t, err)
	return ds
}

func get(t *testing.T, rec result.Record, field string) float64 {
	t.Helper()
	v, err := rec.Get(field)
	require.NoError(t, err)
	return v
}

func TestTTest_StudentAndWelch(t *testing.T) {
	a := NewTTestAnalyzer(distributions.NewDistributions())
	ds := twoGroupData(t, []float64{1, 2, 3, 4, 5}, []float64{2, 4, 6, 8, 10})

	student, err := a.Analyze(context.Background(), ds, design.MustParams(map[string]interface{}{"var_equal": true}))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, get(t, student, "estimate"), 1e-12)
	assert.InDelta(t, 1.8974, get(t, student, "statistic"), 1e-4)
	assert.Equal(t, 8.0, get(t, student, "df"))

	welch, err := a.Analyze(context.Background(), ds, design.Params{})
	require.NoError(t, err)
	assert.InDelta(t, 5.882, get(t, welch, "df"), 1e-3)
	assert.InDelta(t, get(t, student, "statistic"), get(t, welch, "statistic"), 1e-12, "equal n gives equal SE")

	ps, pw := get(t, student, "p_value"), get(t, welch, "p_value")
	assert.True(t, ps > 0.05 && ps < 0.10)
	assert.Greater(t, pw, ps, "fewer df, larger p")

	lo, hi := get(t, student, "ci_lower"), get(t, student, "ci_upper")
	assert.Less(t, lo, 0.0, "p > .05 so the 95% interval covers zero")
	assert.Greater(t, hi, 3.0)
	assert.InDelta(t, 3.0, (lo+hi)/2, 1e-12)
}

func TestTTest_Degenerate(t *testing.T) {
	a := NewTTestAnalyzer(distributions.NewDistributions())

	flat := twoGroupData(t, []float64{1, 1, 1}, []float64{1, 1, 1})
	_, err := a.Analyze(context.Background(), flat, design.Params{})
	assert.True(t, errors.Is(err, core.ErrDegenerate))

	oneGroup := twoGroupData(t, []float64{1, 2, 3}, nil)
	_, err = a.Analyze(context.Background(), oneGroup, design.Params{})
	assert.True(t, errors.Is(err, core.ErrInsufficientData))

	_, err = a.Analyze(context.Background(), twoGroupData(t, []float64{1, 2}, []float64{3, 5}),
		design.MustParams(map[string]interface{}{"conf_level": 1.5}))
	assert.True(t, errors.Is(err, core.ErrInvalidParameter))
}

func TestCohensD(t *testing.T) {
	a := NewCohensDAnalyzer(distributions.NewDistributions())
	ds := twoGroupData(t, []float64{1, 2, 3, 4, 5}, []float64{2, 4, 6, 8, 10})

	rec, err := a.Analyze(context.Background(), ds, design.Params{})
	require.NoError(t, err)
	assert.InDelta(t, 1.2, get(t, rec, "estimate"), 1e-12)
	assert.Less(t, get(t, rec, "ci_lower"), 1.2)
	assert.Greater(t, get(t, rec, "ci_upper"), 1.2)
}

func TestAnova(t *testing.T) {
	schema := dataset.MustSchema(dataset.LabelColumn("group", "g1", "g2", "g3"), dataset.FloatColumn("score"))
	ds, err := dataset.New(schema,
		map[string][]float64{"score": {1, 2, 3, 4, 5, 6, 7, 8, 9}},
		map[string][]string{"group": {"g1", "g1", "g1", "g2", "g2", "g2", "g3", "g3", "g3"}},
	)
	require.NoError(t, err)

	rec, err := NewAnovaAnalyzer(distributions.NewDistributions()).Analyze(context.Background(), ds, design.Params{})
	require.NoError(t, err)
	assert.InDelta(t, 27.0, get(t, rec, "statistic"), 1e-9)
	assert.Equal(t, 2.0, get(t, rec, "df_between"))
	assert.Equal(t, 6.0, get(t, rec, "df_within"))
	assert.InDelta(t, 0.9, get(t, rec, "eta_squared"), 1e-9)
	assert.InDelta(t, 0.001, get(t, rec, "p_value"), 1e-9, "F(2,6) tail is (1+2F/6)^-3")
}

func TestCorrelation(t *testing.T) {
	schema := dataset.MustSchema(dataset.FloatColumn("x"), dataset.FloatColumn("y"))
	ds, err := dataset.New(schema, map[string][]float64{
		"x": {1, 2, 3, 4, 5},
		"y": {2, 4, 5, 4, 5},
	}, nil)
	require.NoError(t, err)

	a := NewCorrelationAnalyzer(distributions.NewDistributions())
	rec, err := a.Analyze(context.Background(), ds, design.Params{})
	require.NoError(t, err)
	assert.InDelta(t, 6/math.Sqrt(60), get(t, rec, "estimate"), 1e-9)
	assert.Less(t, get(t, rec, "ci_lower"), get(t, rec, "estimate"))
	assert.Greater(t, get(t, rec, "p_value"), 0.05)

	flat, err := dataset.New(schema, map[string][]float64{"x": {1, 1, 1, 1}, "y": {1, 2, 3, 4}}, nil)
	require.NoError(t, err)
	_, err = a.Analyze(context.Background(), flat, design.Params{})
	assert.True(t, errors.Is(err, core.ErrDegenerate))
}

func TestAccepts(t *testing.T) {
	catalog := NewCatalog()
	bivariate := dataset.MustSchema(dataset.FloatColumn("x"), dataset.FloatColumn("y"))

	tt, err := catalog.Analyzer("t_test")
	require.NoError(t, err)
	assert.NoError(t, tt.Accepts(twoGroup, design.Params{}))
	assert.True(t, errors.Is(tt.Accepts(bivariate, design.Params{}), core.ErrSchemaMismatch))

	cor, err := catalog.Analyzer("correlation")
	require.NoError(t, err)
	assert.NoError(t, cor.Accepts(bivariate, design.Params{}))
	assert.Error(t, cor.Accepts(twoGroup, design.Params{}))

	_, err = catalog.Analyzer("lavaan")
	assert.True(t, errors.Is(err, core.ErrUnknownAnalyzer))
}

func TestFieldsAreValidSchemas(t *testing.T) {
	for _, a := range NewCatalog().Analyzers() {
		assert.NoError(t, a.Fields().Validate(), a.Name())
	}
}

func TestPermutation(t *testing.T) {
	schema := dataset.MustSchema(dataset.FloatColumn("x"), dataset.FloatColumn("y"))
	strong, err := dataset.New(schema, map[string][]float64{
		"x": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		"y": {1.1, 2.3, 2.9, 4.2, 5.1, 5.8, 7.2, 8.1, 8.8, 10.3},
	}, nil)
	require.NoError(t, err)

	a := NewPermutationAnalyzer()
	params := design.MustParams(map[string]interface{}{"iterations": 499})
	rec, err := a.Analyze(context.Background(), strong, params)
	require.NoError(t, err)
	assert.Greater(t, get(t, rec, "estimate"), 0.99)
	assert.InDelta(t, 1.0/500, get(t, rec, "p_value"), 1e-12, "no shuffle reaches a near-perfect r")

	again, err := a.Analyze(context.Background(), strong, params)
	require.NoError(t, err)
	assert.Equal(t, rec, again)

	flat, err := dataset.New(schema, map[string][]float64{"x": {1, 1, 1, 1}, "y": {1, 2, 3, 4}}, nil)
	require.NoError(t, err)
	_, err = a.Analyze(context.Background(), flat, design.Params{})
	assert.True(t, errors.Is(err, core.ErrDegenerate))

	bad := design.MustParams(map[string]interface{}{"iterations": 0})
	assert.Error(t, a.Accepts(schema, bad))
}
