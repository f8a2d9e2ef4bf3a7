package multiverse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosim/domain/core"
	"gosim/domain/design"
	"gosim/domain/summary"
)

func sampleSummary() *summary.Table {
	row := func(cell int, n int, equal bool, power, mcse float64) summary.Row {
		return summary.Row{
			Cell:   cell,
			Key:    design.MustParams(map[string]interface{}{"n": n, "var_equal": equal}).Format(),
			Params: design.MustParams(map[string]interface{}{"n": n, "var_equal": equal}),
			N:      100,
			Metrics: map[string]summary.Estimate{
				"power": {Value: power, MCSE: mcse},
				"lo":    {Value: power - 0.1},
				"hi":    {Value: power + 0.1},
			},
		}
	}
	return &summary.Table{
		Axes:    []string{"n", "var_equal"},
		Metrics: []string{"power", "lo", "hi"},
		Rows: []summary.Row{
			row(0, 20, true, 0.30, 0.01),
			row(1, 20, false, 0.25, 0.01),
			row(2, 50, true, 0.70, 0.02),
			row(3, 50, false, 0.65, 0.02),
		},
	}
}

func TestBuild_RankedByOutcome(t *testing.T) {
	mv, err := Build(sampleSummary(), Options{Outcome: "power"})
	require.NoError(t, err)

	require.Len(t, mv.Points, 4)
	cells := make([]int, len(mv.Points))
	for i, p := range mv.Points {
		assert.Equal(t, i+1, p.Rank)
		cells[i] = p.Cell
	}
	assert.Equal(t, []int{1, 0, 3, 2}, cells)

	first := mv.Points[0]
	assert.InDelta(t, 0.25-1.959964*0.01, first.Lower, 1e-5)
	assert.InDelta(t, 0.25+1.959964*0.01, first.Upper, 1e-5)

	// two levels for each of two columns
	require.Len(t, mv.Panel, 4)
	assert.Equal(t, PanelRow{Column: "n", Level: "20", Marks: []bool{true, true, false, false}}, mv.Panel[0])
	assert.Equal(t, PanelRow{Column: "n", Level: "50", Marks: []bool{false, false, true, true}}, mv.Panel[1])
	assert.Equal(t, PanelRow{Column: "var_equal", Level: "true", Marks: []bool{false, true, false, true}}, mv.Panel[2])
}

func TestBuild_Options(t *testing.T) {
	t.Run("descending with named bounds", func(t *testing.T) {
		mv, err := Build(sampleSummary(), Options{Outcome: "power", Lower: "lo", Upper: "hi", Descending: true})
		require.NoError(t, err)
		assert.Equal(t, 2, mv.Points[0].Cell)
		assert.InDelta(t, 0.6, mv.Points[0].Lower, 1e-12)
		assert.InDelta(t, 0.8, mv.Points[0].Upper, 1e-12)
	})

	t.Run("explicit order and columns", func(t *testing.T) {
		mv, err := Build(sampleSummary(), Options{Outcome: "power", Order: []int{3, 2, 1, 0}, Columns: []string{"var_equal"}})
		require.NoError(t, err)
		assert.Equal(t, 3, mv.Points[0].Cell)
		require.Len(t, mv.Panel, 2)
		assert.Equal(t, "var_equal", mv.Panel[0].Column)
	})

	t.Run("NaN outcomes rank last", func(t *testing.T) {
		sum := sampleSummary()
		sum.Rows[0].Metrics["power"] = summary.Estimate{Value: math.NaN(), MCSE: math.NaN()}
		mv, err := Build(sum, Options{Outcome: "power"})
		require.NoError(t, err)
		assert.Equal(t, 0, mv.Points[3].Cell)
	})
}

func TestBuild_Rejects(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"unknown outcome", Options{Outcome: "nope"}},
		{"one bound", Options{Outcome: "power", Lower: "lo"}},
		{"unknown column", Options{Outcome: "power", Columns: []string{"sd"}}},
		{"short order", Options{Outcome: "power", Order: []int{0, 1}}},
		{"repeated order", Options{Outcome: "power", Order: []int{0, 1, 1, 2}}},
		{"conf level", Options{Outcome: "power", ConfLevel: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(sampleSummary(), tt.opts)
			assert.ErrorIs(t, err, core.ErrInvalidParameter)
		})
	}

	_, err := Build(&summary.Table{}, Options{Outcome: "power"})
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}
