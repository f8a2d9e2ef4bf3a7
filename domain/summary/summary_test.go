package summary

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosim/domain/core"
	"gosim/domain/design"
	"gosim/domain/result"
)

func TestMetric_Validate(t *testing.T) {
	fields := result.Schema{"estimate", "ci_lower", "ci_upper", "p_value"}
	zero := 0.0

	tests := []struct {
		name    string
		metric  Metric
		wantErr bool
	}{
		{"rejection rate", RejectionRate("power", 0.05), false},
		{"mean", Metric{Name: "m", Kind: KindMean, Field: "estimate"}, false},
		{"bias by param", Metric{Name: "b", Kind: KindBias, Field: "estimate", Truth: &Truth{Param: "d"}}, false},
		{"coverage", Metric{Name: "c", Kind: KindCoverage, Lower: "ci_lower", Upper: "ci_upper", Truth: &Truth{Value: &zero}}, false},
		{"unknown field", Metric{Name: "m", Kind: KindMean, Field: "statistic"}, true},
		{"bias without truth", Metric{Name: "b", Kind: KindBias, Field: "estimate"}, true},
		{"coverage without bounds", Metric{Name: "c", Kind: KindCoverage, Truth: &Truth{Param: "d"}}, true},
		{"unknown kind", Metric{Name: "x", Kind: "median", Field: "estimate"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.metric.Validate(fields)
			if tt.wantErr {
				assert.True(t, errors.Is(err, core.ErrInvalidStudy))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTruth_Resolve(t *testing.T) {
	params := design.MustParams(map[string]interface{}{"mean_intervention": 0.5, "mean_control": 0})
	truth := Truth{Param: "mean_intervention", Minus: "mean_control"}
	v, err := truth.Resolve(params)
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)
	assert.Equal(t, "mean_intervention - mean_control", truth.String())

	_, err = Truth{Param: "missing"}.Resolve(params)
	assert.Error(t, err)
}

func TestTable_Round(t *testing.T) {
	tbl := &Table{
		Metrics: []string{"power"},
		Rows: []Row{{
			N:           10,
			FailureRate: 0.12345,
			Metrics:     map[string]Estimate{"power": {Value: 0.80449, MCSE: math.NaN()}},
		}},
	}
	rounded := tbl.Round(3)
	assert.Equal(t, 0.804, rounded.Rows[0].Metrics["power"].Value)
	assert.True(t, math.IsNaN(rounded.Rows[0].Metrics["power"].MCSE))
	assert.Equal(t, 0.123, rounded.Rows[0].FailureRate)
	assert.Equal(t, 0.80449, tbl.Rows[0].Metrics["power"].Value, "original untouched")
}

func TestEstimate_JSONNaN(t *testing.T) {
	data, err := json.Marshal(Estimate{Value: 0.5, MCSE: math.NaN()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":0.5,"mcse":null}`, string(data))

	var back Estimate
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 0.5, back.Value)
	assert.True(t, math.IsNaN(back.MCSE))
}
