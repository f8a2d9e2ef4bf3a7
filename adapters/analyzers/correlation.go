package analyzers

import (
	"context"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/domain/design"
	"gosim/domain/result"
	"gosim/internal/distributions"
	"gosim/ports"
)

var correlationFields = result.Schema{"estimate", "ci_lower", "ci_upper", "statistic", "p_value"}

var correlationSpecs = []ports.ParamSpec{
	ports.Optional("conf_level", design.FloatValue(0.95), "confidence level of the Fisher z interval"),
	ports.Optional("x_column", design.StringValue("x"), "first variable"),
	ports.Optional("y_column", design.StringValue("y"), "second variable"),
}

type correlationParams struct {
	ConfLevel float64 `param:"conf_level"`
	XColumn   string  `param:"x_column"`
	YColumn   string  `param:"y_column"`
}

// CorrelationAnalyzer estimates Pearson's r with a Fisher z interval and a t
// test of rho = 0
type CorrelationAnalyzer struct {
	dist *distributions.StatisticalDistributions
}

// NewCorrelationAnalyzer creates a new Pearson correlation analyzer
func NewCorrelationAnalyzer(dist *distributions.StatisticalDistributions) *CorrelationAnalyzer {
	return &CorrelationAnalyzer{dist: dist}
}

func (a *CorrelationAnalyzer) Name() string              { return "correlation" }
func (a *CorrelationAnalyzer) Params() []ports.ParamSpec { return correlationSpecs }
func (a *CorrelationAnalyzer) Fields() result.Schema     { return correlationFields }

func (a *CorrelationAnalyzer) Description() string {
	return "Pearson correlation with Fisher z interval and t test of zero correlation"
}

func (a *CorrelationAnalyzer) Accepts(schema dataset.Schema, params design.Params) error {
	var p correlationParams
	if err := bind(correlationSpecs, params, &p); err != nil {
		return err
	}
	if err := requireColumn(schema, p.XColumn, dataset.KindFloat); err != nil {
		return err
	}
	return requireColumn(schema, p.YColumn, dataset.KindFloat)
}

func (a *CorrelationAnalyzer) Analyze(ctx context.Context, ds *dataset.Dataset, params design.Params) (result.Record, error) {
	var p correlationParams
	if err := bind(correlationSpecs, params, &p); err != nil {
		return result.Record{}, err
	}
	if err := checkConfLevel(p.ConfLevel); err != nil {
		return result.Record{}, err
	}
	x, err := ds.Float(p.XColumn)
	if err != nil {
		return result.Record{}, err
	}
	y, err := ds.Float(p.YColumn)
	if err != nil {
		return result.Record{}, err
	}
	n := len(x)
	if n < 4 {
		return result.Record{}, fmt.Errorf("%w: correlation needs at least 4 pairs, have %d", core.ErrInsufficientData, n)
	}
	if !(distributions.Describe(x).Variance > 0) || !(distributions.Describe(y).Variance > 0) {
		return result.Record{}, fmt.Errorf("%w: constant variable", core.ErrDegenerate)
	}

	r, err := stats.Correlation(x, y)
	if err != nil {
		return result.Record{}, err
	}
	r = math.Max(-1, math.Min(1, r))
	if math.Abs(r) == 1 {
		return result.Record{}, fmt.Errorf("%w: perfect correlation", core.ErrDegenerate)
	}

	lower, upper := a.dist.FisherZInterval(r, n, p.ConfLevel)
	return result.NewRecord(correlationFields, map[string]float64{
		"estimate":  r,
		"ci_lower":  lower,
		"ci_upper":  upper,
		"statistic": distributions.CorrelationT(r, n),
		"p_value":   a.dist.CorrelationPValue(r, n),
	})
}
