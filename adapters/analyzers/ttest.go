package analyzers

import (
	"context"
	"fmt"
	"math"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/domain/design"
	"gosim/domain/result"
	"gosim/internal/distributions"
	"gosim/ports"
)

var tTestFields = result.Schema{"estimate", "ci_lower", "ci_upper", "statistic", "df", "p_value"}

var tTestSpecs = []ports.ParamSpec{
	ports.Optional("var_equal", design.BoolValue(false), "pool variances (Student) instead of Welch"),
	ports.Optional("conf_level", design.FloatValue(0.95), "confidence level of the interval"),
	ports.Optional("group_column", design.StringValue("condition"), "label column with exactly two levels"),
	ports.Optional("value_column", design.StringValue("score"), "outcome column"),
}

type tTestParams struct {
	VarEqual    bool    `param:"var_equal"`
	ConfLevel   float64 `param:"conf_level"`
	GroupColumn string  `param:"group_column"`
	ValueColumn string  `param:"value_column"`
}

// TTestAnalyzer compares the means of two groups. The estimate is the second
// group's mean minus the first's, in level order.
type TTestAnalyzer struct {
	dist *distributions.StatisticalDistributions
}

// NewTTestAnalyzer creates a new two-sample t-test analyzer
func NewTTestAnalyzer(dist *distributions.StatisticalDistributions) *TTestAnalyzer {
	return &TTestAnalyzer{dist: dist}
}

func (a *TTestAnalyzer) Name() string              { return "t_test" }
func (a *TTestAnalyzer) Params() []ports.ParamSpec { return tTestSpecs }
func (a *TTestAnalyzer) Fields() result.Schema     { return tTestFields }

func (a *TTestAnalyzer) Description() string {
	return "Two-sample t-test: Student's with var_equal, Welch's otherwise"
}

func (a *TTestAnalyzer) Accepts(schema dataset.Schema, params design.Params) error {
	var p tTestParams
	if err := bind(tTestSpecs, params, &p); err != nil {
		return err
	}
	if err := requireColumn(schema, p.GroupColumn, dataset.KindLabel); err != nil {
		return err
	}
	return requireColumn(schema, p.ValueColumn, dataset.KindFloat)
}

func (a *TTestAnalyzer) Analyze(ctx context.Context, ds *dataset.Dataset, params design.Params) (result.Record, error) {
	var p tTestParams
	if err := bind(tTestSpecs, params, &p); err != nil {
		return result.Record{}, err
	}
	if err := checkConfLevel(p.ConfLevel); err != nil {
		return result.Record{}, err
	}
	g1, g2, err := twoGroups(ds, p.GroupColumn, p.ValueColumn)
	if err != nil {
		return result.Record{}, err
	}

	s1 := distributions.Describe(g1.Values)
	s2 := distributions.Describe(g2.Values)
	n1, n2 := float64(s1.N), float64(s2.N)

	var se, df float64
	if p.VarEqual {
		df = n1 + n2 - 2
		pooled := ((n1-1)*s1.Variance + (n2-1)*s2.Variance) / df
		se = math.Sqrt(pooled * (1/n1 + 1/n2))
	} else {
		v1, v2 := s1.Variance/n1, s2.Variance/n2
		se = math.Sqrt(v1 + v2)
		df = (v1 + v2) * (v1 + v2) / (v1*v1/(n1-1) + v2*v2/(n2-1))
	}
	if !(se > 0) {
		return result.Record{}, fmt.Errorf("%w: zero standard error", core.ErrDegenerate)
	}

	estimate := s2.Mean - s1.Mean
	statistic := estimate / se
	crit := a.dist.TQuantile(1-(1-p.ConfLevel)/2, df)

	return result.NewRecord(tTestFields, map[string]float64{
		"estimate":  estimate,
		"ci_lower":  estimate - crit*se,
		"ci_upper":  estimate + crit*se,
		"statistic": statistic,
		"df":        df,
		"p_value":   a.dist.TTestPValue(statistic, df),
	})
}
