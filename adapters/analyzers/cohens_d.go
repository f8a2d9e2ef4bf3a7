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

var cohensDFields = result.Schema{"estimate", "ci_lower", "ci_upper"}

var cohensDSpecs = []ports.ParamSpec{
	ports.Optional("conf_level", design.FloatValue(0.95), "confidence level of the interval"),
	ports.Optional("group_column", design.StringValue("condition"), "label column with exactly two levels"),
	ports.Optional("value_column", design.StringValue("score"), "outcome column"),
}

type cohensDParams struct {
	ConfLevel   float64 `param:"conf_level"`
	GroupColumn string  `param:"group_column"`
	ValueColumn string  `param:"value_column"`
}

// CohensDAnalyzer estimates the standardized mean difference with a
// large-sample normal interval
type CohensDAnalyzer struct {
	dist *distributions.StatisticalDistributions
}

// NewCohensDAnalyzer creates a new Cohen's d analyzer
func NewCohensDAnalyzer(dist *distributions.StatisticalDistributions) *CohensDAnalyzer {
	return &CohensDAnalyzer{dist: dist}
}

func (a *CohensDAnalyzer) Name() string              { return "cohens_d" }
func (a *CohensDAnalyzer) Params() []ports.ParamSpec { return cohensDSpecs }
func (a *CohensDAnalyzer) Fields() result.Schema     { return cohensDFields }

func (a *CohensDAnalyzer) Description() string {
	return "Cohen's d on the pooled SD with a large-sample normal confidence interval"
}

func (a *CohensDAnalyzer) Accepts(schema dataset.Schema, params design.Params) error {
	var p cohensDParams
	if err := bind(cohensDSpecs, params, &p); err != nil {
		return err
	}
	if err := requireColumn(schema, p.GroupColumn, dataset.KindLabel); err != nil {
		return err
	}
	return requireColumn(schema, p.ValueColumn, dataset.KindFloat)
}

func (a *CohensDAnalyzer) Analyze(ctx context.Context, ds *dataset.Dataset, params design.Params) (result.Record, error) {
	var p cohensDParams
	if err := bind(cohensDSpecs, params, &p); err != nil {
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
	pooledSD := math.Sqrt(((n1-1)*s1.Variance + (n2-1)*s2.Variance) / (n1 + n2 - 2))
	if !(pooledSD > 0) {
		return result.Record{}, fmt.Errorf("%w: zero pooled standard deviation", core.ErrDegenerate)
	}

	d := (s2.Mean - s1.Mean) / pooledSD
	se := math.Sqrt((n1+n2)/(n1*n2) + d*d/(2*(n1+n2)))
	crit := a.dist.NormalQuantile(1 - (1-p.ConfLevel)/2)

	return result.NewRecord(cohensDFields, map[string]float64{
		"estimate": d,
		"ci_lower": d - crit*se,
		"ci_upper": d + crit*se,
	})
}
