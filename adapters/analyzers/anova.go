package analyzers

import (
	"context"
	"fmt"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/domain/design"
	"gosim/domain/result"
	"gosim/internal/distributions"
	"gosim/ports"
)

var anovaFields = result.Schema{"statistic", "df_between", "df_within", "p_value", "eta_squared"}

var anovaSpecs = []ports.ParamSpec{
	ports.Optional("group_column", design.StringValue("group"), "label column defining the groups"),
	ports.Optional("value_column", design.StringValue("score"), "outcome column"),
}

type anovaParams struct {
	GroupColumn string `param:"group_column"`
	ValueColumn string `param:"value_column"`
}

// AnovaAnalyzer runs a one-way between-subjects ANOVA
type AnovaAnalyzer struct {
	dist *distributions.StatisticalDistributions
}

// NewAnovaAnalyzer creates a new one-way ANOVA analyzer
func NewAnovaAnalyzer(dist *distributions.StatisticalDistributions) *AnovaAnalyzer {
	return &AnovaAnalyzer{dist: dist}
}

func (a *AnovaAnalyzer) Name() string              { return "anova" }
func (a *AnovaAnalyzer) Params() []ports.ParamSpec { return anovaSpecs }
func (a *AnovaAnalyzer) Fields() result.Schema     { return anovaFields }

func (a *AnovaAnalyzer) Description() string {
	return "One-way ANOVA F test across the levels of a label column"
}

func (a *AnovaAnalyzer) Accepts(schema dataset.Schema, params design.Params) error {
	var p anovaParams
	if err := bind(anovaSpecs, params, &p); err != nil {
		return err
	}
	if err := requireColumn(schema, p.GroupColumn, dataset.KindLabel); err != nil {
		return err
	}
	return requireColumn(schema, p.ValueColumn, dataset.KindFloat)
}

func (a *AnovaAnalyzer) Analyze(ctx context.Context, ds *dataset.Dataset, params design.Params) (result.Record, error) {
	var p anovaParams
	if err := bind(anovaSpecs, params, &p); err != nil {
		return result.Record{}, err
	}
	groups, err := ds.Split(p.GroupColumn, p.ValueColumn)
	if err != nil {
		return result.Record{}, err
	}

	var all []float64
	var summaries []distributions.Summary
	for _, g := range groups {
		if len(g.Values) == 0 {
			continue
		}
		all = append(all, g.Values...)
		summaries = append(summaries, distributions.Describe(g.Values))
	}
	k, n := len(summaries), len(all)
	if k < 2 || n-k < 1 {
		return result.Record{}, fmt.Errorf("%w: %d groups with %d observations", core.ErrInsufficientData, k, n)
	}

	grand := distributions.Describe(all).Mean
	var ssBetween, ssWithin float64
	for _, s := range summaries {
		diff := s.Mean - grand
		ssBetween += float64(s.N) * diff * diff
		if s.N > 1 {
			ssWithin += float64(s.N-1) * s.Variance
		}
	}
	if !(ssWithin > 0) {
		return result.Record{}, fmt.Errorf("%w: zero within-group variance", core.ErrDegenerate)
	}

	dfBetween, dfWithin := float64(k-1), float64(n-k)
	statistic := (ssBetween / dfBetween) / (ssWithin / dfWithin)

	return result.NewRecord(anovaFields, map[string]float64{
		"statistic":   statistic,
		"df_between":  dfBetween,
		"df_within":   dfWithin,
		"p_value":     a.dist.FTestPValue(statistic, dfBetween, dfWithin),
		"eta_squared": ssBetween / (ssBetween + ssWithin),
	})
}
