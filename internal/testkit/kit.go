package testkit

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"

	"gosim/adapters/analyzers"
	"gosim/adapters/generators"
	"gosim/adapters/rng"
	"gosim/domain/dataset"
	"gosim/domain/design"
	"gosim/domain/result"
	"gosim/domain/study"
	"gosim/domain/summary"
	"gosim/internal"
	"gosim/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	repo       *InMemoryRunRepository // Shared run store
	generators *generators.Catalog
	analyzers  *analyzers.Catalog
	rng        *rng.StreamAdapter
}

// NewTestKit creates a test kit with the built-in catalogs and an empty store
func NewTestKit() *TestKit {
	return &TestKit{
		repo:       NewInMemoryRunRepository(),
		generators: generators.NewCatalog(),
		analyzers:  analyzers.NewCatalog(),
		rng:        rng.NewStreamAdapter(),
	}
}

// RunRepository returns the shared in-memory run store
func (t *TestKit) RunRepository() *InMemoryRunRepository {
	return t.repo
}

func (t *TestKit) Generators() *generators.Catalog { return t.generators }
func (t *TestKit) Analyzers() *analyzers.Catalog   { return t.analyzers }
func (t *TestKit) RNGAdapter() ports.RNGPort       { return t.rng }

// Logger returns a logger that discards output
func (t *TestKit) Logger() *internal.Logger {
	return internal.NewLoggerTo(internal.LogLevelError, io.Discard)
}

// TwoGroupStudy is the classic Type I error / power study: a mean
// difference of 0 or 0.5 crossed with Student's and Welch's t-test, n=50 per
// group.
func TwoGroupStudy(replications int, seed int64) *study.Study {
	s := &study.Study{
		Name:         "two_group_ttest",
		Seed:         seed,
		Replications: replications,
		Generator:    "two_group",
		Analyzer:     "t_test",
		Fixed: design.MustParams(map[string]interface{}{
			"n_control":      50,
			"n_intervention": 50,
			"mean_control":   0.0,
		}),
		Axes: []design.Axis{
			design.MustAxis("mean_intervention", 0.0, 0.5),
			design.MustAxis("var_equal", true, false),
		},
		Metrics: []summary.Metric{
			summary.RejectionRate("power", 0.05),
			{Name: "bias", Kind: summary.KindBias, Field: "estimate",
				Truth: &summary.Truth{Param: "mean_intervention", Minus: "mean_control"}},
			{Name: "coverage", Kind: summary.KindCoverage, Lower: "ci_lower", Upper: "ci_upper",
				Truth: &summary.Truth{Param: "mean_intervention", Minus: "mean_control"}},
		},
	}
	s.ApplyDefaults()
	return s
}

// UnequalVarianceStudy pairs the smaller group with the larger spread, the
// configuration where Student's t-test rejects too often
func UnequalVarianceStudy(replications int, seed int64) *study.Study {
	s := &study.Study{
		Name:         "unequal_variance",
		Seed:         seed,
		Replications: replications,
		Generator:    "two_group",
		Analyzer:     "t_test",
		Fixed: design.MustParams(map[string]interface{}{
			"n_control":       20,
			"n_intervention":  80,
			"sd_control":      3.0,
			"sd_intervention": 1.0,
		}),
		Axes: []design.Axis{
			design.MustAxis("var_equal", true, false),
		},
	}
	s.ApplyDefaults()
	return s
}

// ErrStub is returned by the stub capabilities
var ErrStub = errors.New("stub failure")

// ConstantGenerator produces a fixed two-group dataset regardless of params
type ConstantGenerator struct{}

var constantSchema = dataset.MustSchema(
	dataset.LabelColumn("condition", "control", "intervention"),
	dataset.FloatColumn("score"),
)

func (ConstantGenerator) Name() string                        { return "constant" }
func (ConstantGenerator) Description() string                 { return "fixed two-group dataset" }
func (ConstantGenerator) Params() []ports.ParamSpec           { return nil }
func (ConstantGenerator) Schema() dataset.Schema              { return constantSchema }
func (ConstantGenerator) Validate(params design.Params) error { return nil }

func (ConstantGenerator) Generate(ctx context.Context, params design.Params, rng *rand.Rand) (*dataset.Dataset, error) {
	return dataset.New(constantSchema,
		map[string][]float64{"score": {1, 2, 3, 4, 5, 6}},
		map[string][]string{"condition": {"control", "control", "control", "intervention", "intervention", "intervention"}},
	)
}

// FlakyAnalyzer reports the row's rep as its value and fails on the reps
// listed in FailOn, either by returning ErrStub or, with Panic, by panicking
type FlakyAnalyzer struct {
	FailOn map[int]bool
	Panic  bool
}

var flakyFields = result.Schema{"rep", "p_value"}

func (a *FlakyAnalyzer) Name() string              { return "flaky" }
func (a *FlakyAnalyzer) Description() string       { return "fails on selected replications" }
func (a *FlakyAnalyzer) Params() []ports.ParamSpec { return nil }
func (a *FlakyAnalyzer) Fields() result.Schema     { return flakyFields }

func (a *FlakyAnalyzer) Accepts(schema dataset.Schema, params design.Params) error {
	return nil
}

func (a *FlakyAnalyzer) Analyze(ctx context.Context, ds *dataset.Dataset, params design.Params) (result.Record, error) {
	rep, err := params.Int(design.RepColumn)
	if err != nil {
		return result.Record{}, err
	}
	if a.FailOn[rep] {
		if a.Panic {
			panic("flaky analyzer")
		}
		return result.Record{}, ErrStub
	}
	return result.NewRecord(flakyFields, map[string]float64{"rep": float64(rep), "p_value": 1})
}
