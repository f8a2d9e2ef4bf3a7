package analyzers

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/montanaflynn/stats"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/domain/design"
	"gosim/domain/result"
	"gosim/internal/distributions"
	"gosim/ports"
)

var permutationFields = result.Schema{"estimate", "statistic", "p_value", "iterations"}

var permutationSpecs = []ports.ParamSpec{
	ports.Optional("iterations", design.IntValue(999), "number of shuffles in the null distribution"),
	ports.Optional("perm_seed", design.IntValue(1), "seed of the shuffle stream"),
	ports.Optional("x_column", design.StringValue("x"), "variable that is shuffled"),
	ports.Optional("y_column", design.StringValue("y"), "variable held fixed"),
}

type permutationParams struct {
	Iterations int    `param:"iterations"`
	PermSeed   int64  `param:"perm_seed"`
	XColumn    string `param:"x_column"`
	YColumn    string `param:"y_column"`
}

// PermutationAnalyzer tests zero correlation by shuffling x against y and
// counting shuffles whose |r| reaches the observed one. The shuffle stream
// is seeded from perm_seed and the sample size, so a dataset always gets the
// same p-value.
type PermutationAnalyzer struct{}

func NewPermutationAnalyzer() *PermutationAnalyzer {
	return &PermutationAnalyzer{}
}

func (a *PermutationAnalyzer) Name() string              { return "permutation" }
func (a *PermutationAnalyzer) Params() []ports.ParamSpec { return permutationSpecs }
func (a *PermutationAnalyzer) Fields() result.Schema     { return permutationFields }

func (a *PermutationAnalyzer) Description() string {
	return "Two-sided permutation test of zero Pearson correlation"
}

func (a *PermutationAnalyzer) Accepts(schema dataset.Schema, params design.Params) error {
	var p permutationParams
	if err := bind(permutationSpecs, params, &p); err != nil {
		return err
	}
	if p.Iterations < 1 {
		return core.NewParameterError("iterations", p.Iterations, "must be at least 1")
	}
	if err := requireColumn(schema, p.XColumn, dataset.KindFloat); err != nil {
		return err
	}
	return requireColumn(schema, p.YColumn, dataset.KindFloat)
}

func (a *PermutationAnalyzer) Analyze(ctx context.Context, ds *dataset.Dataset, params design.Params) (result.Record, error) {
	var p permutationParams
	if err := bind(permutationSpecs, params, &p); err != nil {
		return result.Record{}, err
	}
	if p.Iterations < 1 {
		return result.Record{}, core.NewParameterError("iterations", p.Iterations, "must be at least 1")
	}
	x, err := ds.Float(p.XColumn)
	if err != nil {
		return result.Record{}, err
	}
	y, err := ds.Float(p.YColumn)
	if err != nil {
		return result.Record{}, err
	}
	if len(x) < 3 {
		return result.Record{}, fmt.Errorf("%w: permutation test needs at least 3 pairs, have %d", core.ErrInsufficientData, len(x))
	}

	if !(distributions.Describe(x).Variance > 0) || !(distributions.Describe(y).Variance > 0) {
		return result.Record{}, fmt.Errorf("%w: constant variable", core.ErrDegenerate)
	}
	observed, err := stats.Correlation(x, y)
	if err != nil {
		return result.Record{}, err
	}

	rng := rand.New(rand.NewPCG(uint64(p.PermSeed), uint64(len(x))))
	shuffled := append([]float64(nil), x...)
	extreme := 0
	for i := 0; i < p.Iterations; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return result.Record{}, err
			}
		}
		rng.Shuffle(len(shuffled), func(j, k int) { shuffled[j], shuffled[k] = shuffled[k], shuffled[j] })
		r, _ := stats.Correlation(shuffled, y)
		if math.Abs(r) >= math.Abs(observed) {
			extreme++
		}
	}

	return result.NewRecord(permutationFields, map[string]float64{
		"estimate":   observed,
		"statistic":  observed,
		"p_value":    float64(extreme+1) / float64(p.Iterations+1),
		"iterations": float64(p.Iterations),
	})
}
