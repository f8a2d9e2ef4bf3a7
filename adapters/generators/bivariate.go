package generators

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/domain/design"
	"gosim/ports"
)

var bivariateSchema = dataset.MustSchema(
	dataset.FloatColumn("x"),
	dataset.FloatColumn("y"),
)

type bivariateParams struct {
	N   int     `param:"n"`
	Rho float64 `param:"rho"`
}

func (p bivariateParams) validate() error {
	if err := positiveInt("n", p.N); err != nil {
		return err
	}
	if math.IsNaN(p.Rho) || math.Abs(p.Rho) >= 1 {
		return core.NewParameterError("rho", p.Rho, "must lie strictly between -1 and 1")
	}
	return nil
}

var bivariateSpecs = []ports.ParamSpec{
	ports.Required("n", design.KindInt, "number of (x, y) pairs"),
	ports.Optional("rho", design.FloatValue(0), "population correlation"),
}

// BivariateNormalGenerator draws standard bivariate normal pairs with
// correlation rho
type BivariateNormalGenerator struct{}

// NewBivariateNormalGenerator creates a new bivariate normal generator
func NewBivariateNormalGenerator() *BivariateNormalGenerator {
	return &BivariateNormalGenerator{}
}

func (g *BivariateNormalGenerator) Name() string              { return "bivariate_normal" }
func (g *BivariateNormalGenerator) Params() []ports.ParamSpec { return bivariateSpecs }
func (g *BivariateNormalGenerator) Schema() dataset.Schema    { return bivariateSchema }

func (g *BivariateNormalGenerator) Description() string {
	return "Standard bivariate normal pairs (x, y) with population correlation rho"
}

func (g *BivariateNormalGenerator) Validate(params design.Params) error {
	var p bivariateParams
	if err := bind(bivariateSpecs, params, &p); err != nil {
		return err
	}
	return p.validate()
}

func (g *BivariateNormalGenerator) Generate(ctx context.Context, params design.Params, rng *rand.Rand) (*dataset.Dataset, error) {
	var p bivariateParams
	if err := bind(bivariateSpecs, params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unit := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	residual := math.Sqrt(1 - p.Rho*p.Rho)
	x := make([]float64, p.N)
	y := make([]float64, p.N)
	for i := range x {
		z1, z2 := unit.Rand(), unit.Rand()
		x[i] = z1
		y[i] = p.Rho*z1 + residual*z2
	}
	return dataset.New(bivariateSchema, map[string][]float64{"x": x, "y": y}, nil)
}
