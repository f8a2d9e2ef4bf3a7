package generators

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"gosim/domain/dataset"
	"gosim/domain/design"
	"gosim/ports"
)

type skewedParams struct {
	twoGroupParams `param:",squash"`
	Skew           float64 `param:"skew"`
}

var skewedSpecs = append(append([]ports.ParamSpec(nil), twoGroupSpecs...),
	ports.Optional("skew", design.FloatValue(0), "skew-normal shape; 0 is normal, positive skews right"),
)

// SkewedTwoGroupGenerator draws both groups from a skew-normal distribution
// standardized so each group keeps its requested mean and SD
type SkewedTwoGroupGenerator struct{}

// NewSkewedTwoGroupGenerator creates a new skew-normal two-group generator
func NewSkewedTwoGroupGenerator() *SkewedTwoGroupGenerator {
	return &SkewedTwoGroupGenerator{}
}

func (g *SkewedTwoGroupGenerator) Name() string              { return "two_group_skewed" }
func (g *SkewedTwoGroupGenerator) Params() []ports.ParamSpec { return skewedSpecs }
func (g *SkewedTwoGroupGenerator) Schema() dataset.Schema    { return twoGroupSchema }

func (g *SkewedTwoGroupGenerator) Description() string {
	return "Two skew-normal groups standardized to the requested means and SDs"
}

func (g *SkewedTwoGroupGenerator) Validate(params design.Params) error {
	var p skewedParams
	if err := bind(skewedSpecs, params, &p); err != nil {
		return err
	}
	return p.validate()
}

func (g *SkewedTwoGroupGenerator) Generate(ctx context.Context, params design.Params, rng *rand.Rand) (*dataset.Dataset, error) {
	var p skewedParams
	if err := bind(skewedSpecs, params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sn := newSkewNormal(p.Skew, rng)
	control := func() float64 { return p.MeanControl + p.SDControl*sn.standard() }
	intervention := func() float64 { return p.MeanIntervention + p.SDIntervention*sn.standard() }
	return twoGroupDataset(p.NControl, p.NIntervention, control, intervention)
}

// skewNormal samples Azzalini's skew-normal with shape alpha and rescales it
// to mean 0 and variance 1
type skewNormal struct {
	delta float64
	mean  float64
	sd    float64
	unit  distuv.Normal
}

func newSkewNormal(alpha float64, rng *rand.Rand) skewNormal {
	delta := alpha / math.Sqrt(1+alpha*alpha)
	mean := delta * math.Sqrt(2/math.Pi)
	return skewNormal{
		delta: delta,
		mean:  mean,
		sd:    math.Sqrt(1 - mean*mean),
		unit:  distuv.Normal{Mu: 0, Sigma: 1, Src: rng},
	}
}

func (s skewNormal) standard() float64 {
	u0 := math.Abs(s.unit.Rand())
	u1 := s.unit.Rand()
	x := s.delta*u0 + math.Sqrt(1-s.delta*s.delta)*u1
	return (x - s.mean) / s.sd
}
