package ports

import (
	"context"
	"math/rand/v2"

	"gosim/domain/dataset"
	"gosim/domain/design"
)

// GeneratorPort simulates one dataset from known population parameters.
// Implementations are pure: all randomness comes from the supplied stream.
type GeneratorPort interface {
	Name() string
	Description() string
	Params() []ParamSpec
	Schema() dataset.Schema

	// Validate rejects parameter values outside the generator's domain
	Validate(params design.Params) error

	Generate(ctx context.Context, params design.Params, rng *rand.Rand) (*dataset.Dataset, error)
}

// GeneratorCatalog resolves generators by name
type GeneratorCatalog interface {
	Generator(name string) (GeneratorPort, error)
	Generators() []GeneratorPort
}
