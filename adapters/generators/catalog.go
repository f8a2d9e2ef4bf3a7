package generators

import (
	"fmt"

	"gosim/domain/core"
	"gosim/domain/design"
	"gosim/ports"
)

// Catalog holds the generators available to studies
type Catalog struct {
	generators []ports.GeneratorPort
}

var _ ports.GeneratorCatalog = (*Catalog)(nil)

// NewCatalog creates a catalog with every built-in generator
func NewCatalog() *Catalog {
	return &Catalog{
		generators: []ports.GeneratorPort{
			NewTwoGroupGenerator(),
			NewSkewedTwoGroupGenerator(),
			NewKGroupGenerator(),
			NewBivariateNormalGenerator(),
		},
	}
}

// Register adds a generator; names must be unique
func (c *Catalog) Register(g ports.GeneratorPort) error {
	if _, err := c.Generator(g.Name()); err == nil {
		return fmt.Errorf("generator %s already registered", g.Name())
	}
	c.generators = append(c.generators, g)
	return nil
}

func (c *Catalog) Generator(name string) (ports.GeneratorPort, error) {
	for _, g := range c.generators {
		if g.Name() == name {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w %q", core.ErrUnknownGenerator, name)
}

func (c *Catalog) Generators() []ports.GeneratorPort {
	return append([]ports.GeneratorPort(nil), c.generators...)
}

// bind applies declared defaults and decodes params into target
func bind(specs []ports.ParamSpec, params design.Params, target interface{}) error {
	resolved, err := ports.ApplyDefaults(specs, params)
	if err != nil {
		return err
	}
	return resolved.Bind(target)
}

func positiveInt(name string, v int) error {
	if v <= 0 {
		return core.NewParameterError(name, v, "must be positive")
	}
	return nil
}

func positiveFloat(name string, v float64) error {
	if !(v > 0) {
		return core.NewParameterError(name, v, "must be positive")
	}
	return nil
}
