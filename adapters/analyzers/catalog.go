package analyzers

import (
	"fmt"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/domain/design"
	"gosim/internal/distributions"
	"gosim/ports"
)

// Catalog holds the analyzers available to studies
type Catalog struct {
	analyzers []ports.AnalyzerPort
}

var _ ports.AnalyzerCatalog = (*Catalog)(nil)

// NewCatalog creates a catalog with every built-in analyzer
func NewCatalog() *Catalog {
	dist := distributions.NewDistributions()
	return &Catalog{
		analyzers: []ports.AnalyzerPort{
			NewTTestAnalyzer(dist),
			NewCohensDAnalyzer(dist),
			NewAnovaAnalyzer(dist),
			NewCorrelationAnalyzer(dist),
			NewPermutationAnalyzer(),
		},
	}
}

// Register adds an analyzer; names must be unique
func (c *Catalog) Register(a ports.AnalyzerPort) error {
	if _, err := c.Analyzer(a.Name()); err == nil {
		return fmt.Errorf("analyzer %s already registered", a.Name())
	}
	c.analyzers = append(c.analyzers, a)
	return nil
}

func (c *Catalog) Analyzer(name string) (ports.AnalyzerPort, error) {
	for _, a := range c.analyzers {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w %q", core.ErrUnknownAnalyzer, name)
}

func (c *Catalog) Analyzers() []ports.AnalyzerPort {
	return append([]ports.AnalyzerPort(nil), c.analyzers...)
}

func bind(specs []ports.ParamSpec, params design.Params, target interface{}) error {
	resolved, err := ports.ApplyDefaults(specs, params)
	if err != nil {
		return err
	}
	return resolved.Bind(target)
}

func checkConfLevel(level float64) error {
	if !(level > 0 && level < 1) {
		return core.NewParameterError("conf_level", level, "must lie strictly between 0 and 1")
	}
	return nil
}

func requireColumn(schema dataset.Schema, name string, kind dataset.ColumnKind) error {
	col, ok := schema.Column(name)
	if !ok {
		return core.NewSchemaError(name, "column not produced by generator")
	}
	if col.Kind != kind {
		return core.NewSchemaError(name, fmt.Sprintf("is %s, analyzer needs %s", col.Kind, kind))
	}
	return nil
}

// twoGroups splits a dataset into exactly two non-trivial groups
func twoGroups(ds *dataset.Dataset, groupCol, valueCol string) (a, b dataset.Group, err error) {
	groups, err := ds.Split(groupCol, valueCol)
	if err != nil {
		return a, b, err
	}
	var nonEmpty []dataset.Group
	for _, g := range groups {
		if len(g.Values) > 0 {
			nonEmpty = append(nonEmpty, g)
		}
	}
	if len(nonEmpty) != 2 {
		return a, b, fmt.Errorf("%w: %s has %d non-empty groups, need 2", core.ErrInsufficientData, groupCol, len(nonEmpty))
	}
	a, b = nonEmpty[0], nonEmpty[1]
	if len(a.Values) < 2 || len(b.Values) < 2 {
		return a, b, fmt.Errorf("%w: each group needs at least 2 observations", core.ErrInsufficientData)
	}
	return a, b, nil
}
