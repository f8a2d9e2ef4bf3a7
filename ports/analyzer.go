package ports

import (
	"context"

	"gosim/domain/dataset"
	"gosim/domain/design"
	"gosim/domain/result"
)

// AnalyzerPort runs one statistical procedure on one dataset and reports a
// record conforming to Fields.
type AnalyzerPort interface {
	Name() string
	Description() string
	Params() []ParamSpec
	Fields() result.Schema

	// Accepts checks that datasets of the given schema carry the columns the
	// procedure reads under params
	Accepts(schema dataset.Schema, params design.Params) error

	Analyze(ctx context.Context, ds *dataset.Dataset, params design.Params) (result.Record, error)
}

// AnalyzerCatalog resolves analyzers by name
type AnalyzerCatalog interface {
	Analyzer(name string) (AnalyzerPort, error)
	Analyzers() []AnalyzerPort
}
