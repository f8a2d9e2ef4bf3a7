package app

import (
	"context"
	"fmt"
	"runtime/debug"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/domain/design"
	"gosim/domain/result"
	"gosim/ports"
)

// SafeAnalyzer isolates an analyzer's failures. A returned error or a panic
// becomes a missing record carrying the reason, and the error is still
// reported so fail-fast runs can stop.
type SafeAnalyzer struct {
	inner ports.AnalyzerPort
}

var _ ports.AnalyzerPort = (*SafeAnalyzer)(nil)

func NewSafeAnalyzer(inner ports.AnalyzerPort) *SafeAnalyzer {
	if safe, ok := inner.(*SafeAnalyzer); ok {
		return safe
	}
	return &SafeAnalyzer{inner: inner}
}

func (s *SafeAnalyzer) Name() string              { return s.inner.Name() }
func (s *SafeAnalyzer) Description() string       { return s.inner.Description() }
func (s *SafeAnalyzer) Params() []ports.ParamSpec { return s.inner.Params() }
func (s *SafeAnalyzer) Fields() result.Schema     { return s.inner.Fields() }

func (s *SafeAnalyzer) Accepts(schema dataset.Schema, params design.Params) error {
	return s.inner.Accepts(schema, params)
}

// Analyze never returns a record that does not conform to Fields. On any
// failure the record is result.Missing with the failure as its reason.
func (s *SafeAnalyzer) Analyze(ctx context.Context, ds *dataset.Dataset, params design.Params) (result.Record, error) {
	fields := s.inner.Fields()

	var rec result.Record
	err := guard(s.inner.Name(), func() error {
		var err error
		rec, err = s.inner.Analyze(ctx, ds, params)
		return err
	})
	if err == nil {
		err = conforms(fields, rec)
	}
	if err != nil {
		return result.Missing(fields, err.Error()), err
	}
	return rec, nil
}

// PanicError is a recovered panic from a generator or analyzer
type PanicError struct {
	Component string
	Value     interface{}
	Stack     []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Component, e.Value)
}

// guard runs fn and converts a panic into a *PanicError
func guard(component string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Component: component, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

func conforms(fields result.Schema, rec result.Record) error {
	if len(rec.Schema) != len(fields) || len(rec.Values) != len(fields) {
		return fmt.Errorf("%w: analyzer returned %d values for %d fields", core.ErrSchemaMismatch, len(rec.Values), len(fields))
	}
	for i := range fields {
		if rec.Schema[i] != fields[i] {
			return fmt.Errorf("%w: analyzer returned field %s where %s was declared", core.ErrSchemaMismatch, rec.Schema[i], fields[i])
		}
	}
	return nil
}
