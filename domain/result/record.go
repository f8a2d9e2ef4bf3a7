package result

import (
	"fmt"
	"math"
	"strings"

	"gosim/domain/core"
)

// Schema is the ordered list of fields an analyzer reports
type Schema []string

func (s Schema) Validate() error {
	if len(s) == 0 {
		return core.NewSchemaError("result", "no fields declared")
	}
	seen := make(map[string]bool, len(s))
	for _, name := range s {
		if strings.TrimSpace(name) == "" {
			return core.NewSchemaError("result", "field with empty name")
		}
		if seen[name] {
			return core.NewSchemaError(name, "declared twice")
		}
		seen[name] = true
	}
	return nil
}

func (s Schema) Index(name string) int {
	for i, field := range s {
		if field == name {
			return i
		}
	}
	return -1
}

func (s Schema) Has(name string) bool {
	return s.Index(name) >= 0
}

// Record is one analyzer output conforming to a Schema. A missing record has
// every field NaN and carries the failure reason.
type Record struct {
	Schema  Schema
	Values  []float64
	Missing bool
	Reason  string
}

// NewRecord orders values by schema; missing or undeclared fields fail
func NewRecord(schema Schema, values map[string]float64) (Record, error) {
	if err := schema.Validate(); err != nil {
		return Record{}, err
	}
	for name := range values {
		if !schema.Has(name) {
			return Record{}, core.NewSchemaError(name, "not a declared result field")
		}
	}
	ordered := make([]float64, len(schema))
	for i, name := range schema {
		v, ok := values[name]
		if !ok {
			return Record{}, core.NewSchemaError(name, "missing from result")
		}
		ordered[i] = v
	}
	return Record{Schema: schema, Values: ordered}, nil
}

// Missing builds the sentinel record for a failed trial
func Missing(schema Schema, reason string) Record {
	values := make([]float64, len(schema))
	for i := range values {
		values[i] = math.NaN()
	}
	return Record{Schema: schema, Values: values, Missing: true, Reason: reason}
}

func (r Record) IsMissing() bool {
	return r.Missing
}

// Get returns a field value; NaN for missing records
func (r Record) Get(name string) (float64, error) {
	i := r.Schema.Index(name)
	if i < 0 {
		return math.NaN(), core.NewSchemaError(name, "not a declared result field")
	}
	return r.Values[i], nil
}

// Map returns the record keyed by field name
func (r Record) Map() map[string]float64 {
	out := make(map[string]float64, len(r.Schema))
	for i, name := range r.Schema {
		out[name] = r.Values[i]
	}
	return out
}

func (r Record) String() string {
	if r.Missing {
		return fmt.Sprintf("missing(%s)", r.Reason)
	}
	parts := make([]string, len(r.Schema))
	for i, name := range r.Schema {
		parts[i] = fmt.Sprintf("%s=%g", name, r.Values[i])
	}
	return strings.Join(parts, " ")
}
