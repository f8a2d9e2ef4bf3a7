package dataset

import (
	"fmt"
	"strings"

	"gosim/domain/core"
)

// ColumnKind distinguishes numeric columns from categorical ones
type ColumnKind string

const (
	KindFloat ColumnKind = "float"
	KindLabel ColumnKind = "label"
)

// Column declares one named column of a generated dataset
type Column struct {
	Name   string     `json:"name"`
	Kind   ColumnKind `json:"kind"`
	Levels []string   `json:"levels,omitempty"` // label columns only, in display order
}

// Schema is the declared shape every dataset of a generator conforms to
type Schema struct {
	Columns []Column `json:"columns"`
}

func FloatColumn(name string) Column {
	return Column{Name: name, Kind: KindFloat}
}

func LabelColumn(name string, levels ...string) Column {
	return Column{Name: name, Kind: KindLabel, Levels: levels}
}

func NewSchema(columns ...Column) (Schema, error) {
	s := Schema{Columns: columns}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// MustSchema is NewSchema for schemas declared in code
func MustSchema(columns ...Column) Schema {
	s, err := NewSchema(columns...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Schema) Validate() error {
	if len(s.Columns) == 0 {
		return core.NewSchemaError("schema", "no columns declared")
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		if strings.TrimSpace(col.Name) == "" {
			return core.NewSchemaError("schema", "column with empty name")
		}
		if seen[col.Name] {
			return core.NewSchemaError(col.Name, "declared twice")
		}
		seen[col.Name] = true

		switch col.Kind {
		case KindFloat:
			if len(col.Levels) > 0 {
				return core.NewSchemaError(col.Name, "float column cannot declare levels")
			}
		case KindLabel:
			levels := make(map[string]bool, len(col.Levels))
			for _, level := range col.Levels {
				if levels[level] {
					return core.NewSchemaError(col.Name, fmt.Sprintf("level %q declared twice", level))
				}
				levels[level] = true
			}
		default:
			return core.NewSchemaError(col.Name, fmt.Sprintf("unknown kind %q", col.Kind))
		}
	}
	return nil
}

// Column looks up a declared column by name
func (s Schema) Column(name string) (Column, bool) {
	for _, col := range s.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// Conforms reports whether s is an instance of declared: the same columns in
// the same order with the same kinds. A declared label column without levels
// accepts any levels; one with levels requires the same levels.
func (s Schema) Conforms(declared Schema) error {
	if len(s.Columns) != len(declared.Columns) {
		return core.NewSchemaError("schema", fmt.Sprintf("has %d columns, declared %d", len(s.Columns), len(declared.Columns)))
	}
	for i, want := range declared.Columns {
		got := s.Columns[i]
		if got.Name != want.Name || got.Kind != want.Kind {
			return core.NewSchemaError(got.Name, fmt.Sprintf("expected %s column %s", want.Kind, want.Name))
		}
		if len(want.Levels) == 0 {
			continue
		}
		if len(got.Levels) != len(want.Levels) {
			return core.NewSchemaError(got.Name, "levels differ from declaration")
		}
		for j := range want.Levels {
			if got.Levels[j] != want.Levels[j] {
				return core.NewSchemaError(got.Name, "levels differ from declaration")
			}
		}
	}
	return nil
}
