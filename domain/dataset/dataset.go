package dataset

import (
	"fmt"

	"gosim/domain/core"
)

// Dataset is one generated sample: a set of equal-length columns that conform
// to a declared Schema. It is never modified after New returns.
type Dataset struct {
	schema Schema
	rows   int
	floats map[string][]float64
	labels map[string][]string
}

// New validates the supplied columns against schema. Every declared column
// must be present with the declared kind, no undeclared column may appear,
// all columns must have equal length and label values must belong to the
// declared levels when levels are declared.
func New(schema Schema, floats map[string][]float64, labels map[string][]string) (*Dataset, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	for name := range floats {
		if col, ok := schema.Column(name); !ok || col.Kind != KindFloat {
			return nil, core.NewSchemaError(name, "not declared as a float column")
		}
	}
	for name := range labels {
		if col, ok := schema.Column(name); !ok || col.Kind != KindLabel {
			return nil, core.NewSchemaError(name, "not declared as a label column")
		}
	}

	ds := &Dataset{
		schema: schema,
		rows:   -1,
		floats: make(map[string][]float64, len(floats)),
		labels: make(map[string][]string, len(labels)),
	}
	for _, col := range schema.Columns {
		var n int
		switch col.Kind {
		case KindFloat:
			values, ok := floats[col.Name]
			if !ok {
				return nil, core.NewSchemaError(col.Name, "missing column")
			}
			ds.floats[col.Name] = append([]float64(nil), values...)
			n = len(values)
		case KindLabel:
			values, ok := labels[col.Name]
			if !ok {
				return nil, core.NewSchemaError(col.Name, "missing column")
			}
			if err := checkLevels(col, values); err != nil {
				return nil, err
			}
			ds.labels[col.Name] = append([]string(nil), values...)
			n = len(values)
		}
		if ds.rows >= 0 && n != ds.rows {
			return nil, core.NewSchemaError(col.Name, fmt.Sprintf("has %d rows, expected %d", n, ds.rows))
		}
		ds.rows = n
	}
	return ds, nil
}

func checkLevels(col Column, values []string) error {
	if len(col.Levels) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(col.Levels))
	for _, level := range col.Levels {
		allowed[level] = true
	}
	for i, v := range values {
		if !allowed[v] {
			return core.NewSchemaError(col.Name, fmt.Sprintf("row %d has undeclared level %q", i, v))
		}
	}
	return nil
}

func (d *Dataset) Schema() Schema { return d.schema }
func (d *Dataset) Len() int       { return d.rows }

// Float returns a copy of a float column
func (d *Dataset) Float(name string) ([]float64, error) {
	values, ok := d.floats[name]
	if !ok {
		return nil, core.NewSchemaError(name, "no such float column")
	}
	return append([]float64(nil), values...), nil
}

// Labels returns a copy of a label column
func (d *Dataset) Labels(name string) ([]string, error) {
	values, ok := d.labels[name]
	if !ok {
		return nil, core.NewSchemaError(name, "no such label column")
	}
	return append([]string(nil), values...), nil
}

// Group is the subset of a float column belonging to one label level
type Group struct {
	Level  string
	Values []float64
}

// Split partitions valueCol by the levels of labelCol. Groups follow the
// declared level order; undeclared levels follow in order of first
// appearance. Declared levels with no rows yield empty groups.
func (d *Dataset) Split(labelCol, valueCol string) ([]Group, error) {
	labels, ok := d.labels[labelCol]
	if !ok {
		return nil, core.NewSchemaError(labelCol, "no such label column")
	}
	values, ok := d.floats[valueCol]
	if !ok {
		return nil, core.NewSchemaError(valueCol, "no such float column")
	}

	col, _ := d.schema.Column(labelCol)
	index := make(map[string]int, len(col.Levels))
	groups := make([]Group, 0, len(col.Levels))
	for _, level := range col.Levels {
		index[level] = len(groups)
		groups = append(groups, Group{Level: level})
	}
	for i, label := range labels {
		g, ok := index[label]
		if !ok {
			g = len(groups)
			index[label] = g
			groups = append(groups, Group{Level: label})
		}
		groups[g].Values = append(groups[g].Values, values[i])
	}
	return groups, nil
}

// Records returns the dataset row-major with columns in schema order, for
// export. Float cells are float64, label cells are string.
func (d *Dataset) Records() [][]interface{} {
	out := make([][]interface{}, d.rows)
	for i := range out {
		row := make([]interface{}, len(d.schema.Columns))
		for j, col := range d.schema.Columns {
			if col.Kind == KindFloat {
				row[j] = d.floats[col.Name][i]
			} else {
				row[j] = d.labels[col.Name][i]
			}
		}
		out[i] = row
	}
	return out
}
