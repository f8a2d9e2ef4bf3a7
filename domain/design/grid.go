package design

import (
	"fmt"
	"strings"

	"gosim/domain/core"
)

// Condition is one row of a condition table: a cell of the design crossed
// with one replication index.
type Condition struct {
	Row        int
	Cell       int
	Rep        int
	Params     Params
	Assignment []Value
}

// ConditionTable is the full factorial design crossed with replications.
// Rows are ordered with the first axis varying slowest and the replication
// index varying fastest.
type ConditionTable struct {
	Fixed        Params
	Axes         []Axis
	Replications int
	Rows         []Condition
}

// Cross builds every combination of axis values, replicated replications
// times. Axis values shadow fixed params of the same name, and each row's
// params carry its replication index under RepColumn. Zero axes yields a
// single cell.
func Cross(fixed Params, axes []Axis, replications int) (*ConditionTable, error) {
	if replications < 1 {
		return nil, core.NewGridError(fmt.Sprintf("replications must be >= 1, got %d", replications))
	}
	seen := make(map[string]bool, len(axes))
	for _, axis := range axes {
		if err := axis.Validate(); err != nil {
			return nil, err
		}
		if seen[axis.Name] {
			return nil, core.NewGridError(fmt.Sprintf("duplicate axis %s", axis.Name))
		}
		seen[axis.Name] = true
	}
	if fixed.Has(RepColumn) {
		return nil, core.NewGridError(fmt.Sprintf("fixed parameter %q is reserved", RepColumn))
	}

	cells := 1
	for _, axis := range axes {
		cells *= axis.Len()
	}

	ct := &ConditionTable{
		Fixed:        fixed,
		Axes:         append([]Axis(nil), axes...),
		Replications: replications,
		Rows:         make([]Condition, 0, cells*replications),
	}

	for cell := 0; cell < cells; cell++ {
		assignment := ct.assignment(cell)
		params := fixed
		for i, axis := range axes {
			params = params.With(axis.Name, assignment[i])
		}
		for rep := 1; rep <= replications; rep++ {
			ct.Rows = append(ct.Rows, Condition{
				Row:        len(ct.Rows),
				Cell:       cell,
				Rep:        rep,
				Params:     params.With(RepColumn, IntValue(int64(rep))),
				Assignment: assignment,
			})
		}
	}
	return ct, nil
}

// assignment decodes a cell index into per-axis values, last axis fastest
func (ct *ConditionTable) assignment(cell int) []Value {
	out := make([]Value, len(ct.Axes))
	for i := len(ct.Axes) - 1; i >= 0; i-- {
		n := ct.Axes[i].Len()
		out[i] = ct.Axes[i].Values[cell%n]
		cell /= n
	}
	return out
}

func (ct *ConditionTable) Len() int {
	return len(ct.Rows)
}

// Cells is the number of distinct axis combinations
func (ct *ConditionTable) Cells() int {
	if ct.Replications == 0 {
		return 0
	}
	return len(ct.Rows) / ct.Replications
}

// AxisNames returns axis names in declaration order
func (ct *ConditionTable) AxisNames() []string {
	names := make([]string, len(ct.Axes))
	for i, axis := range ct.Axes {
		names[i] = axis.Name
	}
	return names
}

// CellParams returns the axis values of a cell as Params
func (ct *ConditionTable) CellParams(cell int) Params {
	params := Params{}
	for i, v := range ct.assignment(cell) {
		params = params.With(ct.Axes[i].Name, v)
	}
	return params
}

// CellKey renders the axis assignment of a condition, e.g. "n=20,var_equal=true"
func (ct *ConditionTable) CellKey(cond Condition) string {
	parts := make([]string, len(ct.Axes))
	for i, axis := range ct.Axes {
		parts[i] = axis.Name + "=" + cond.Assignment[i].String()
	}
	return strings.Join(parts, ",")
}

// Validate re-checks that every (cell, rep) pair occurs exactly once and that
// rows are numbered in order.
func (ct *ConditionTable) Validate() error {
	cells := 1
	for _, axis := range ct.Axes {
		cells *= axis.Len()
	}
	if want := cells * ct.Replications; len(ct.Rows) != want {
		return core.NewGridError(fmt.Sprintf("expected %d rows, have %d", want, len(ct.Rows)))
	}
	seen := make(map[[2]int]bool, len(ct.Rows))
	for i, row := range ct.Rows {
		if row.Row != i {
			return core.NewGridError(fmt.Sprintf("row %d numbered %d", i, row.Row))
		}
		if row.Cell < 0 || row.Cell >= cells || row.Rep < 1 || row.Rep > ct.Replications {
			return core.NewGridError(fmt.Sprintf("row %d has cell %d rep %d out of range", i, row.Cell, row.Rep))
		}
		key := [2]int{row.Cell, row.Rep}
		if seen[key] {
			return core.NewGridError(fmt.Sprintf("cell %d rep %d appears twice", row.Cell, row.Rep))
		}
		seen[key] = true
	}
	return nil
}
