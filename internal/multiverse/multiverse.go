// Package multiverse lays out a summary table as a specification curve: the
// outcome of every design cell ranked, with a panel marking which condition
// levels produced each point.
package multiverse

import (
	"fmt"
	"math"
	"sort"

	"gosim/domain/core"
	"gosim/domain/summary"
	"gosim/internal/distributions"
)

// DefaultConfLevel sets the interval width when no bound metrics are named
const DefaultConfLevel = 0.95

// Options selects what the curve shows
type Options struct {
	Outcome string // metric plotted on the curve

	// Lower and Upper name metrics holding interval bounds. When both are
	// empty the interval is the outcome ± z·MCSE at ConfLevel.
	Lower     string
	Upper     string
	ConfLevel float64

	// Columns are the condition columns of the panel, all axes when empty
	Columns []string

	// Order fixes the cell order explicitly. Otherwise cells are ranked by
	// outcome, ascending unless Descending; NaN outcomes rank last.
	Order      []int
	Descending bool
}

// Point is one cell on the curve
type Point struct {
	Rank    int     `json:"rank"`
	Cell    int     `json:"cell"`
	Key     string  `json:"key"`
	Outcome float64 `json:"outcome"`
	Lower   float64 `json:"lower"`
	Upper   float64 `json:"upper"`
}

// PanelRow marks, for one level of one condition column, the ranks whose
// cell has that level. Marks[i] belongs to rank i+1.
type PanelRow struct {
	Column string `json:"column"`
	Level  string `json:"level"`
	Marks  []bool `json:"marks"`
}

// Table is a ranked curve plus its specification panel
type Table struct {
	Outcome string     `json:"outcome"`
	Points  []Point    `json:"points"`
	Panel   []PanelRow `json:"panel"`
}

// Build ranks the rows of sum and derives the panel
func Build(sum *summary.Table, opts Options) (*Table, error) {
	if err := check(sum, &opts); err != nil {
		return nil, err
	}

	outcome := sum.Metric(opts.Outcome)
	lower, upper := bounds(sum, outcome, opts)

	order, err := rank(outcome, opts)
	if err != nil {
		return nil, err
	}

	t := &Table{Outcome: opts.Outcome, Points: make([]Point, len(order))}
	for i, row := range order {
		t.Points[i] = Point{
			Rank:    i + 1,
			Cell:    sum.Rows[row].Cell,
			Key:     sum.Rows[row].Key,
			Outcome: outcome[row].Value,
			Lower:   lower[row],
			Upper:   upper[row],
		}
	}

	for _, column := range opts.Columns {
		for _, level := range levels(sum, column) {
			pr := PanelRow{Column: column, Level: level, Marks: make([]bool, len(order))}
			for i, row := range order {
				v, _ := sum.Rows[row].Params.Get(column)
				pr.Marks[i] = v.String() == level
			}
			t.Panel = append(t.Panel, pr)
		}
	}
	return t, nil
}

func check(sum *summary.Table, opts *Options) error {
	if sum == nil || len(sum.Rows) == 0 {
		return fmt.Errorf("%w: empty summary", core.ErrInsufficientData)
	}
	if !hasMetric(sum, opts.Outcome) {
		return fmt.Errorf("%w: summary has no metric %q", core.ErrInvalidParameter, opts.Outcome)
	}
	if (opts.Lower == "") != (opts.Upper == "") {
		return fmt.Errorf("%w: name both interval bounds or neither", core.ErrInvalidParameter)
	}
	for _, name := range []string{opts.Lower, opts.Upper} {
		if name != "" && !hasMetric(sum, name) {
			return fmt.Errorf("%w: summary has no metric %q", core.ErrInvalidParameter, name)
		}
	}
	if opts.ConfLevel == 0 {
		opts.ConfLevel = DefaultConfLevel
	}
	if opts.ConfLevel <= 0 || opts.ConfLevel >= 1 {
		return core.NewParameterError("conf_level", opts.ConfLevel, "must be in (0, 1)")
	}
	if len(opts.Columns) == 0 {
		opts.Columns = sum.Axes
	}
	for _, column := range opts.Columns {
		if !contains(sum.Axes, column) {
			return fmt.Errorf("%w: %q is not a condition column", core.ErrInvalidParameter, column)
		}
	}
	return nil
}

func bounds(sum *summary.Table, outcome []summary.Estimate, opts Options) (lower, upper []float64) {
	lower = make([]float64, len(outcome))
	upper = make([]float64, len(outcome))
	if opts.Lower != "" {
		for i, est := range sum.Metric(opts.Lower) {
			lower[i] = est.Value
		}
		for i, est := range sum.Metric(opts.Upper) {
			upper[i] = est.Value
		}
		return lower, upper
	}
	z := distributions.NewDistributions().NormalQuantile(1 - (1-opts.ConfLevel)/2)
	for i, est := range outcome {
		lower[i] = est.Value - z*est.MCSE
		upper[i] = est.Value + z*est.MCSE
	}
	return lower, upper
}

// rank returns summary row indices in curve order
func rank(outcome []summary.Estimate, opts Options) ([]int, error) {
	n := len(outcome)
	if opts.Order != nil {
		if len(opts.Order) != n {
			return nil, fmt.Errorf("%w: order lists %d cells, summary has %d", core.ErrInvalidParameter, len(opts.Order), n)
		}
		seen := make([]bool, n)
		for _, row := range opts.Order {
			if row < 0 || row >= n || seen[row] {
				return nil, fmt.Errorf("%w: order is not a permutation of the cells", core.ErrInvalidParameter)
			}
			seen[row] = true
		}
		return append([]int(nil), opts.Order...), nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		x, y := outcome[order[a]].Value, outcome[order[b]].Value
		switch {
		case math.IsNaN(x):
			return false
		case math.IsNaN(y):
			return true
		case opts.Descending:
			return x > y
		default:
			return x < y
		}
	})
	return order, nil
}

// levels lists the distinct values of column in order of first appearance
func levels(sum *summary.Table, column string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, row := range sum.Rows {
		v, ok := row.Params.Get(column)
		if !ok {
			continue
		}
		if s := v.String(); !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func hasMetric(sum *summary.Table, name string) bool {
	return name != "" && contains(sum.Metrics, name)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
