package app

import (
	"fmt"
	"math"

	"gosim/domain/core"
	"gosim/domain/design"
	"gosim/domain/result"
	"gosim/domain/summary"
	"gosim/internal/distributions"
)

// Aggregate reduces a result table to one summary row per design cell. The
// replication index is dropped; estimates use only non-missing records, and
// a record whose metric field is NaN does not count toward that metric.
func Aggregate(ct *design.ConditionTable, tbl *result.Table, metrics []summary.Metric) (*summary.Table, error) {
	if ct == nil || tbl == nil {
		return nil, fmt.Errorf("aggregate needs a condition table and a result table")
	}
	if tbl.Len() != ct.Len() {
		return nil, fmt.Errorf("%w: %d trials for %d condition rows", core.ErrSchemaMismatch, tbl.Len(), ct.Len())
	}
	for _, m := range metrics {
		if err := m.Validate(tbl.Schema); err != nil {
			return nil, err
		}
	}

	cells := ct.Cells()
	byCell := make([][]result.Trial, cells)
	for _, trial := range tbl.Trials {
		cell := trial.Condition.Cell
		if cell < 0 || cell >= cells {
			return nil, core.NewGridError(fmt.Sprintf("trial %d has cell %d out of range", trial.Condition.Row, cell))
		}
		byCell[cell] = append(byCell[cell], trial)
	}

	out := &summary.Table{
		Axes:    ct.AxisNames(),
		Metrics: make([]string, len(metrics)),
		Rows:    make([]summary.Row, cells),
	}
	for i, m := range metrics {
		out.Metrics[i] = m.Name
	}

	for cell, trials := range byCell {
		if len(trials) == 0 {
			return nil, core.NewGridError(fmt.Sprintf("cell %d has no trials", cell))
		}
		first := trials[0].Condition
		row := summary.Row{
			Cell:    cell,
			Key:     ct.CellKey(first),
			Params:  ct.CellParams(cell),
			N:       len(trials),
			Metrics: make(map[string]summary.Estimate, len(metrics)),
		}
		for _, trial := range trials {
			if trial.Failed() {
				row.Failed++
			}
		}
		row.FailureRate = float64(row.Failed) / float64(row.N)

		for _, m := range metrics {
			est, err := estimate(m, tbl.Schema, trials, first.Params)
			if err != nil {
				return nil, fmt.Errorf("metric %s, cell %s: %w", m.Name, row.Key, err)
			}
			row.Metrics[m.Name] = est
		}
		out.Rows[cell] = row
	}
	return out, nil
}

// estimate evaluates one metric over the trials of a cell. params are the
// cell's full parameters, used to resolve the truth.
func estimate(m summary.Metric, schema result.Schema, trials []result.Trial, params design.Params) (summary.Estimate, error) {
	var truth float64
	if m.Truth != nil {
		t, err := m.Truth.Resolve(params)
		if err != nil {
			return summary.Estimate{}, err
		}
		truth = t
	}

	switch m.Kind {
	case summary.KindProportion:
		values := fieldValues(trials, schema.Index(m.Field))
		hits := 0
		for _, v := range values {
			if (m.Above && v > m.Threshold) || (!m.Above && v < m.Threshold) {
				hits++
			}
		}
		return proportion(hits, len(values)), nil

	case summary.KindMean:
		return meanEstimate(fieldValues(trials, schema.Index(m.Field))), nil

	case summary.KindBias:
		values := fieldValues(trials, schema.Index(m.Field))
		for i := range values {
			values[i] -= truth
		}
		return meanEstimate(values), nil

	case summary.KindEmpiricalSE:
		d := distributions.Describe(fieldValues(trials, schema.Index(m.Field)))
		if d.N < 2 {
			return nan(), nil
		}
		sd := d.SD()
		return summary.Estimate{Value: sd, MCSE: sd / math.Sqrt(2*float64(d.N-1))}, nil

	case summary.KindCoverage:
		lower, upper := schema.Index(m.Lower), schema.Index(m.Upper)
		hits, n := 0, 0
		for _, trial := range trials {
			if trial.Failed() {
				continue
			}
			lo, hi := trial.Record.Values[lower], trial.Record.Values[upper]
			if math.IsNaN(lo) || math.IsNaN(hi) {
				continue
			}
			n++
			if lo <= truth && truth <= hi {
				hits++
			}
		}
		return proportion(hits, n), nil

	default:
		return summary.Estimate{}, fmt.Errorf("%w: unknown metric kind %q", core.ErrInvalidStudy, m.Kind)
	}
}

// fieldValues collects field i over non-missing trials, skipping NaN
func fieldValues(trials []result.Trial, i int) []float64 {
	values := make([]float64, 0, len(trials))
	for _, trial := range trials {
		if trial.Failed() {
			continue
		}
		if v := trial.Record.Values[i]; !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	return values
}

func proportion(hits, n int) summary.Estimate {
	if n == 0 {
		return nan()
	}
	p := float64(hits) / float64(n)
	return summary.Estimate{Value: p, MCSE: math.Sqrt(p * (1 - p) / float64(n))}
}

func meanEstimate(values []float64) summary.Estimate {
	d := distributions.Describe(values)
	if d.N == 0 {
		return nan()
	}
	return summary.Estimate{Value: d.Mean, MCSE: d.SD() / math.Sqrt(float64(d.N))}
}

func nan() summary.Estimate {
	return summary.Estimate{Value: math.NaN(), MCSE: math.NaN()}
}
