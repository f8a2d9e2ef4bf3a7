package result

import (
	"fmt"
	"math"
	"time"

	"gosim/domain/dataset"
	"gosim/domain/design"
)

// Trial is the outcome of one condition row
type Trial struct {
	Condition design.Condition
	Record    Record
	Err       string
	Duration  time.Duration
	Data      *dataset.Dataset // only set when the run retains datasets
}

func (t Trial) Failed() bool {
	return t.Record.IsMissing()
}

// Table holds one trial per condition row, in row order
type Table struct {
	Schema Schema
	Trials []Trial
}

func NewTable(schema Schema, rows int) *Table {
	return &Table{Schema: schema, Trials: make([]Trial, rows)}
}

func (t *Table) Len() int {
	return len(t.Trials)
}

func (t *Table) FailureCount() int {
	n := 0
	for _, trial := range t.Trials {
		if trial.Failed() {
			n++
		}
	}
	return n
}

// Column returns one field across all trials, NaN where missing
func (t *Table) Column(name string) ([]float64, error) {
	i := t.Schema.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("result table has no field %s", name)
	}
	out := make([]float64, len(t.Trials))
	for row, trial := range t.Trials {
		out[row] = trial.Record.Values[i]
	}
	return out, nil
}

// Equal reports whether two tables hold bit-identical records for the same
// rows. Durations and retained data are ignored.
func (t *Table) Equal(o *Table) bool {
	if len(t.Trials) != len(o.Trials) || len(t.Schema) != len(o.Schema) {
		return false
	}
	for i := range t.Schema {
		if t.Schema[i] != o.Schema[i] {
			return false
		}
	}
	for i := range t.Trials {
		a, b := t.Trials[i], o.Trials[i]
		if a.Condition.Row != b.Condition.Row || a.Record.Missing != b.Record.Missing {
			return false
		}
		for j := range a.Record.Values {
			if !sameBits(a.Record.Values[j], b.Record.Values[j]) {
				return false
			}
		}
	}
	return true
}

func sameBits(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}
