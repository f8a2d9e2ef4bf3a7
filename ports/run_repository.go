package ports

import (
	"context"
	"math"

	"gosim/domain/core"
	"gosim/domain/result"
	"gosim/domain/run"
	"gosim/domain/summary"
)

// RunRepository persists completed runs
type RunRepository interface {
	SaveRun(ctx context.Context, r *run.Run, trials *result.Table, sum *summary.Table) error
	GetRun(ctx context.Context, id core.RunID) (*run.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*run.Run, error)
	GetSummary(ctx context.Context, id core.RunID) (*summary.Table, error)
	GetTrials(ctx context.Context, id core.RunID) ([]TrialRow, error)
	DeleteRun(ctx context.Context, id core.RunID) error
}

// TrialRow is a stored trial: the condition coordinates and the record values
type TrialRow struct {
	Row     int                 `json:"row" db:"row_index"`
	Cell    int                 `json:"cell" db:"cell_index"`
	Rep     int                 `json:"rep" db:"rep"`
	Missing bool                `json:"missing" db:"missing"`
	Reason  string              `json:"reason,omitempty" db:"reason"`
	Values  map[string]*float64 `json:"values" db:"-"` // nil where the value is NaN
}

// TrialRows flattens a result table into stored rows
func TrialRows(tbl *result.Table) []TrialRow {
	rows := make([]TrialRow, len(tbl.Trials))
	for i, trial := range tbl.Trials {
		values := make(map[string]*float64, len(tbl.Schema))
		for j, name := range tbl.Schema {
			if j >= len(trial.Record.Values) || math.IsNaN(trial.Record.Values[j]) {
				values[name] = nil
				continue
			}
			v := trial.Record.Values[j]
			values[name] = &v
		}
		reason := trial.Record.Reason
		if reason == "" {
			reason = trial.Err
		}
		rows[i] = TrialRow{
			Row:     trial.Condition.Row,
			Cell:    trial.Condition.Cell,
			Rep:     trial.Condition.Rep,
			Missing: trial.Failed(),
			Reason:  reason,
			Values:  values,
		}
	}
	return rows
}
