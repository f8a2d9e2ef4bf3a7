package summary

import (
	"encoding/json"
	"math"

	"gosim/domain/design"
)

// Estimate is a Monte Carlo estimate with its standard error
type Estimate struct {
	Value float64 `json:"value"`
	MCSE  float64 `json:"mcse"`
}

type estimateJSON struct {
	Value *float64 `json:"value"`
	MCSE  *float64 `json:"mcse"`
}

// MarshalJSON writes NaN as null
func (e Estimate) MarshalJSON() ([]byte, error) {
	return json.Marshal(estimateJSON{Value: finite(e.Value), MCSE: finite(e.MCSE)})
}

func (e *Estimate) UnmarshalJSON(data []byte) error {
	var raw estimateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Value, e.MCSE = orNaN(raw.Value), orNaN(raw.MCSE)
	return nil
}

func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// Row summarizes one cell of the design
type Row struct {
	Cell        int                 `json:"cell"`
	Key         string              `json:"key"`
	Params      design.Params       `json:"params"`
	N           int                 `json:"n"`
	Failed      int                 `json:"failed"`
	FailureRate float64             `json:"failure_rate"`
	Metrics     map[string]Estimate `json:"metrics"`
}

// Table is the per-cell summary of a run. Metrics lists metric names in
// declaration order.
type Table struct {
	Axes    []string `json:"axes"`
	Metrics []string `json:"metrics"`
	Rows    []Row    `json:"rows"`
}

// Metric returns the named estimate of every row, in row order
func (t *Table) Metric(name string) []Estimate {
	out := make([]Estimate, len(t.Rows))
	for i, row := range t.Rows {
		est, ok := row.Metrics[name]
		if !ok {
			est = Estimate{Value: math.NaN(), MCSE: math.NaN()}
		}
		out[i] = est
	}
	return out
}

// Round returns a copy with every estimate rounded to digits decimals
func (t *Table) Round(digits int) *Table {
	out := &Table{
		Axes:    append([]string(nil), t.Axes...),
		Metrics: append([]string(nil), t.Metrics...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, row := range t.Rows {
		copied := row
		copied.FailureRate = RoundTo(row.FailureRate, digits)
		copied.Metrics = make(map[string]Estimate, len(row.Metrics))
		for name, est := range row.Metrics {
			copied.Metrics[name] = Estimate{
				Value: RoundTo(est.Value, digits),
				MCSE:  RoundTo(est.MCSE, digits),
			}
		}
		out.Rows[i] = copied
	}
	return out
}

// RoundTo rounds half away from zero; NaN and Inf pass through
func RoundTo(x float64, digits int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	scale := math.Pow(10, float64(digits))
	return math.Round(x*scale) / scale
}
