// Package excel exports run results as an XLSX workbook: a summary sheet, a
// trials sheet and, when a multiverse table is given, a ranked curve with a
// scatter chart and a specification panel.
package excel

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"gosim/domain/study"
	"gosim/domain/summary"
	"gosim/internal/multiverse"
	"gosim/ports"
)

const (
	SheetSummary    = "summary"
	SheetTrials     = "trials"
	SheetMultiverse = "multiverse"
	SheetPanel      = "panel"
)

// Options selects the optional sheets and number formatting
type Options struct {
	Digits     int
	Trials     []ports.TrialRow
	Fields     []string // trial value columns, sorted keys of the first trial when empty
	Multiverse *multiverse.Table
}

// Workbook wraps an excelize file being filled in
type Workbook struct {
	f      *excelize.File
	digits int
	header int // bold style id
	number int // fixed-decimals style id
}

// Build lays out every sheet
func Build(sum *summary.Table, opts Options) (*excelize.File, error) {
	wb, err := newWorkbook(opts.Digits)
	if err != nil {
		return nil, err
	}
	if err := wb.f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	if err := wb.writeSummary(sum); err != nil {
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	if len(opts.Trials) > 0 {
		if err := wb.writeTrials(opts.Trials, opts.Fields); err != nil {
			return nil, fmt.Errorf("trials sheet: %w", err)
		}
	}
	if opts.Multiverse != nil {
		if err := wb.writeMultiverse(opts.Multiverse); err != nil {
			return nil, fmt.Errorf("multiverse sheet: %w", err)
		}
	}
	wb.f.SetActiveSheet(0)
	return wb.f, nil
}

// Write builds the workbook and streams it to w
func Write(w io.Writer, sum *summary.Table, opts Options) error {
	f, err := Build(sum, opts)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

// Save builds the workbook and writes it to path
func Save(path string, sum *summary.Table, opts Options) error {
	f, err := Build(sum, opts)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func newWorkbook(digits int) (*Workbook, error) {
	if digits <= 0 {
		digits = study.DefaultDigits
	}
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	format := "0." + strings.Repeat("0", digits)
	number, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return nil, err
	}
	return &Workbook{f: f, digits: digits, header: header, number: number}, nil
}

// writeRow writes values starting at column A of row. NaN floats are left
// blank.
func (wb *Workbook) writeRow(sheet string, row int, values []interface{}) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		if x, ok := v.(float64); ok {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				cells[i] = nil
				continue
			}
			v = summary.RoundTo(x, wb.digits)
		}
		cells[i] = v
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return wb.f.SetSheetRow(sheet, cell, &cells)
}

func (wb *Workbook) writeHeader(sheet string, names []string) error {
	values := make([]interface{}, len(names))
	for i, n := range names {
		values[i] = n
	}
	if err := wb.writeRow(sheet, 1, values); err != nil {
		return err
	}
	if err := wb.f.SetRowStyle(sheet, 1, 1, wb.header); err != nil {
		return err
	}
	return wb.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// styleNumbers applies the fixed-decimals format to columns from..to over
// the data rows
func (wb *Workbook) styleNumbers(sheet string, from, to, rows int) error {
	if rows == 0 || from > to {
		return nil
	}
	top, err := excelize.CoordinatesToCellName(from, 2)
	if err != nil {
		return err
	}
	bottom, err := excelize.CoordinatesToCellName(to, rows+1)
	if err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, top, bottom, wb.number)
}

func (wb *Workbook) writeSummary(sum *summary.Table) error {
	header := append([]string(nil), sum.Axes...)
	header = append(header, "n", "failed", "failure_rate")
	for _, m := range sum.Metrics {
		header = append(header, m, m+"_mcse")
	}
	if err := wb.writeHeader(SheetSummary, header); err != nil {
		return err
	}

	for i, row := range sum.Rows {
		values := make([]interface{}, 0, len(header))
		for _, axis := range sum.Axes {
			if v, ok := row.Params.Get(axis); ok {
				values = append(values, v.Interface())
			} else {
				values = append(values, nil)
			}
		}
		values = append(values, row.N, row.Failed, row.FailureRate)
		for _, m := range sum.Metrics {
			est, ok := row.Metrics[m]
			if !ok {
				est = summary.Estimate{Value: math.NaN(), MCSE: math.NaN()}
			}
			values = append(values, est.Value, est.MCSE)
		}
		if err := wb.writeRow(SheetSummary, i+2, values); err != nil {
			return err
		}
	}
	first := len(sum.Axes) + 3
	return wb.styleNumbers(SheetSummary, first, len(header), len(sum.Rows))
}

func (wb *Workbook) writeTrials(trials []ports.TrialRow, fields []string) error {
	if len(fields) == 0 {
		for name := range trials[0].Values {
			fields = append(fields, name)
		}
		sort.Strings(fields)
	}
	if _, err := wb.f.NewSheet(SheetTrials); err != nil {
		return err
	}
	header := append([]string{"row", "cell", "rep", "missing", "reason"}, fields...)
	if err := wb.writeHeader(SheetTrials, header); err != nil {
		return err
	}
	for i, tr := range trials {
		values := []interface{}{tr.Row, tr.Cell, tr.Rep, tr.Missing, tr.Reason}
		for _, name := range fields {
			if p := tr.Values[name]; p != nil {
				values = append(values, *p)
			} else {
				values = append(values, math.NaN())
			}
		}
		if err := wb.writeRow(SheetTrials, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func (wb *Workbook) writeMultiverse(mv *multiverse.Table) error {
	if _, err := wb.f.NewSheet(SheetMultiverse); err != nil {
		return err
	}
	if err := wb.writeHeader(SheetMultiverse, []string{"rank", "cell", "key", mv.Outcome, "lower", "upper"}); err != nil {
		return err
	}
	for i, p := range mv.Points {
		if err := wb.writeRow(SheetMultiverse, i+2, []interface{}{p.Rank, p.Cell, p.Key, p.Outcome, p.Lower, p.Upper}); err != nil {
			return err
		}
	}
	if err := wb.styleNumbers(SheetMultiverse, 4, 6, len(mv.Points)); err != nil {
		return err
	}
	if len(mv.Points) > 0 {
		if err := wb.addCurveChart(mv); err != nil {
			return err
		}
	}
	return wb.writePanel(mv)
}

func (wb *Workbook) addCurveChart(mv *multiverse.Table) error {
	last := len(mv.Points) + 1
	ref := func(col string) string {
		return fmt.Sprintf("%s!$%s$2:$%s$%d", SheetMultiverse, col, col, last)
	}
	series := func(col, symbol string) excelize.ChartSeries {
		return excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", SheetMultiverse, col),
			Categories: ref("A"),
			Values:     ref(col),
			Marker:     excelize.ChartMarker{Symbol: symbol, Size: 6},
		}
	}
	return wb.f.AddChart(SheetMultiverse, "H2", &excelize.Chart{
		Type: excelize.Scatter,
		Series: []excelize.ChartSeries{
			series("D", "circle"),
			series("E", "dash"),
			series("F", "dash"),
		},
		Title:  []excelize.RichTextRun{{Text: mv.Outcome + " by rank"}},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "rank"}}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: mv.Outcome}}},
		Legend: excelize.ChartLegend{Position: "bottom"},
	})
}

// writePanel puts one row per condition level and one column per rank, with
// 1 where the ranked cell has that level
func (wb *Workbook) writePanel(mv *multiverse.Table) error {
	if _, err := wb.f.NewSheet(SheetPanel); err != nil {
		return err
	}
	header := []string{"column", "level"}
	for _, p := range mv.Points {
		header = append(header, fmt.Sprintf("%d", p.Rank))
	}
	if err := wb.writeHeader(SheetPanel, header); err != nil {
		return err
	}
	for i, pr := range mv.Panel {
		values := []interface{}{pr.Column, pr.Level}
		for _, marked := range pr.Marks {
			if marked {
				values = append(values, 1)
			} else {
				values = append(values, nil)
			}
		}
		if err := wb.writeRow(SheetPanel, i+2, values); err != nil {
			return err
		}
	}
	return nil
}
