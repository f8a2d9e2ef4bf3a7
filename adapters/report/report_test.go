package report

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosim/domain/core"
	"gosim/domain/design"
	"gosim/domain/summary"
	"gosim/internal/multiverse"
)

func sampleSummary() *summary.Table {
	row := func(cell int, mean float64, power, mcse float64) summary.Row {
		params := design.MustParams(map[string]interface{}{"mean_intervention": mean})
		return summary.Row{
			Cell:        cell,
			Key:         params.Format(),
			Params:      params,
			N:           200,
			Failed:      cell,
			FailureRate: float64(cell) / 200,
			Metrics: map[string]summary.Estimate{
				"power": {Value: power, MCSE: mcse},
				"bias":  {Value: math.NaN(), MCSE: math.NaN()},
			},
		}
	}
	return &summary.Table{
		Axes:    []string{"mean_intervention"},
		Metrics: []string{"power", "bias"},
		Rows: []summary.Row{
			row(0, 0, 0.0512345, 0.0156),
			row(1, 0.5, 0.70449, 0.0323),
		},
	}
}

func TestRows_RoundedAndOrdered(t *testing.T) {
	sum := sampleSummary()

	assert.Equal(t,
		[]string{"mean_intervention", "n", "failed", "failure_rate", "power", "power_mcse", "bias", "bias_mcse"},
		Header(sum))

	rows := Rows(sum, 3)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"0", "200", "0", "0.000", "0.051", "0.016", "NA", "NA"}, rows[0])
	assert.Equal(t, []string{"0.5", "200", "1", "0.005", "0.704", "0.032", "NA", "NA"}, rows[1])

	assert.Equal(t, "0.70", Rows(sum, 2)[1][4])
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "0.050", Number(0.05, 3))
	assert.Equal(t, "NA", Number(math.NaN(), 3))
	assert.Equal(t, "2", Number(1.6, -1))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleSummary(), 3))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "mean_intervention", records[0][0])
	assert.Equal(t, "0.704", records[2][4])
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleSummary(), "Power", 3)
	lines := strings.Split(strings.TrimSpace(md), "\n")

	require.Len(t, lines, 6)
	assert.Equal(t, "## Power", lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "| mean_intervention | n |"))
	assert.Equal(t, "|---|---|---|---|---|---|---|---|", lines[3])
	assert.Contains(t, lines[5], "| 0.704 |")
}

func TestText_ContainsEveryCell(t *testing.T) {
	out := Text(sampleSummary(), 3)
	for _, want := range []string{"mean_intervention", "power_mcse", "0.051", "0.704", "NA"} {
		assert.Contains(t, out, want)
	}
}

func TestWrite_Formats(t *testing.T) {
	for _, f := range []Format{FormatText, FormatMarkdown, FormatCSV} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, f, sampleSummary(), "title", 3), f)
		assert.Contains(t, buf.String(), "0.704", f)
	}

	err := Write(&bytes.Buffer{}, "pdf", sampleSummary(), "", 3)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "MD": FormatMarkdown, "csv": FormatCSV} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("html")
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestMultiverseRows(t *testing.T) {
	mv, err := multiverse.Build(sampleSummary(), multiverse.Options{Outcome: "power"})
	require.NoError(t, err)

	assert.Equal(t, []string{"", "1", "2"}, MultiverseHeader(mv))
	rows := MultiverseRows(mv, 2)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"power", "0.05", "0.70"}, rows[0])
	assert.Equal(t, []string{"mean_intervention = 0", panelMark, ""}, rows[3])
	assert.Equal(t, []string{"mean_intervention = 0.5", "", panelMark}, rows[4])

	assert.Contains(t, MultiverseText(mv, 2), "mean_intervention = 0.5")
	assert.Contains(t, MultiverseMarkdown(mv, "", 2), "| power | 0.05 | 0.70 |")
}
