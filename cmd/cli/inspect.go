package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gosim/ports"
)

func newGridCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "grid [study-file]",
		Short: "Print the condition grid of a study without running it",
		Long: `Resolve a study against the catalog and print one line per condition.
Every check done before a run (unknown generator, unbound axes, invalid
cell parameters) is reported here.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadStudy(args[0])
			if err != nil {
				return err
			}
			appContainer, err := c.container(cmd.Context(), false)
			if err != nil {
				return err
			}
			plan, err := appContainer.Studies.Prepare(st)
			if err != nil {
				return err
			}

			grid := plan.Grid
			headers := append([]string{"cell"}, grid.AxisNames()...)
			rows := make([][]string, grid.Cells())
			for cell := range rows {
				params := grid.CellParams(cell)
				row := []string{strconv.Itoa(cell)}
				for _, axis := range grid.AxisNames() {
					v, _ := params.Get(axis)
					row = append(row, v.String())
				}
				rows[cell] = row
			}

			metrics := make([]string, len(plan.Metrics))
			for i, m := range plan.Metrics {
				metrics[i] = m.Name
			}
			fmt.Fprintln(c.out, titleStyle.Render(st.Summary()))
			fmt.Fprintln(c.out, renderTable(headers, rows))
			fmt.Fprintf(c.out, "%d cells × %d reps = %d trials; fixed %s; metrics %s; hash %s\n",
				grid.Cells(), grid.Replications, grid.Len(), grid.Fixed.Format(),
				strings.Join(metrics, ", "), plan.Hash.String())
			return nil
		},
	}
}

func newCatalogCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the available generators and analyzers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appContainer, err := c.container(cmd.Context(), false)
			if err != nil {
				return err
			}
			rows := [][]string{}
			for _, e := range appContainer.Studies.Catalog() {
				produces := e.Columns
				if e.Kind == "analyzer" {
					produces = e.Fields
				}
				rows = append(rows, []string{e.Kind, e.Name, formatParams(e.Params), strings.Join(produces, " "), e.Description})
			}
			fmt.Fprintln(c.out, renderTable([]string{"kind", "name", "params", "produces", "description"}, rows))
			return nil
		},
	}
}

// formatParams writes required params bare and optional ones as name=default
func formatParams(specs []ports.ParamSpec) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		if s.IsRequired() {
			parts[i] = s.Name
		} else {
			parts[i] = s.Name + "=" + s.Default.String()
		}
	}
	return strings.Join(parts, " ")
}
