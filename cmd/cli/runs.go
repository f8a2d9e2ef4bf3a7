package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gosim/adapters/excel"
	"gosim/adapters/report"
	"gosim/domain/core"
	"gosim/internal/multiverse"
)

func newRunsCmd(c *cli) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			appContainer, err := c.container(ctx, true)
			if err != nil {
				return err
			}
			defer appContainer.Shutdown(ctx)

			runs, err := appContainer.RunRepo.ListRuns(ctx, limit, offset)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(c.out, mutedStyle.Render("no stored runs"))
				return nil
			}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				m := r.Manifest
				rows[i] = []string{
					string(m.RunID),
					m.StudyName,
					m.Generator + " → " + m.Analyzer,
					strconv.Itoa(m.Cells),
					strconv.Itoa(m.Replications),
					strconv.Itoa(r.Failures),
					string(r.Status),
					m.CreatedAt.String(),
				}
			}
			fmt.Fprintln(c.out, renderTable([]string{"run", "study", "pipeline", "cells", "reps", "failed", "status", "created"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of runs to skip")
	return cmd
}

func newShowCmd(c *cli) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print the summary of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			appContainer, err := c.container(ctx, true)
			if err != nil {
				return err
			}
			defer appContainer.Shutdown(ctx)

			id := core.RunID(args[0])
			stored, err := appContainer.RunRepo.GetRun(ctx, id)
			if err != nil {
				return err
			}
			sum, err := appContainer.RunRepo.GetSummary(ctx, id)
			if err != nil {
				return err
			}

			digits := c.reportDigits(appContainer.Config.Simulation.Digits)
			m := stored.Manifest
			if format != report.FormatCSV {
				fmt.Fprintln(c.out, titleStyle.Render(m.StudyName)+" "+mutedStyle.Render(string(m.RunID)))
				fmt.Fprintln(c.out, mutedStyle.Render(fmt.Sprintf("%s → %s, seed %d, %d cells × %d reps, %d failed, %s",
					m.Generator, m.Analyzer, m.Seed, m.Cells, m.Replications, stored.Failures, stored.Status)))
			}
			if err := report.Write(c.out, format, sum, "", digits); err != nil {
				return err
			}

			var mv *multiverse.Table
			if (opts.multiverse || opts.xlsx != "") && len(sum.Rows) > 0 {
				outcome := opts.outcome
				if outcome == "" && len(sum.Metrics) > 0 {
					outcome = sum.Metrics[0]
				}
				mv, err = multiverse.Build(sum, multiverse.Options{Outcome: outcome})
				if err != nil {
					return err
				}
			}
			if opts.multiverse && mv != nil {
				fmt.Fprintln(c.out)
				if format == report.FormatMarkdown {
					fmt.Fprint(c.out, report.MultiverseMarkdown(mv, "Multiverse: "+mv.Outcome, digits))
				} else {
					fmt.Fprintln(c.out, report.MultiverseText(mv, digits))
				}
			}

			if opts.xlsx != "" {
				trials, err := appContainer.RunRepo.GetTrials(ctx, id)
				if err != nil {
					return err
				}
				err = excel.Save(opts.xlsx, sum, excel.Options{Digits: digits, Trials: trials, Multiverse: mv})
				if err != nil {
					return fmt.Errorf("write %s: %w", opts.xlsx, err)
				}
				fmt.Fprintln(c.errOut, successStyle.Render("wrote "+opts.xlsx))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "text", "Summary format: text|markdown|csv")
	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "Write an XLSX workbook with the summary and trials to this path")
	cmd.Flags().StringVar(&opts.outcome, "outcome", "", "Metric for the multiverse table (default: first metric)")
	cmd.Flags().BoolVar(&opts.multiverse, "multiverse", false, "Print the multiverse table after the summary")
	return cmd
}
