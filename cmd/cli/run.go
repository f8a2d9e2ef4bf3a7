package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"gosim/adapters/excel"
	"gosim/adapters/report"
	"gosim/app"
	"gosim/domain/study"
	"gosim/internal/multiverse"
	"gosim/ports"
)

type runOptions struct {
	seed       int64
	reps       int
	workers    int
	format     string
	xlsx       string
	outcome    string
	multiverse bool
	failFast   bool
	quiet      bool
}

func newRunCmd(c *cli) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [study-file]",
		Short: "Run a study and print its summary",
		Long: `Run every replication of every condition of a study and print the
per-condition summary.

Example: gosim run studies/welch.yaml --reps 2000 --seed 7 --format markdown --xlsx welch.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadStudy(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				st.Seed = opts.seed
			}
			if cmd.Flags().Changed("reps") {
				st.Replications = opts.reps
			}
			if opts.failFast {
				st.FailFast = true
			}
			return c.runStudy(cmd, st, opts)
		},
	}

	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Override the study seed")
	cmd.Flags().IntVar(&opts.reps, "reps", 0, "Override the number of replications")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Worker goroutines (default: study workers, SIM_WORKERS, then GOMAXPROCS)")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Summary format: text|markdown|csv")
	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "Also write an XLSX workbook to this path")
	cmd.Flags().StringVar(&opts.outcome, "outcome", "", "Metric for the multiverse table (default: first metric)")
	cmd.Flags().BoolVar(&opts.multiverse, "multiverse", false, "Print the multiverse table after the summary")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "Stop at the first failed trial")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print progress")
	return cmd
}

func loadStudy(path string) (*study.Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read study: %w", err)
	}
	st, err := study.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return st, nil
}

func (c *cli) runStudy(cmd *cobra.Command, st *study.Study, opts runOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	appContainer, err := c.container(ctx, c.dbURL != "")
	if err != nil {
		return err
	}
	defer appContainer.Shutdown(ctx)

	plan, err := appContainer.Studies.Prepare(st)
	if err != nil {
		return err
	}

	workers := opts.workers
	if workers == 0 {
		workers = st.Workers
	}
	exec := app.ExecuteOptions{Workers: appContainer.Config.Simulation.EffectiveWorkers(workers)}
	if !opts.quiet {
		exec.OnProgress = c.progressPrinter()
	}
	res, err := appContainer.Studies.Execute(ctx, plan, exec)
	if !opts.quiet {
		fmt.Fprintln(c.errOut)
	}
	if err != nil {
		return err
	}

	digits := c.reportDigits(st.Digits)
	if format != report.FormatCSV {
		fmt.Fprintln(c.out, titleStyle.Render(st.Name)+" "+mutedStyle.Render(string(res.Run.Manifest.RunID)))
		fmt.Fprintln(c.out, mutedStyle.Render(fmt.Sprintf("%d cells × %d reps, %d failed, %s",
			plan.Grid.Cells(), st.Replications, res.Run.Failures, res.Run.Elapsed.Round(time.Millisecond))))
	}
	if err := report.Write(c.out, format, res.Summary, "", digits); err != nil {
		return err
	}

	var mv *multiverse.Table
	if opts.multiverse || opts.xlsx != "" {
		outcome := opts.outcome
		if outcome == "" && len(res.Summary.Metrics) > 0 {
			outcome = res.Summary.Metrics[0]
		}
		mv, err = multiverse.Build(res.Summary, multiverse.Options{Outcome: outcome})
		if err != nil {
			return err
		}
	}
	if opts.multiverse {
		fmt.Fprintln(c.out)
		if format == report.FormatMarkdown {
			fmt.Fprint(c.out, report.MultiverseMarkdown(mv, "Multiverse: "+mv.Outcome, digits))
		} else {
			fmt.Fprintln(c.out, report.MultiverseText(mv, digits))
		}
	}

	if opts.xlsx != "" {
		err := excel.Save(opts.xlsx, res.Summary, excel.Options{
			Digits:     digits,
			Trials:     ports.TrialRows(res.Trials),
			Fields:     res.Trials.Schema,
			Multiverse: mv,
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", opts.xlsx, err)
		}
		fmt.Fprintln(c.errOut, successStyle.Render("wrote "+opts.xlsx))
	}
	return nil
}

// progressPrinter redraws a single status line on stderr once per percent
func (c *cli) progressPrinter() func(done, total int) {
	var mu sync.Mutex
	last := -1
	return func(done, total int) {
		pct := done * 100 / total
		mu.Lock()
		defer mu.Unlock()
		if pct <= last {
			return
		}
		last = pct
		fmt.Fprintf(c.errOut, "\r%s %3d%% (%d/%d trials)", mutedStyle.Render("running"), pct, done, total)
	}
}
