package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gosim/internal/config"
	"gosim/internal/container"
)

// cli carries what every subcommand shares
type cli struct {
	out    io.Writer
	errOut io.Writer
	dbURL  string
	digits int
}

func main() {
	godotenv.Load()

	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "gosim",
		Short: "Run Monte Carlo simulation studies over a grid of conditions",
		Long: `gosim runs simulation studies: a generator draws a dataset for every
replication of every condition in a parameter grid, an analyzer reduces each
dataset to a result record, and the records are summarized per condition.

Studies are YAML or JSON files naming the generator, analyzer, fixed params,
axes and metrics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.PersistentFlags().StringVar(&c.dbURL, "db", os.Getenv("DATABASE_URL"),
		"Database URL (postgres://... or sqlite://file); runs are stored when set")
	rootCmd.PersistentFlags().IntVar(&c.digits, "digits", 0, "Decimals in reports (default: study digits or SIM_DIGITS)")

	rootCmd.AddCommand(
		newRunCmd(c),
		newGridCmd(c),
		newCatalogCmd(c),
		newRunsCmd(c),
		newShowCmd(c),
	)
	return rootCmd
}

// container builds the services. With storage set, the database is opened
// and migrated.
func (c *cli) container(ctx context.Context, storage bool) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	appContainer, err := container.New(cfg)
	if err != nil {
		return nil, err
	}
	if !storage {
		return appContainer, nil
	}
	if c.dbURL == "" {
		return nil, fmt.Errorf("no database: pass --db or set DATABASE_URL")
	}
	cfg.Database.URL = c.dbURL
	if err := appContainer.Open(ctx); err != nil {
		return nil, err
	}
	return appContainer, nil
}

// reportDigits picks --digits, then the fallback
func (c *cli) reportDigits(fallback int) int {
	if c.digits > 0 {
		return c.digits
	}
	return fallback
}
