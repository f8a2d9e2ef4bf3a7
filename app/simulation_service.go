package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"gosim/domain/dataset"
	"gosim/domain/design"
	"gosim/domain/result"
	"gosim/domain/run"
	"gosim/internal"
	"gosim/internal/metrics"
	"gosim/ports"
)

// SimulationService runs every row of a condition table through a generator
// and an analyzer
type SimulationService struct {
	rngPort ports.RNGPort
	logger  *internal.Logger
}

// RunRequest describes one pass over a condition table
type RunRequest struct {
	Table      *design.ConditionTable
	Generator  ports.GeneratorPort
	Analyzer   ports.AnalyzerPort
	Seed       int64
	Workers    int  // <= 0 means GOMAXPROCS
	RetainData bool // keep each trial's dataset on the result
	FailFast   bool // stop at the first failed trial instead of recording it missing

	// OnProgress is called after every finished trial. It may be called
	// from several goroutines at once.
	OnProgress func(done, total int)
}

// TrialError reports the row that stopped a fail-fast run
type TrialError struct {
	Row  int
	Cell int
	Rep  int
	Err  error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("trial %d (cell %d, rep %d): %v", e.Row, e.Cell, e.Rep, e.Err)
}

func (e *TrialError) Unwrap() error {
	return e.Err
}

// NewSimulationService creates a driver drawing per-row streams from rngPort
func NewSimulationService(rngPort ports.RNGPort, logger *internal.Logger) *SimulationService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SimulationService{
		rngPort: rngPort,
		logger:  logger,
	}
}

// Run executes the table and returns one trial per row, in row order. Each
// row draws from its own stream so the result is identical for any worker
// count.
func (s *SimulationService) Run(ctx context.Context, req RunRequest) (*result.Table, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	total := req.Table.Len()
	analyzer := NewSafeAnalyzer(req.Analyzer)
	tbl := result.NewTable(analyzer.Fields(), total)

	s.logger.Info("[SimulationService] %s -> %s: %d rows (%d cells x %d reps) on %d workers, seed %d",
		req.Generator.Name(), analyzer.Name(), total, req.Table.Cells(), req.Table.Replications, workers, req.Seed)

	finish := metrics.RunStarted()
	start := time.Now()

	var done, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range req.Table.Rows {
		if gctx.Err() != nil {
			break
		}
		cond := req.Table.Rows[i]
		g.Go(func() error {
			trial, err := s.runTrial(gctx, req, analyzer, cond)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if req.FailFast {
					return &TrialError{Row: cond.Row, Cell: cond.Cell, Rep: cond.Rep, Err: err}
				}
				failed.Add(1)
				s.logger.Warn("[SimulationService] row %d (%s, rep %d) missing: %v",
					cond.Row, req.Table.CellKey(cond), cond.Rep, err)
			}
			tbl.Trials[cond.Row] = trial
			metrics.ObserveTrial(req.Generator.Name(), analyzer.Name(), trial.Failed(), trial.Duration)

			n := done.Add(1)
			if req.OnProgress != nil {
				req.OnProgress(int(n), total)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		status := run.StatusFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = run.StatusCancelled
		}
		finish(string(status))
		s.logger.Error("[SimulationService] run stopped after %d/%d trials: %v", done.Load(), total, err)
		return nil, err
	}

	finish(string(run.StatusCompleted))
	s.logger.Info("[SimulationService] completed %d trials in %v (%d missing)",
		total, time.Since(start).Round(time.Millisecond), failed.Load())
	return tbl, nil
}

func (s *SimulationService) checkRequest(req RunRequest) error {
	if req.Table == nil {
		return fmt.Errorf("run request has no condition table")
	}
	if req.Generator == nil || req.Analyzer == nil {
		return fmt.Errorf("run request needs a generator and an analyzer")
	}
	return req.Table.Validate()
}

// runTrial generates and analyzes one row. The returned trial is always
// complete; on failure its record is missing and the error says why.
func (s *SimulationService) runTrial(ctx context.Context, req RunRequest, analyzer *SafeAnalyzer, cond design.Condition) (result.Trial, error) {
	start := time.Now()
	trial := result.Trial{Condition: cond}
	fail := func(err error) (result.Trial, error) {
		trial.Record = result.Missing(analyzer.Fields(), err.Error())
		trial.Err = err.Error()
		trial.Duration = time.Since(start)
		return trial, err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	rng, err := s.rngPort.TrialStream(ctx, req.Seed, cond.Row)
	if err != nil {
		return fail(err)
	}

	var ds *dataset.Dataset
	err = guard(req.Generator.Name(), func() error {
		var err error
		ds, err = req.Generator.Generate(ctx, cond.Params, rng)
		return err
	})
	if err == nil && ds == nil {
		err = fmt.Errorf("%s returned no dataset", req.Generator.Name())
	}
	if err != nil {
		return fail(fmt.Errorf("generate: %w", err))
	}
	if err := ds.Schema().Conforms(req.Generator.Schema()); err != nil {
		return fail(fmt.Errorf("generate: %w", err))
	}
	if req.RetainData {
		trial.Data = ds
	}
	s.logger.Trace("[SimulationService] row %d generated %d observations", cond.Row, ds.Len())

	rec, err := analyzer.Analyze(ctx, ds, cond.Params)
	trial.Record = rec
	trial.Duration = time.Since(start)
	if err != nil {
		trial.Err = err.Error()
		return trial, fmt.Errorf("analyze: %w", err)
	}
	return trial, nil
}
