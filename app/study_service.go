package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gosim/domain/core"
	"gosim/domain/design"
	"gosim/domain/result"
	"gosim/domain/run"
	"gosim/domain/study"
	"gosim/domain/summary"
	"gosim/internal"
	apperrors "gosim/internal/errors"
	"gosim/ports"
)

// CodeVersion is recorded in every run manifest. Bump it whenever a
// generator or analyzer changes what it computes for a given seed.
const CodeVersion = "gosim/0.3.0"

// DefaultMetricName is the metric added to studies that declare none
const DefaultMetricName = "rejection_rate"

// StudyService resolves a study against the catalogs, runs it and stores
// the outcome
type StudyService struct {
	generators ports.GeneratorCatalog
	analyzers  ports.AnalyzerCatalog
	simulator  *SimulationService
	runRepo    ports.RunRepository // optional
	logger     *internal.Logger
}

// Plan is a study checked against the catalogs and ready to run
type Plan struct {
	Study     *study.Study
	Grid      *design.ConditionTable
	Generator ports.GeneratorPort
	Analyzer  ports.AnalyzerPort
	Metrics   []summary.Metric
	Hash      core.StudyHash
}

// ExecuteOptions override study settings for one execution
type ExecuteOptions struct {
	Workers    int
	OnProgress func(done, total int)
}

// StudyResult is everything one execution produced
type StudyResult struct {
	Run     *run.Run
	Grid    *design.ConditionTable
	Trials  *result.Table
	Summary *summary.Table
}

// NewStudyService creates a study service. runRepo may be nil, in which
// case results are returned but not stored.
func NewStudyService(
	generators ports.GeneratorCatalog,
	analyzers ports.AnalyzerCatalog,
	simulator *SimulationService,
	runRepo ports.RunRepository,
	logger *internal.Logger,
) *StudyService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &StudyService{
		generators: generators,
		analyzers:  analyzers,
		simulator:  simulator,
		runRepo:    runRepo,
		logger:     logger,
	}
}

// Prepare resolves the generator and analyzer, builds the grid and checks
// every cell before anything is simulated. Parameter errors that would hit
// every replication of a cell are reported here rather than as missing
// records.
func (s *StudyService) Prepare(st *study.Study) (*Plan, error) {
	if st == nil {
		return nil, apperrors.ValidationError("no study given")
	}
	st.ApplyDefaults()
	if err := st.Validate(); err != nil {
		return nil, apperrors.Wrap(err, "invalid study")
	}

	gen, err := s.generators.Generator(st.Generator)
	if err != nil {
		return nil, apperrors.Wrap(err, "resolve generator")
	}
	an, err := s.analyzers.Analyzer(st.Analyzer)
	if err != nil {
		return nil, apperrors.Wrap(err, "resolve analyzer")
	}

	if _, err := st.Rows(); err != nil {
		return nil, apperrors.Wrap(err, "build condition grid")
	}
	grid, err := st.Grid()
	if err != nil {
		return nil, apperrors.Wrap(err, "build condition grid")
	}

	metrics, err := resolveMetrics(st, an)
	if err != nil {
		return nil, apperrors.Wrap(err, "resolve metrics")
	}

	consumed := consumedParams(gen, an, metrics)
	for _, axis := range grid.Axes {
		if !consumed[axis.Name] {
			return nil, apperrors.Wrap(fmt.Errorf("%w: %s", core.ErrUnboundAxis, axis.Name), "check axes")
		}
	}
	for _, name := range st.Fixed.Names() {
		if !consumed[name] {
			s.logger.Warn("[StudyService] fixed parameter %s is not read by %s or %s", name, gen.Name(), an.Name())
		}
	}

	for cell := 0; cell < grid.Cells(); cell++ {
		if err := checkCell(grid, cell, gen, an, metrics); err != nil {
			return nil, apperrors.Wrapf(err, "cell %s", grid.CellKey(grid.Rows[cell*grid.Replications]))
		}
	}

	hash, err := st.Hash()
	if err != nil {
		return nil, apperrors.Wrap(err, "hash study")
	}

	s.logger.Debug("[StudyService] prepared %s (hash %s)", st.Summary(), core.Hash(hash).Short())
	return &Plan{
		Study:     st,
		Grid:      grid,
		Generator: gen,
		Analyzer:  an,
		Metrics:   metrics,
		Hash:      hash,
	}, nil
}

// Execute runs a prepared plan, summarizes it and stores the run when a
// repository is configured
func (s *StudyService) Execute(ctx context.Context, plan *Plan, opts ExecuteOptions) (*StudyResult, error) {
	st := plan.Study
	workers := opts.Workers
	if workers <= 0 {
		workers = st.Workers
	}

	manifest := run.NewRunManifest(
		core.NewRunID(),
		st.Name,
		plan.Generator.Name(),
		plan.Analyzer.Name(),
		plan.Hash,
		st.Seed,
		st.Replications,
		plan.Grid.Cells(),
		workers,
		CodeVersion,
	)
	if err := manifest.Validate(); err != nil {
		return nil, apperrors.Wrap(err, "invalid run manifest")
	}
	s.logger.Info("[StudyService] run %s: %s", manifest.RunID, st.Summary())

	start := time.Now()
	trials, err := s.simulator.Run(ctx, RunRequest{
		Table:      plan.Grid,
		Generator:  plan.Generator,
		Analyzer:   plan.Analyzer,
		Seed:       st.Seed,
		Workers:    workers,
		RetainData: st.RetainData,
		FailFast:   st.FailFast,
		OnProgress: opts.OnProgress,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.SimulationError(fmt.Sprintf("run %s cancelled", manifest.RunID), err)
		}
		return nil, apperrors.SimulationError(fmt.Sprintf("run %s failed", manifest.RunID), err)
	}

	sum, err := Aggregate(plan.Grid, trials, plan.Metrics)
	if err != nil {
		return nil, apperrors.SimulationError("summarize run", err)
	}

	r := &run.Run{
		Manifest: manifest,
		Status:   run.StatusCompleted,
		Trials:   trials.Len(),
		Failures: trials.FailureCount(),
		Elapsed:  time.Since(start),
	}

	if s.runRepo != nil {
		if err := s.runRepo.SaveRun(ctx, r, trials, sum); err != nil {
			return nil, apperrors.DatabaseError("save run", err)
		}
		s.logger.Debug("[StudyService] stored run %s", manifest.RunID)
	}

	return &StudyResult{Run: r, Grid: plan.Grid, Trials: trials, Summary: sum}, nil
}

// RunStudy prepares and executes a study in one step
func (s *StudyService) RunStudy(ctx context.Context, st *study.Study, opts ExecuteOptions) (*StudyResult, error) {
	plan, err := s.Prepare(st)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, plan, opts)
}

// resolveMetrics returns the declared metrics, or the rejection rate at the
// study's alpha when none are declared and the analyzer reports a p-value
func resolveMetrics(st *study.Study, an ports.AnalyzerPort) ([]summary.Metric, error) {
	fields := an.Fields()
	metrics := st.Metrics
	if len(metrics) == 0 {
		if !fields.Has("p_value") {
			return nil, fmt.Errorf("%w: %s reports no p_value, declare metrics explicitly", core.ErrInvalidStudy, an.Name())
		}
		metrics = []summary.Metric{summary.RejectionRate(DefaultMetricName, st.Alpha)}
	}
	for _, m := range metrics {
		if err := m.Validate(fields); err != nil {
			return nil, err
		}
	}
	return metrics, nil
}

// consumedParams is the set of parameter names read by the generator, the
// analyzer or a metric truth
func consumedParams(gen ports.GeneratorPort, an ports.AnalyzerPort, metrics []summary.Metric) map[string]bool {
	consumed := make(map[string]bool)
	for _, spec := range gen.Params() {
		consumed[spec.Name] = true
	}
	for _, spec := range an.Params() {
		consumed[spec.Name] = true
	}
	for _, m := range metrics {
		for _, name := range m.TruthParams() {
			consumed[name] = true
		}
	}
	return consumed
}

func checkCell(grid *design.ConditionTable, cell int, gen ports.GeneratorPort, an ports.AnalyzerPort, metrics []summary.Metric) error {
	params := grid.Rows[cell*grid.Replications].Params
	if err := gen.Validate(params); err != nil {
		return fmt.Errorf("%s: %w", gen.Name(), err)
	}
	if err := an.Accepts(gen.Schema(), params); err != nil {
		return fmt.Errorf("%s: %w", an.Name(), err)
	}
	for _, m := range metrics {
		if m.Truth == nil {
			continue
		}
		if _, err := m.Truth.Resolve(params); err != nil {
			return fmt.Errorf("metric %s truth %s: %w", m.Name, m.Truth, err)
		}
	}
	return nil
}

// CatalogEntry describes one generator or analyzer for listings
type CatalogEntry struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Params      []ports.ParamSpec `json:"params"`
	Columns     []string          `json:"columns,omitempty"`
	Fields      []string          `json:"fields,omitempty"`
}

// Catalog lists every generator and analyzer, generators first, each
// sorted by name
func (s *StudyService) Catalog() []CatalogEntry {
	var entries []CatalogEntry
	gens := s.generators.Generators()
	sort.Slice(gens, func(i, j int) bool { return gens[i].Name() < gens[j].Name() })
	for _, g := range gens {
		entries = append(entries, CatalogEntry{
			Kind:        "generator",
			Name:        g.Name(),
			Description: g.Description(),
			Params:      g.Params(),
			Columns:     g.Schema().Names(),
		})
	}
	ans := s.analyzers.Analyzers()
	sort.Slice(ans, func(i, j int) bool { return ans[i].Name() < ans[j].Name() })
	for _, a := range ans {
		entries = append(entries, CatalogEntry{
			Kind:        "analyzer",
			Name:        a.Name(),
			Description: a.Description(),
			Params:      a.Params(),
			Fields:      a.Fields(),
		})
	}
	return entries
}
