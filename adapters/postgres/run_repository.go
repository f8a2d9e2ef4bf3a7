package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gosim/domain/core"
	"gosim/domain/design"
	"gosim/domain/result"
	"gosim/domain/run"
	"gosim/domain/summary"
	"gosim/internal/errors"
	"gosim/ports"
)

// timeLayout is fixed width so text timestamps sort chronologically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RunRepositoryImpl implements RunRepository with sqlx. Queries are written
// with ? placeholders and rebound for the connected driver.
type RunRepositoryImpl struct {
	db *sqlx.DB
}

var _ ports.RunRepository = (*RunRepositoryImpl)(nil)

// NewRunRepository creates a run repository on db
func NewRunRepository(db *sqlx.DB) *RunRepositoryImpl {
	return &RunRepositoryImpl{db: db}
}

type runRow struct {
	ID           string `db:"id"`
	StudyName    string `db:"study_name"`
	Generator    string `db:"generator"`
	Analyzer     string `db:"analyzer"`
	StudyHash    string `db:"study_hash"`
	Seed         int64  `db:"seed"`
	Replications int    `db:"replications"`
	Cells        int    `db:"cells"`
	Workers      int    `db:"workers"`
	CodeVersion  string `db:"code_version"`
	Fingerprint  string `db:"fingerprint"`
	Status       string `db:"status"`
	Trials       int    `db:"trials"`
	Failures     int    `db:"failures"`
	ElapsedMs    int64  `db:"elapsed_ms"`
	ErrorMessage string `db:"error_message"`
	Fields       string `db:"fields"`
	CreatedAt    string `db:"created_at"`
}

const runColumns = `id, study_name, generator, analyzer, study_hash, seed, replications, cells, workers,
	code_version, fingerprint, status, trials, failures, elapsed_ms, error_message, fields, created_at`

func (row runRow) toRun() (*run.Run, error) {
	created, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad created_at %q: %w", row.ID, row.CreatedAt, err)
	}
	m := &run.RunManifest{
		RunID:        core.RunID(row.ID),
		StudyName:    row.StudyName,
		Generator:    row.Generator,
		Analyzer:     row.Analyzer,
		StudyHash:    core.StudyHash(row.StudyHash),
		Seed:         row.Seed,
		Replications: row.Replications,
		Cells:        row.Cells,
		Workers:      row.Workers,
		CodeVersion:  row.CodeVersion,
		Fingerprint:  run.NewRunFingerprint(core.StudyHash(row.StudyHash), row.Seed, row.CodeVersion),
		CreatedAt:    core.NewTimestamp(created),
	}
	if string(m.Fingerprint.Fingerprint) != row.Fingerprint {
		return nil, fmt.Errorf("%w: run %s fingerprint does not match its manifest", core.ErrNonDeterministic, row.ID)
	}
	return &run.Run{
		Manifest: m,
		Status:   run.Status(row.Status),
		Trials:   row.Trials,
		Failures: row.Failures,
		Elapsed:  time.Duration(row.ElapsedMs) * time.Millisecond,
		Error:    row.ErrorMessage,
	}, nil
}

// SaveRun writes the run, its trials and its summary in one transaction.
// Saving an existing run id replaces it.
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, rn *run.Run, trials *result.Table, sum *summary.Table) error {
	m := rn.Manifest
	if err := m.Validate(); err != nil {
		return err
	}
	fields := "[]"
	if trials != nil {
		data, err := json.Marshal(trials.Schema)
		if err != nil {
			return err
		}
		fields = string(data)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("begin save run", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			trials = excluded.trials,
			failures = excluded.failures,
			elapsed_ms = excluded.elapsed_ms,
			error_message = excluded.error_message,
			fields = excluded.fields`),
		m.RunID.String(), m.StudyName, m.Generator, m.Analyzer, string(m.StudyHash), m.Seed,
		m.Replications, m.Cells, m.Workers, m.CodeVersion, string(m.Fingerprint.Fingerprint),
		string(rn.Status), rn.Trials, rn.Failures, rn.Elapsed.Milliseconds(), rn.Error, fields,
		m.CreatedAt.Time().UTC().Format(timeLayout),
	)
	if err != nil {
		return errors.DatabaseError("insert run", err)
	}

	for _, table := range []string{"trials", "summary_rows", "summaries"} {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE run_id = ?"), m.RunID.String()); err != nil {
			return errors.DatabaseError("clear "+table, err)
		}
	}

	if trials != nil {
		if err := insertTrials(ctx, tx, m.RunID, trials); err != nil {
			return err
		}
	}
	if sum != nil {
		if err := insertSummary(ctx, tx, m.RunID, sum); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("commit save run", err)
	}
	return nil
}

func insertTrials(ctx context.Context, tx *sqlx.Tx, id core.RunID, trials *result.Table) error {
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO trials (run_id, row_index, cell_index, rep, missing, reason, record)
		VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return errors.DatabaseError("prepare trial insert", err)
	}
	defer stmt.Close()

	for _, row := range ports.TrialRows(trials) {
		record, err := json.Marshal(row.Values)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, id.String(), row.Row, row.Cell, row.Rep, row.Missing, row.Reason, string(record)); err != nil {
			return errors.DatabaseError(fmt.Sprintf("insert trial %d", row.Row), err)
		}
	}
	return nil
}

func insertSummary(ctx context.Context, tx *sqlx.Tx, id core.RunID, sum *summary.Table) error {
	axes, err := json.Marshal(sum.Axes)
	if err != nil {
		return err
	}
	metrics, err := json.Marshal(sum.Metrics)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO summaries (run_id, axes, metrics) VALUES (?, ?, ?)"),
		id.String(), string(axes), string(metrics)); err != nil {
		return errors.DatabaseError("insert summary", err)
	}

	for _, row := range sum.Rows {
		params, err := json.Marshal(row.Params)
		if err != nil {
			return err
		}
		estimates, err := json.Marshal(row.Metrics)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO summary_rows (run_id, cell_index, cell_key, params, n, failed, failure_rate, estimates)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			id.String(), row.Cell, row.Key, string(params), row.N, row.Failed, row.FailureRate, string(estimates))
		if err != nil {
			return errors.DatabaseError(fmt.Sprintf("insert summary row %d", row.Cell), err)
		}
	}
	return nil
}

func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*run.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind("SELECT "+runColumns+" FROM runs WHERE id = ?"), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, errors.DatabaseError("get run", err)
	}
	return row.toRun()
}

// ListRuns returns runs newest first
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, limit, offset int) ([]*run.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		"SELECT "+runColumns+" FROM runs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"), limit, offset)
	if err != nil {
		return nil, errors.DatabaseError("list runs", err)
	}
	out := make([]*run.Run, 0, len(rows))
	for _, row := range rows {
		rn, err := row.toRun()
		if err != nil {
			return nil, err
		}
		out = append(out, rn)
	}
	return out, nil
}

type summaryRowRow struct {
	Cell        int     `db:"cell_index"`
	Key         string  `db:"cell_key"`
	Params      string  `db:"params"`
	N           int     `db:"n"`
	Failed      int     `db:"failed"`
	FailureRate float64 `db:"failure_rate"`
	Estimates   string  `db:"estimates"`
}

func (r *RunRepositoryImpl) GetSummary(ctx context.Context, id core.RunID) (*summary.Table, error) {
	var head struct {
		Axes    string `db:"axes"`
		Metrics string `db:"metrics"`
	}
	err := r.db.GetContext(ctx, &head, r.db.Rebind("SELECT axes, metrics FROM summaries WHERE run_id = ?"), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w %s: no summary", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, errors.DatabaseError("get summary", err)
	}

	sum := &summary.Table{}
	if err := json.Unmarshal([]byte(head.Axes), &sum.Axes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(head.Metrics), &sum.Metrics); err != nil {
		return nil, err
	}

	var rows []summaryRowRow
	err = r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT cell_index, cell_key, params, n, failed, failure_rate, estimates
		FROM summary_rows WHERE run_id = ? ORDER BY cell_index`), id.String())
	if err != nil {
		return nil, errors.DatabaseError("get summary rows", err)
	}
	for _, row := range rows {
		out := summary.Row{
			Cell:        row.Cell,
			Key:         row.Key,
			N:           row.N,
			Failed:      row.Failed,
			FailureRate: row.FailureRate,
		}
		var params design.Params
		if err := json.Unmarshal([]byte(row.Params), &params); err != nil {
			return nil, fmt.Errorf("summary row %d params: %w", row.Cell, err)
		}
		out.Params = params
		if err := json.Unmarshal([]byte(row.Estimates), &out.Metrics); err != nil {
			return nil, fmt.Errorf("summary row %d estimates: %w", row.Cell, err)
		}
		sum.Rows = append(sum.Rows, out)
	}
	return sum, nil
}

type trialRow struct {
	ports.TrialRow
	Record string `db:"record"`
}

func (r *RunRepositoryImpl) GetTrials(ctx context.Context, id core.RunID) ([]ports.TrialRow, error) {
	if _, err := r.GetRun(ctx, id); err != nil {
		return nil, err
	}
	var rows []trialRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT row_index, cell_index, rep, missing, reason, record
		FROM trials WHERE run_id = ? ORDER BY row_index`), id.String())
	if err != nil {
		return nil, errors.DatabaseError("get trials", err)
	}
	out := make([]ports.TrialRow, len(rows))
	for i, row := range rows {
		if err := json.Unmarshal([]byte(row.Record), &row.TrialRow.Values); err != nil {
			return nil, fmt.Errorf("trial %d record: %w", row.Row, err)
		}
		out[i] = row.TrialRow
	}
	return out, nil
}

func (r *RunRepositoryImpl) DeleteRun(ctx context.Context, id core.RunID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("begin delete run", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"trials", "summary_rows", "summaries"} {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE run_id = ?"), id.String()); err != nil {
			return errors.DatabaseError("delete "+table, err)
		}
	}
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM runs WHERE id = ?"), id.String())
	if err != nil {
		return errors.DatabaseError("delete run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w %s", core.ErrRunNotFound, id)
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("commit delete run", err)
	}
	return nil
}
