package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gosim/adapters/excel"
	"gosim/app"
	"gosim/domain/core"
	"gosim/domain/run"
	"gosim/domain/study"
	"gosim/domain/summary"
	apperrors "gosim/internal/errors"
	"gosim/internal/multiverse"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RunResponse is a run with its summary rounded for display
type RunResponse struct {
	Run     *run.Run       `json:"run"`
	Summary *summary.Table `json:"summary,omitempty"`
}

// createRun parses the body as a YAML or JSON study, runs it and returns the
// summary. With ?stream=<token> progress is published on /api/events.
func (s *Server) createRun(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		s.writeError(c, apperrors.InvalidInput("failed to read request body"))
		return
	}
	st, err := study.Parse(body)
	if err != nil {
		s.writeError(c, apperrors.Wrap(err, "invalid study"))
		return
	}

	if s.sim.MaxRows > 0 {
		rows, err := st.Rows()
		if err != nil {
			s.writeError(c, apperrors.Wrap(err, "invalid study"))
			return
		}
		if rows > s.sim.MaxRows {
			s.writeError(c, apperrors.ValidationError(fmt.Sprintf("study needs %d trials, the server allows %d", rows, s.sim.MaxRows)))
			return
		}
	}

	plan, err := s.studies.Prepare(st)
	if err != nil {
		s.writeError(c, err)
		return
	}

	opts := app.ExecuteOptions{Workers: s.sim.EffectiveWorkers(st.Workers)}
	if stream := c.Query("stream"); stream != "" {
		opts.OnProgress = s.hub.Reporter(stream)
	}
	res, err := s.studies.Execute(c.Request.Context(), plan, opts)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RunResponse{Run: res.Run, Summary: res.Summary.Round(st.Digits)})
}

func (s *Server) listRuns(c *gin.Context) {
	if !s.requireStorage(c) {
		return
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		s.writeError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.writeError(c, err)
		return
	}

	runs, err := s.runs.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "limit": limit, "offset": offset})
}

func (s *Server) getRun(c *gin.Context) {
	if !s.requireStorage(c) {
		return
	}
	id, ok := s.runID(c)
	if !ok {
		return
	}
	r, err := s.runs.GetRun(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	sum, err := s.runs.GetSummary(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RunResponse{Run: r, Summary: sum.Round(s.sim.Digits)})
}

func (s *Server) getTrials(c *gin.Context) {
	if !s.requireStorage(c) {
		return
	}
	id, ok := s.runID(c)
	if !ok {
		return
	}
	trials, err := s.runs.GetTrials(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "trials": trials})
}

// exportRun builds the XLSX workbook of a stored run. ?outcome=<metric>
// picks the multiverse outcome, the first metric by default.
func (s *Server) exportRun(c *gin.Context) {
	if !s.requireStorage(c) {
		return
	}
	id, ok := s.runID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sum, err := s.runs.GetSummary(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	trials, err := s.runs.GetTrials(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	opts := excel.Options{Digits: s.sim.Digits, Trials: trials}
	outcome := c.Query("outcome")
	if outcome == "" && len(sum.Metrics) > 0 {
		outcome = sum.Metrics[0]
	}
	if outcome != "" && len(sum.Rows) > 0 {
		mv, err := multiverse.Build(sum, multiverse.Options{Outcome: outcome})
		if err != nil {
			s.writeError(c, apperrors.Wrap(err, "multiverse table"))
			return
		}
		opts.Multiverse = mv
	}

	var buf bytes.Buffer
	if err := excel.Write(&buf, sum, opts); err != nil {
		s.writeError(c, apperrors.ExportError("xlsx", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-summary.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) deleteRun(c *gin.Context) {
	if !s.requireStorage(c) {
		return
	}
	id, ok := s.runID(c)
	if !ok {
		return
	}
	if err := s.runs.DeleteRun(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) runID(c *gin.Context) (core.RunID, bool) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		s.writeError(c, apperrors.InvalidInput(err.Error()))
		return "", false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.InvalidInput(fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return v, nil
}
