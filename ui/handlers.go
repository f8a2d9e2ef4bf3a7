package ui

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gosim/adapters/excel"
	"gosim/adapters/report"
	"gosim/domain/core"
	"gosim/domain/run"
	"gosim/domain/summary"
	"gosim/internal/multiverse"
)

const pageSize = 50

type indexPage struct {
	Runs   []*run.Run
	Offset int
	Next   int
	Prev   int
}

type runPage struct {
	Run        *run.Run
	Summary    template.HTML
	Multiverse template.HTML
	Outcome    string
	Metrics    []string
	Notice     string
}

// renderMarkdown turns a Markdown document into HTML. Raw HTML in the input
// is dropped.
func renderMarkdown(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML})
	return template.HTML(markdown.ToHTML([]byte(md), p, r))
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			http.Error(w, "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}
		offset = v
	}
	runs, err := a.runs.ListRuns(r.Context(), pageSize, offset)
	if err != nil {
		a.logger.Error("[UI] list runs: %v", err)
		http.Error(w, "Failed to load runs", http.StatusInternalServerError)
		return
	}

	page := indexPage{Runs: runs, Offset: offset, Prev: -1, Next: -1}
	if offset > 0 {
		page.Prev = max(offset-pageSize, 0)
	}
	if len(runs) == pageSize {
		page.Next = offset + pageSize
	}
	a.renderTemplate(w, "index.html", page)
}

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	rn, sum, ok := a.loadRun(w, r)
	if !ok {
		return
	}

	page := runPage{
		Run:     rn,
		Summary: renderMarkdown(report.Markdown(sum, "", a.digits)),
		Metrics: sum.Metrics,
		Outcome: r.URL.Query().Get("outcome"),
	}
	if page.Outcome == "" && len(sum.Metrics) > 0 {
		page.Outcome = sum.Metrics[0]
	}
	if page.Outcome != "" {
		mv, err := multiverse.Build(sum, multiverse.Options{Outcome: page.Outcome})
		if err != nil {
			page.Notice = err.Error()
		} else {
			page.Multiverse = renderMarkdown(report.MultiverseMarkdown(mv, "", a.digits))
		}
	}
	a.renderTemplate(w, "run.html", page)
}

func (a *App) handleExport(w http.ResponseWriter, r *http.Request) {
	rn, sum, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	trials, err := a.runs.GetTrials(r.Context(), rn.Manifest.RunID)
	if err != nil {
		a.logger.Error("[UI] load trials for %s: %v", rn.Manifest.RunID, err)
		http.Error(w, "Failed to load trials", http.StatusInternalServerError)
		return
	}

	opts := excel.Options{Digits: a.digits, Trials: trials}
	if len(sum.Metrics) > 0 && len(sum.Rows) > 0 {
		if mv, err := multiverse.Build(sum, multiverse.Options{Outcome: sum.Metrics[0]}); err == nil {
			opts.Multiverse = mv
		}
	}
	var buf bytes.Buffer
	if err := excel.Write(&buf, sum, opts); err != nil {
		a.logger.Error("[UI] export %s: %v", rn.Manifest.RunID, err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-summary.xlsx"`, rn.Manifest.RunID))
	w.Write(buf.Bytes())
}

// loadRun fetches the run named in the URL with its summary, answering 404
// for unknown ids
func (a *App) loadRun(w http.ResponseWriter, r *http.Request) (*run.Run, *summary.Table, bool) {
	id, err := core.ParseRunID(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	rn, err := a.runs.GetRun(r.Context(), id)
	if err == nil {
		var sum *summary.Table
		sum, err = a.runs.GetSummary(r.Context(), id)
		if err == nil {
			return rn, sum, true
		}
	}
	if errors.Is(err, core.ErrNotFound) {
		http.Error(w, fmt.Sprintf("run %s not found", id), http.StatusNotFound)
		return nil, nil, false
	}
	a.logger.Error("[UI] load run %s: %v", id, err)
	http.Error(w, "Failed to load run", http.StatusInternalServerError)
	return nil, nil, false
}
