package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosim/app"
	"gosim/internal/testkit"
)

func newTestApp(t *testing.T) (*App, *app.StudyResult) {
	t.Helper()
	kit := testkit.NewTestKit()
	repo := testkit.NewInMemoryRunRepository()
	sim := app.NewSimulationService(kit.RNGAdapter(), kit.Logger())
	svc := app.NewStudyService(kit.Generators(), kit.Analyzers(), sim, repo, kit.Logger())
	res, err := svc.RunStudy(context.Background(), testkit.TwoGroupStudy(10, 5), app.ExecuteOptions{Workers: 2})
	require.NoError(t, err)

	a, err := NewApp(Config{Digits: 3}, repo, kit.Logger())
	require.NoError(t, err)
	return a, res
}

func get(a *App, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndex_ListsRuns(t *testing.T) {
	a, res := newTestApp(t)
	rec := get(a, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "/runs/"+string(res.Run.Manifest.RunID))
	assert.Contains(t, body, "two_group_ttest")

	assert.Equal(t, http.StatusBadRequest, get(a, "/?offset=-1").Code)
}

func TestRunPage_RendersMarkdownTables(t *testing.T) {
	a, res := newTestApp(t)
	rec := get(a, "/runs/"+string(res.Run.Manifest.RunID))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, "<th>mean_intervention</th>")
	assert.Contains(t, body, "power_mcse")
	assert.Equal(t, 2, strings.Count(body, "<table>"), "summary and multiverse tables")
	assert.Contains(t, body, `<option value="coverage"`)
}

func TestRunPage_UnknownOutcomeShowsNotice(t *testing.T) {
	a, res := newTestApp(t)
	rec := get(a, "/runs/"+string(res.Run.Manifest.RunID)+"?outcome=nope")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="notice"`)
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "<table>"))
}

func TestRunPage_NotFound(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Equal(t, http.StatusNotFound, get(a, "/runs/does-not-exist").Code)
	assert.Equal(t, http.StatusNotFound, get(a, "/runs/does-not-exist/summary.xlsx").Code)
}

func TestExport(t *testing.T) {
	a, res := newTestApp(t)
	rec := get(a, "/runs/"+string(res.Run.Manifest.RunID)+"/summary.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "summary.xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestStatic(t *testing.T) {
	a, _ := newTestApp(t)
	rec := get(a, "/static/style.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "border-collapse")
}
