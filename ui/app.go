// Package ui serves a small HTML browser over stored runs. Summary and
// multiverse tables are written as Markdown and rendered with gomarkdown.
package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gosim/internal"
	"gosim/ports"
)

//go:embed templates/*.html static/*
var embeddedFiles embed.FS

// App represents the UI application
type App struct {
	router    *chi.Mux
	runs      ports.RunRepository
	templates *template.Template
	digits    int
	logger    *internal.Logger
}

// Config holds UI application configuration
type Config struct {
	Port   string
	Digits int
}

// NewApp creates the UI over a run repository
func NewApp(config Config, runs ports.RunRepository, logger *internal.Logger) (*App, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	funcMap := template.FuncMap{
		"short": func(s string) string {
			if len(s) > 8 {
				return s[:8]
			}
			return s
		},
		"pct": func(x float64) string { return fmt.Sprintf("%.1f%%", 100*x) },
		"ms":  func(d time.Duration) string { return d.Round(time.Millisecond).String() },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	digits := config.Digits
	if digits <= 0 {
		digits = 3
	}
	app := &App{
		router:    chi.NewRouter(),
		runs:      runs,
		templates: templates,
		digits:    digits,
		logger:    logger,
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))

	staticFS := http.FileServer(http.FS(embeddedFiles))
	a.router.Handle("/static/*", staticFS)
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/runs/{id}", a.handleRun)
	a.router.Get("/runs/{id}/summary.xlsx", a.handleExport)
}

// Handler exposes the router
func (a *App) Handler() http.Handler {
	return a.router
}

// renderTemplate executes into a buffer first so template errors become a
// clean 500
func (a *App) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, name, data); err != nil {
		a.logger.Error("[UI] template %s: %v", name, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		a.logger.Warn("[UI] write response: %v", err)
	}
}
