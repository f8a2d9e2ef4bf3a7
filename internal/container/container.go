package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gosim/adapters/analyzers"
	"gosim/adapters/generators"
	"gosim/adapters/postgres"
	"gosim/adapters/rng"
	"gosim/app"
	"gosim/internal"
	"gosim/internal/api"
	"gosim/internal/config"
	"gosim/internal/migration"
	"gosim/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	RunRepo ports.RunRepository

	// Simulation components
	Generators *generators.Catalog
	Analyzers  *analyzers.Catalog
	RNG        ports.RNGPort
	Simulator  *app.SimulationService
	Studies    *app.StudyService

	// Progress streaming for the API
	Hub *api.ProgressHub
}

// New creates a container with the catalogs and services that need no
// database. Studies run through it are not stored until InitWithDatabase.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level))
	c := &Container{
		Config:     cfg,
		Logger:     logger,
		Generators: generators.NewCatalog(),
		Analyzers:  analyzers.NewCatalog(),
		RNG:        rng.NewStreamAdapter(),
		Hub:        api.NewProgressHub(logger),
	}
	c.Simulator = app.NewSimulationService(c.RNG, logger)
	c.Studies = app.NewStudyService(c.Generators, c.Analyzers, c.Simulator, nil, logger)
	return c, nil
}

// Open connects to the configured database and initializes the container
// with it
func (c *Container) Open(ctx context.Context) error {
	db, err := postgres.Open(ctx, c.Config.Database.URL, c.Config.Database.MaxOpenConns)
	if err != nil {
		return err
	}
	if err := c.InitWithDatabase(ctx, db); err != nil {
		db.Close()
		return err
	}
	return nil
}

// InitWithDatabase migrates the schema and switches the study service to
// storing runs
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db

	migrator := migration.NewRunner(c.Config.Database.MigrationsTable)
	if err := migrator.Run(ctx, db); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}

	c.RunRepo = postgres.NewRunRepository(db)
	c.Studies = app.NewStudyService(c.Generators, c.Analyzers, c.Simulator, c.RunRepo, c.Logger)

	c.Logger.Info("[Container] initialized with database (schema version %s)", migrator.Version())
	return nil
}

// APIServer builds the HTTP API over the container's services
func (c *Container) APIServer() *api.Server {
	return api.NewServer(c.Studies, c.RunRepo, c.Hub, c.Config.Simulation, c.Logger)
}

// Shutdown releases the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		c.Logger.Debug("[Container] closing database")
		return c.DB.Close()
	}
	return nil
}
