package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"gosim/adapters/postgres"
	"gosim/internal/config"
	"gosim/internal/migration"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	databaseURL := appConfig.Database.URL
	if len(os.Args) > 1 {
		databaseURL = os.Args[1]
	}
	if len(os.Args) > 2 {
		log.Fatal("Usage: migrate [database_url]")
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, databaseURL, 1)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner(appConfig.Database.MigrationsTable)
	// a fresh database has no migrations table yet
	before, _ := runner.Applied(ctx, db)
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	after, err := runner.Applied(ctx, db)
	if err != nil {
		log.Fatalf("Failed to read applied migrations: %v", err)
	}

	log.Printf("Schema at version %s: %d migrations applied now, %d total", runner.Version(), len(after)-len(before), len(after))
}
