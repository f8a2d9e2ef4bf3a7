package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"gosim/internal/config"
	"gosim/internal/container"
	"gosim/ui"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	if err := appContainer.Open(ctx); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer appContainer.Shutdown(ctx)

	app, err := ui.NewApp(ui.Config{
		Port:   appConfig.UI.Port,
		Digits: appConfig.Simulation.Digits,
	}, appContainer.RunRepo, appContainer.Logger)
	if err != nil {
		log.Fatal("Failed to create UI app:", err)
	}

	appContainer.Logger.Info("[UI] gosim runs browser on http://localhost:%s", appConfig.UI.Port)
	log.Fatal(http.ListenAndServe(":"+appConfig.UI.Port, app.Handler()))
}
