package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/sean-rowe/weather-app/internal/app"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	application, err := app.New()

	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Start(context.Background()); err != nil {
		log.Fatalf("failed to start application: %v", err)
	}

	application.WaitForShutdown()
	application.Stop()
}
