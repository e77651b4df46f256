package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/app"
)

func main() {
	// A missing .env is fine, the environment itself may carry everything.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
