package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/langowen/ratesconverter/deploy/config"
	"github.com/langowen/ratesconverter/internal/rates_api/app"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalln("Failed to load config", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	ratesApp := app.NewApp(cfg)
	appDone := ratesApp.Start(ctx)

	done := make(chan os.Signal, 1)

	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-done
	slog.Info("Gracefully shutting down")

	cancel()
	slog.Info("stopping server")

	<-appDone
	slog.Info("server stopped")
}
