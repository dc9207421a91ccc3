// README: Entry point; loads config, wires services, starts HTTP server and the booking sweep ticker.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"shuttle/internal/app"
	"shuttle/internal/config"
	httptransport "shuttle/internal/http"
	"shuttle/internal/infra"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := infra.NewLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	router := httptransport.NewRouter(a.RouterDeps(), logger)
	server := httptransport.NewServer(cfg.HTTP.Addr, router, logger)

	go a.Booking.RunSweepTicker(ctx, cfg.Sweep.Interval)

	if err := server.Run(ctx); err != nil {
		logger.Error("http server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
