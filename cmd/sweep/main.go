// README: One-shot booking sweep for cron; exits non-zero when any transition failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"shuttle/internal/app"
	"shuttle/internal/config"
	"shuttle/internal/infra"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "overall sweep deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := infra.NewLogger(cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	applied, ran, err := a.Booking.SweepOnce(ctx)
	switch {
	case err != nil:
		logger.Error("sweep finished with errors", "applied", applied, "error", err)
		a.Close()
		os.Exit(1)
	case !ran:
		fmt.Println("sweep skipped: another run holds the lock")
	default:
		fmt.Printf("sweep applied %d transitions\n", applied)
	}
}
