// README: Prints the operations digest for the current snapshot (Gemini when configured, rules otherwise).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"shuttle/internal/app"
	"shuttle/internal/config"
	"shuttle/internal/infra"
)

func main() {
	withSnapshot := flag.Bool("json", false, "also print the snapshot as JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := infra.NewLogger(cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer a.Close()

	snap, err := a.Analytics.Snapshot(ctx, time.Now())
	if err != nil {
		log.Fatalf("snapshot: %v", err)
	}
	digest, err := a.Summarizer.Digest(ctx, snap)
	if err != nil {
		log.Fatalf("digest: %v", err)
	}

	fmt.Printf("%s\n\n", digest.Headline)
	for _, h := range digest.Highlights {
		fmt.Printf("  + %s\n", h)
	}
	for _, r := range digest.Risks {
		fmt.Printf("  ! %s\n", r)
	}
	if *withSnapshot {
		out, _ := json.MarshalIndent(snap, "", "  ")
		fmt.Println(string(out))
	}
}
