// Command mediarepair re-runs the media reorganization stage for listings
// whose reference fields still point at temporary session-scoped uploads,
// e.g. after a crash between record create and media migration. The pass is
// idempotent and safe to run while the application is serving traffic.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/brickworks/listings/internal/app"
	"github.com/brickworks/listings/internal/config"
	"github.com/brickworks/listings/internal/logger"
	"github.com/brickworks/listings/internal/repository"
)

func main() {
	recordID := flag.String("id", "", "repair a single record (default: all published and draft records)")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeErr := application.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	ctx := context.Background()

	if *recordID != "" {
		err = application.PropertyService.Reorganize(ctx, *recordID)
		if err != nil {
			slog.Error("media repair failed", "id", *recordID, "error", err)
			os.Exit(1)
		}
		slog.Info("media repair completed", "id", *recordID)
		return
	}

	properties, err := repository.NewPropertyRepository(application.DB).Find(repository.PropertyFilter{})
	if err != nil {
		slog.Error("failed to list records", "error", err)
		os.Exit(1)
	}

	failed := 0
	for _, p := range properties {
		err = application.PropertyService.Reorganize(ctx, p.ID)
		if err != nil {
			slog.Error("media repair failed", "id", p.ID, "error", err)
			failed++
		}
	}
	slog.Info("media repair completed", "records", len(properties), "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}
