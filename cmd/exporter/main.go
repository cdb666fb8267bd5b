// Command exporter writes the whole junction_data table to EXPORT_PATH as CSV.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"junctionflow/config"
	"junctionflow/export"
	"junctionflow/storage"
)

func main() {
	if err := run(); err != nil {
		log.Printf("export failed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := export.ToFile(ctx, store, cfg.Export.Path); err != nil {
		return err
	}
	fmt.Printf("data exported successfully to %s\n", cfg.Export.Path)
	return nil
}
