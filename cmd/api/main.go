package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"junctionflow/config"
	"junctionflow/handlers"
	"junctionflow/services"
	"junctionflow/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	if err := store.EnsureTable(ctx); err != nil {
		log.Fatalf("Failed to prepare junction_data: %v", err)
	}

	cache, err := services.NewCacheService(ctx, cfg.Redis)
	if err != nil {
		log.Printf("Redis unavailable, caching and live updates disabled: %v", err)
	}
	defer cache.Close()

	auth := services.NewAuthService(cfg.JWT)
	if !auth.Enabled() {
		log.Printf("JWT_SECRET not set, export endpoint is public")
	}

	gin.SetMode(gin.ReleaseMode)
	router := handlers.SetupRouter(cfg, store, cache, auth)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("Starting server on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
