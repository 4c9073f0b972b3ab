package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/aouyang1/photoslideshow/api"
	"github.com/aouyang1/photoslideshow/config"
	"github.com/aouyang1/photoslideshow/metrics"
	"github.com/aouyang1/photoslideshow/store"
)

func main() {
	cfg, err := config.LoadStore()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	slog.SetLogLoggerLevel(cfg.LogLevel)

	// Initialize database
	dbPath := filepath.Join(cfg.RootPath, "photos.db")
	database, err := store.NewDatabase(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	library, err := api.NewLibrary(database, cfg.RootPath)
	if err != nil {
		log.Fatalf("Failed to initialize photo library: %v", err)
	}

	localManager, err := api.NewLocalManager(cfg.RootPath, cfg.InboxInterval, library)
	if err != nil {
		log.Fatalf("Failed to initialize local manager: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		localManager.Run(ctx)
	}()

	if cfg.S3Bucket != "" {
		bucket, err := api.NewS3Bucket(ctx, cfg.S3Bucket, cfg.AWSProfile)
		if err != nil {
			log.Fatalf("Failed to initialize remote manager: %v", err)
		}
		remoteManager := api.NewRemoteManager(bucket, library)
		wg.Add(1)
		go func() {
			defer wg.Done()
			remoteManager.Run(ctx)
		}()
	} else {
		slog.Info("PS_S3_BUCKET not set, remote import disabled")
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(database, library, metrics.New()).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("photo store listening", "addr", cfg.ListenAddr, "root", cfg.RootPath, "inbox", localManager.Path())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("graceful shutdown failed", "error", err)
		_ = srv.Close()
	}
	wg.Wait()
	slog.Info("photo store stopped")
}
