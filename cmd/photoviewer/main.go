package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aouyang1/photoslideshow/api/client"
	"github.com/aouyang1/photoslideshow/config"
	"github.com/aouyang1/photoslideshow/metrics"
	"github.com/aouyang1/photoslideshow/slideshow"
	"github.com/aouyang1/photoslideshow/viewer"
)

func main() {
	cfg, err := config.LoadViewer()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	slog.SetLogLoggerLevel(cfg.LogLevel)

	m := metrics.New()

	var clientOpts []client.Option
	if cfg.PageSize > 0 {
		clientOpts = append(clientOpts, client.WithPageSize(cfg.PageSize))
	}
	photoClient := client.NewPhotoClient(cfg.StoreURL, clientOpts...)

	ctrl := slideshow.NewController(photoClient,
		slideshow.WithMetrics(m),
		slideshow.WithSyncTimeout(cfg.SyncTimeout),
	)

	server, err := viewer.NewServer(ctrl, cfg.StoreURL, m)
	if err != nil {
		log.Fatalf("Failed to initialize viewer: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := ctrl.Run(ctx); err != nil {
			slog.Error("slideshow stopped with error", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("viewer listening", "addr", cfg.ListenAddr, "store", cfg.StoreURL)
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
	<-stopped
	slog.Info("viewer stopped")
}
