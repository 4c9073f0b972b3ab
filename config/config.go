// Package config loads the settings of both binaries from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Viewer configures cmd/photoviewer.
type Viewer struct {
	ListenAddr  string
	StoreURL    string
	SyncTimeout time.Duration
	PageSize    int
	LogLevel    slog.Level
}

// Store configures cmd/photostore.
type Store struct {
	ListenAddr    string
	RootPath      string
	S3Bucket      string
	AWSProfile    string
	InboxInterval time.Duration
	LogLevel      slog.Level
}

// loadDotEnv reads .env when present. A missing file is normal.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("unable to load .env file", "error", err)
	}
}

func LoadViewer() (*Viewer, error) {
	loadDotEnv()

	cfg := &Viewer{
		ListenAddr: getenv("PV_LISTEN_ADDR", ":8080"),
		StoreURL:   strings.TrimRight(getenv("PV_STORE_URL", "http://localhost:5000"), "/"),
	}

	var err error
	if cfg.SyncTimeout, err = durationEnv("PV_SYNC_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = intEnv("PV_PAGE_SIZE", 0); err != nil {
		return nil, err
	}
	if cfg.PageSize < 0 {
		return nil, fmt.Errorf("PV_PAGE_SIZE must not be negative, got %d", cfg.PageSize)
	}
	if cfg.LogLevel, err = levelEnv("PV_LOG_LEVEL"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadStore() (*Store, error) {
	loadDotEnv()

	cfg := &Store{
		ListenAddr: getenv("PS_LISTEN_ADDR", ":5000"),
		RootPath:   getenv("PS_ROOT_PATH", "."),
		S3Bucket:   os.Getenv("PS_S3_BUCKET"),
		AWSProfile: os.Getenv("PS_AWS_PROFILE"),
	}

	var err error
	if cfg.InboxInterval, err = durationEnv("PS_INBOX_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.InboxInterval <= 0 {
		return nil, fmt.Errorf("PS_INBOX_INTERVAL must be positive, got %s", cfg.InboxInterval)
	}
	if cfg.LogLevel, err = levelEnv("PS_LOG_LEVEL"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func levelEnv(key string) (slog.Level, error) {
	var level slog.Level
	v := os.Getenv(key)
	if v == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return level, nil
}
