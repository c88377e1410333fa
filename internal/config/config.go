// ABOUTME: Environment-driven runtime configuration for the pulse CLI.
// ABOUTME: Loaded once at startup and passed explicitly into the orchestrator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v6"

	"github.com/Adithyav2000/pulsecontext/internal/storage"
)

// Config holds everything the pipeline needs. Values come from the
// environment; unset fields fall back to XDG paths and reference defaults.
type Config struct {
	// DBPath is the SQLite database location.
	DBPath string `env:"PULSE_DB_PATH"`

	// CacheDir is the badger snapshot cache location.
	CacheDir string `env:"PULSE_CACHE_DIR"`

	// DefaultUser owns imported records when no --user flag is given.
	DefaultUser string `env:"PULSE_USER" envDefault:"default"`

	// UserName and UserTimezone seed the user row on first run.
	UserName     string `env:"PULSE_USER_NAME" envDefault:"Default User"`
	UserTimezone string `env:"PULSE_USER_TIMEZONE" envDefault:"UTC"`

	// BatchSize is the import flush threshold.
	BatchSize int `env:"PULSE_BATCH_SIZE" envDefault:"1000"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = storage.DefaultDBPath()
	} else {
		cfg.DBPath = ExpandPath(cfg.DBPath)
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(storage.DataDir(), "cache")
	} else {
		cfg.CacheDir = ExpandPath(cfg.CacheDir)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	return &cfg, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
