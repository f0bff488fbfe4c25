// Package persistence selects and opens the configured progress store.
package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/infrastructure/persistence/bolt"
	"github.com/hampton/progress-tracker/internal/infrastructure/persistence/file"
	"github.com/hampton/progress-tracker/internal/infrastructure/persistence/sqlite"
)

// Supported store drivers.
const (
	DriverFile   = "file"
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

// Config selects a store.
type Config struct {
	// Driver is one of file, bolt, sqlite.
	Driver string

	// Path is the document or database location. When empty, a file named
	// after the driver is placed in Dir.
	Path string

	// Dir is the data directory used to derive Path.
	Dir string

	// Key identifies the document inside bolt and sqlite databases.
	Key string

	// HistoryLimit caps history entries kept by bolt and sqlite.
	HistoryLimit int

	Logger *slog.Logger
}

// ResolvedPath returns the location the store will use.
func (c Config) ResolvedPath() string {
	if c.Path != "" {
		return c.Path
	}
	dir := c.Dir
	if dir == "" {
		dir = "."
	}
	switch strings.ToLower(c.Driver) {
	case DriverBolt:
		return filepath.Join(dir, "progress.bolt")
	case DriverSQLite:
		return filepath.Join(dir, "progress.db")
	default:
		return filepath.Join(dir, "progress.json")
	}
}

// Open opens the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (progress.Repository, error) {
	path := cfg.ResolvedPath()

	switch strings.ToLower(cfg.Driver) {
	case "", DriverFile:
		return file.Open(path)

	case DriverBolt:
		bc := bolt.DefaultConfig(path)
		if cfg.Key != "" {
			bc.Key = cfg.Key
		}
		if cfg.HistoryLimit > 0 {
			bc.HistoryLimit = cfg.HistoryLimit
		}
		bc.Logger = cfg.Logger
		return bolt.Open(bc)

	case DriverSQLite:
		sc := sqlite.DefaultConfig(path)
		if cfg.Key != "" {
			sc.Key = cfg.Key
		}
		if cfg.HistoryLimit > 0 {
			sc.HistoryLimit = cfg.HistoryLimit
		}
		sc.Logger = cfg.Logger
		return sqlite.Open(ctx, sc)

	default:
		return nil, fmt.Errorf("unknown store driver %q (want file, bolt or sqlite)", cfg.Driver)
	}
}
