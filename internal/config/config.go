// Package config loads pipeline configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// StoreBackend selects the artifact store implementation.
type StoreBackend string

const (
	StoreBadger   StoreBackend = "badger"
	StorePostgres StoreBackend = "postgres"
)

// Config is the complete runtime configuration.
type Config struct {
	Store   StoreConfig
	Compute ComputeConfig
	Server  ServerConfig
	Output  OutputConfig
}

// StoreConfig selects and parameterizes the artifact store.
type StoreConfig struct {
	Backend StoreBackend
	// BadgerDir is the local database directory (badger backend).
	BadgerDir string
	// PostgresURL is the DSN for the shared store (postgres backend).
	PostgresURL string
}

// ComputeConfig bounds the pipeline's parallelism and randomness.
type ComputeConfig struct {
	Workers      int
	Seed         int64
	Permutations int
}

// ServerConfig holds the artifact API settings.
type ServerConfig struct {
	Addr string
}

// OutputConfig holds report export paths.
type OutputConfig struct {
	SummaryXLSX string
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Store: StoreConfig{
			Backend:     StoreBackend(envOr("STORE_BACKEND", string(StoreBadger))),
			BadgerDir:   envOr("BADGER_DIR", "./artifacts"),
			PostgresURL: os.Getenv("POSTGRES_URL"),
		},
		Compute: ComputeConfig{
			Workers:      envInt("WORKERS", 0),
			Seed:         int64(envInt("SEED", 42)),
			Permutations: envInt("PERMUTATIONS", 1024),
		},
		Server: ServerConfig{
			Addr: envOr("API_ADDR", ":8080"),
		},
		Output: OutputConfig{
			SummaryXLSX: envOr("SUMMARY_XLSX", "summary.xlsx"),
		},
	}

	switch cfg.Store.Backend {
	case StoreBadger:
		if cfg.Store.BadgerDir == "" {
			return nil, fmt.Errorf("BADGER_DIR is required for the badger backend")
		}
	case StorePostgres:
		if cfg.Store.PostgresURL == "" {
			return nil, fmt.Errorf("POSTGRES_URL is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend)
	}
	if cfg.Compute.Permutations < 1 {
		return nil, fmt.Errorf("PERMUTATIONS must be positive, got %d", cfg.Compute.Permutations)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
