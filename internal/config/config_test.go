package config

import (
	"testing"
)

// TestLoad_Defaults verifies the badger backend defaults load without any
// environment
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Backend != StoreBadger {
		t.Errorf("Expected badger backend, got %s", cfg.Store.Backend)
	}
	if cfg.Compute.Permutations != 1024 {
		t.Errorf("Expected 1024 permutations, got %d", cfg.Compute.Permutations)
	}
	if cfg.Compute.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", cfg.Compute.Seed)
	}
}

// TestLoad_PostgresRequiresURL verifies the postgres backend demands a DSN
func TestLoad_PostgresRequiresURL(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("POSTGRES_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for postgres backend without a URL")
	}

	t.Setenv("POSTGRES_URL", "postgres://localhost/decode")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed with a URL: %v", err)
	}
	if cfg.Store.Backend != StorePostgres {
		t.Errorf("Expected postgres backend, got %s", cfg.Store.Backend)
	}
}

// TestLoad_RejectsUnknownBackend verifies unknown backends fail fast
func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	if _, err := Load(); err == nil {
		t.Fatal("Expected error for an unknown backend")
	}
}

// TestLoad_InvalidNumbersFallBack verifies unparsable numbers keep defaults
func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("PERMUTATIONS", "many")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Compute.Permutations != 1024 {
		t.Errorf("Expected default permutations, got %d", cfg.Compute.Permutations)
	}
}
