// Package testsupport provides helpers for building test configurations and
// opening throwaway catalog stores.
package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"popcorn/internal/catalog"
	"popcorn/internal/config"
	"popcorn/internal/identity"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Users = []config.User{
		{ID: "alice", Name: "Alice", Permissions: []string{"all"}},
		{ID: "bob", Name: "Bob", Permissions: []string{"genre", "country"}},
		{ID: "vera", Name: "Vera", Verifier: true, Permissions: []string{"all"}},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithUsers replaces the account list on the test config.
func WithUsers(users ...config.User) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Users = users
	}
}

// WithStaleRetryAttempts overrides the engine retry bound on the test config.
func WithStaleRetryAttempts(attempts int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Engine.StaleRetryAttempts = attempts
	}
}

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewAuthorizer builds a static authorizer from the config's user list.
func NewAuthorizer(t testing.TB, cfg *config.Config) *identity.Static {
	t.Helper()

	auth, err := identity.FromConfig(cfg)
	if err != nil {
		t.Fatalf("identity.FromConfig: %v", err)
	}
	return auth
}

// NewRecord creates a record for tests using the provided store.
func NewRecord(t testing.TB, store *catalog.Store, title string) *catalog.Record {
	t.Helper()

	record, err := store.CreateRecord(context.Background(), title)
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	return record
}
