// Package testutil builds databases, services and fixtures for tests.
package testutil

import (
	"testing"

	"github.com/localnerve/eventsdb/internal/cache"
	"github.com/localnerve/eventsdb/internal/config"
	"github.com/localnerve/eventsdb/internal/database"
	"github.com/localnerve/eventsdb/internal/search"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/localnerve/eventsdb/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB creates a migrated in-memory SQLite database holding the root
// page and the root collection
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(database.SQLiteDialector(database.SQLiteCGO, ":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	// every connection to :memory: is a new database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	if err := services.EnsureRoots(db); err != nil {
		t.Fatalf("Failed to create roots: %v", err)
	}

	return db
}

// TestConfig is a development configuration for tests
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:              config.EnvDevelopment,
		DBType:           "sqlite",
		DBDatabase:       ":memory:",
		LoginURL:         "/login/",
		AccessModel:      config.AccessRestriction,
		CategoryOnDelete: config.OnDeleteProtect,
		MediaRoot:        t.TempDir(),
		MediaURL:         "/media/",
		CacheTTLSeconds:  60,
		AllowedHosts:     []string{"*"},
	}
}

// NewTestService wires a Service over a fresh database, temporary media
// storage, an in-memory search index and an in-memory cache. mutate may
// adjust the configuration first.
func NewTestService(t *testing.T, mutate func(*config.Config)) *services.Service {
	t.Helper()

	cfg := TestConfig(t)
	if mutate != nil {
		mutate(cfg)
	}

	store, err := storage.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	index, err := search.NewMemOnly()
	if err != nil {
		t.Fatalf("Failed to create search index: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })

	return services.New(NewTestDB(t), cfg, store, index, cache.NewMemoryCache())
}
