package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localnerve/eventsdb/internal/cache"
	"github.com/localnerve/eventsdb/internal/database"
	"github.com/localnerve/eventsdb/internal/search"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/localnerve/eventsdb/internal/storage"
	"github.com/localnerve/eventsdb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContainerDatabase runs the page and document flow against a real
// database and Redis. Enable with TESTCONTAINERS=true.
func TestContainerDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	containers, err := testutil.ContainersFromEnv(ctx, t.Logf)
	if errors.Is(err, testutil.ErrContainersDisabled) {
		t.Skip(err.Error())
	}
	require.NoError(t, err)
	t.Cleanup(func() { containers.Terminate(context.Background(), t.Logf) })

	cfg := testutil.TestConfig(t)
	containers.Apply(cfg)
	cfg.DBConnectionLimit = 4

	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, services.EnsureRoots(db))
	require.NoError(t, services.EnsureRoots(db), "roots are created once")

	pageCache, err := cache.New(cfg.RedisURL, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pageCache.Close() })

	store, err := storage.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	require.NoError(t, err)
	index, err := search.NewMemOnly()
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	svc := services.New(db, cfg, store, index, pageCache)

	health := services.HealthCheck(ctx, cfg, db, pageCache, index)
	assert.Equal(t, "healthy", health.Status, health.ErrorMessage)
	assert.Equal(t, "ok", health.Cache)

	agenda := testutil.CreateIndex(t, svc, "Agenda", 2)
	for i, title := range []string{"Assemblée", "Concert", "Brocante"} {
		testutil.CreateEvent(t, svc, agenda.ID, title, day.AddDate(0, i, 0), true)
	}

	listing, err := svc.EventIndex(ctx, agenda, "2")
	require.NoError(t, err)
	require.Len(t, listing.Events, 1)
	assert.Equal(t, "Assemblée", listing.Events[0].Title)

	cached, err := svc.EventIndex(ctx, agenda, "2")
	require.NoError(t, err)
	assert.Equal(t, listing.Events[0].URL, cached.Events[0].URL)

	finances := testutil.CreateCategory(t, svc, "Finances")
	doc := testutil.CreateDocument(t, svc, "Budget 2025", &finances.ID, "2025-01-31")
	_, err = svc.AttachDocuments(ctx, listing.Events[0].ID, []services.AttachDocumentInput{{DocumentID: doc.ID}})
	require.NoError(t, err)

	removed, err := svc.DeletePage(ctx, agenda.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, removed)
}
