package history_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/domain/history"
	"github.com/prasetyowira/qrgen/infrastructure/cache"
	"github.com/prasetyowira/qrgen/infrastructure/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a store on a real SQLite database
func createIntegrationStore(t *testing.T, path string) (*history.Store, *db.SQLiteStorage) {
	t.Helper()

	storage, err := db.NewSQLiteStorage(path, cache.NewNamespaceLRU(8))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	return history.NewStore(storage), storage
}

func integrationRecord(i int) history.Record {
	url := fmt.Sprintf("https://example.com/%d", i)
	return history.Record{
		ID:              fmt.Sprintf("rec-%d", i),
		URL:             url,
		ImageRequestURL: constant.DefaultServiceBase + "?size=300x300&data=" + url,
		Size:            300,
		Timestamp:       "2026-10-18T10:00:00.000Z",
		DisplayDate:     "10/18/2026 10:00:00 AM",
	}
}

func TestIntegration_HistorySurvivesRestart(t *testing.T) {
	if os.Getenv("CI") == "true" {
		t.Skip("Skipping integration test in CI environment")
	}

	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	first, storage := createIntegrationStore(t, path)
	for i := 0; i < 3; i++ {
		require.NoError(t, first.Add(ctx, integrationRecord(i)))
	}
	require.NoError(t, first.RemoveAtMatching(ctx, 1, "rec-1"))
	require.NoError(t, storage.Close())

	second, _ := createIntegrationStore(t, path)
	records, err := second.List(ctx)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "rec-2", records[0].ID)
	assert.Equal(t, "rec-0", records[1].ID)
}

func TestIntegration_ConcurrentAddsAreNotLost(t *testing.T) {
	if os.Getenv("CI") == "true" {
		t.Skip("Skipping integration test in CI environment")
	}

	store, _ := createIntegrationStore(t, filepath.Join(t.TempDir(), "concurrent.db"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < constant.HistoryLimit; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Add(ctx, integrationRecord(i)))
		}(i)
	}
	wg.Wait()

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, constant.HistoryLimit)

	seen := make(map[string]bool, len(records))
	for _, r := range records {
		seen[r.ID] = true
	}
	assert.Len(t, seen, constant.HistoryLimit)
}

func TestIntegration_ClearFromAnotherProcessIsVisible(t *testing.T) {
	if os.Getenv("CI") == "true" {
		t.Skip("Skipping integration test in CI environment")
	}

	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	server, _ := createIntegrationStore(t, path)
	cli, _ := createIntegrationStore(t, path)

	require.NoError(t, server.Add(ctx, integrationRecord(0)))
	records, err := server.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, cli.Clear(ctx))

	records, err = server.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, server.Add(ctx, integrationRecord(1)))
	records, err = cli.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].ID)
}
