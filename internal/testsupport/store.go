package testsupport

import (
	"context"
	"testing"

	"tunesort/internal/config"
	"tunesort/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem inserts a pending ledger item for tests using the provided store.
func NewItem(t testing.TB, store *queue.Store, runID, sourcePath string) *queue.Item {
	t.Helper()

	item, err := store.NewItem(context.Background(), runID, sourcePath, "mp3", 0, false)
	if err != nil {
		t.Fatalf("store.NewItem: %v", err)
	}
	return item
}
