package testsupport

import (
	"context"
	"testing"

	"spool/internal/config"
	"spool/internal/queue"
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

// NewRequest creates a queued download request for tests using the provided
// store.
func NewRequest(t testing.TB, store *queue.Store, url string, kind queue.MediaKind, chatID int64) *queue.Item {
	t.Helper()

	item, err := store.NewRequest(context.Background(), url, "test", kind, chatID, 0, "tester")
	if err != nil {
		t.Fatalf("store.NewRequest: %v", err)
	}
	return item
}
