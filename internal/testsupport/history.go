package testsupport

import (
	"context"
	"testing"

	"transcriptor/internal/config"
	"transcriptor/internal/history"
)

// MustOpenHistory opens the ledger for cfg and closes it when the test ends.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
