package testsupport

import (
	"path/filepath"
	"testing"

	"completearr/internal/history"
)

// NewHistoryStore opens a throwaway history database for a test.
func NewHistoryStore(t testing.TB) *history.Store {
	t.Helper()
	store, err := history.OpenPath(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close history store: %v", err)
		}
	})
	return store
}
