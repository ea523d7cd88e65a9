package testsupport

import (
	"context"
	"testing"

	"github.com/Piravision/Votaciones/internal/config"
	"github.com/Piravision/Votaciones/internal/logging"
	"github.com/Piravision/Votaciones/internal/state"
)

// NewStore opens the state store configured in cfg.
func NewStore(t testing.TB, cfg *config.Config) *state.Store {
	t.Helper()
	return state.NewStore(cfg.Paths.StateFile, cfg.LockTimeout(), logging.NewNop())
}

// SeedState writes doc through store.
func SeedState(t testing.TB, store *state.Store, mutate func(*state.Document)) {
	t.Helper()

	if _, err := store.Update(context.Background(), func(doc *state.Document) error {
		mutate(doc)
		return nil
	}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
}

// MustRead loads the current document.
func MustRead(t testing.TB, store *state.Store) *state.Document {
	t.Helper()

	doc, err := store.Read(context.Background())
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	return doc
}
