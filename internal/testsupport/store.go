package testsupport

import (
	"context"
	"testing"

	"boxscout/internal/boxscore"
	"boxscout/internal/config"
	"boxscout/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SaveGame parses and persists a game document, failing the test on any
// skipped row or error.
func SaveGame(t testing.TB, st *store.Store, doc *boxscore.GameDocument) []boxscore.Observation {
	t.Helper()

	observations, skipped, err := boxscore.ParseGame(doc)
	if err != nil {
		t.Fatalf("boxscore.ParseGame: %v", err)
	}
	if len(skipped) > 0 {
		t.Fatalf("boxscore.ParseGame skipped %d rows: %v", len(skipped), skipped[0])
	}
	if err := st.SaveGame(context.Background(), doc, observations); err != nil {
		t.Fatalf("store.SaveGame: %v", err)
	}
	return observations
}
