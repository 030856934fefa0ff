package database

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/igs-sky/1A2B-Game/internal/cache/cachelru"
	"github.com/igs-sky/1A2B-Game/internal/database"
	"github.com/igs-sky/1A2B-Game/internal/database/gamestate/model"
)

func newTestDB(tb testing.TB) *DB {
	tb.Helper()

	ctx := context.Background()
	sdb, err := database.NewFromEnv(ctx, &database.Config{
		FilePath: filepath.Join(tb.TempDir(), "test.db"),
	})
	if err != nil {
		tb.Fatalf("open database: %v", err)
	}
	tb.Cleanup(func() {
		_ = sdb.Close(ctx)
	})

	c, err := cachelru.NewLRU(16)
	if err != nil {
		tb.Fatalf("new cache: %v", err)
	}

	return New(sdb, c)
}

func TestGameStateRoundTrip(t *testing.T) {
	db := newTestDB(t)

	state := model.State{
		ID:            "session-1",
		NumberDeck:    []string{"0", "1", "2"},
		ToolDeck:      []string{"POS"},
		DiscardNumber: []string{"9"},
		Round:         3,
		TurnIdx:       1,
		Players: []*model.Player{
			{Name: "p1", Answer: []string{"0", "1", "2", "3"}, BestA: 2, BestB: 1, ActionHistories: []string{"TOOL"}},
			{Name: "p2", Answer: []string{"4", "5", "6", "7"}},
		},
	}

	if err := db.SaveGameState(state.ID, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.ReadGameState(state.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if !reflect.DeepEqual(got, state) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, state)
	}

	if err := db.DeleteGameState(state.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := db.ReadGameState(state.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("read after delete: %v, want ErrEntryNotFound", err)
	}
}

func TestGameStateNotFound(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.ReadGameState("nope"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("read missing state: %v, want ErrEntryNotFound", err)
	}
}

func TestPlayerGamePointer(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.ReadPlayerGame("p1"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("read missing pointer: %v, want ErrEntryNotFound", err)
	}

	if err := db.SavePlayerGame("p1", "session-1"); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.ReadPlayerGame("p1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "session-1" {
		t.Errorf("pointer = %q, want session-1", got)
	}

	if err := db.DeletePlayerGame("p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// the cache must not resurrect a deleted pointer
	if _, err := db.ReadPlayerGame("p1"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("read after delete: %v, want ErrEntryNotFound", err)
	}
}
