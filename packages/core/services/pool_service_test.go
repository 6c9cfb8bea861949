package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"
)

func newTestPool(t *testing.T) (*PoolService, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{mini.Addr()},
		DisableCache: true,
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)

	return NewPoolService(client), mini
}

func TestCheckInAndLookup(t *testing.T) {
	pool, _ := newTestPool(t)
	ctx := context.Background()

	if err := pool.CheckIn(ctx, "Mang0", "Falco", 1350); err != nil {
		t.Fatalf("check in: %v", err)
	}

	player, err := pool.GetCheckedInPlayer(ctx, "mang0")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if player == nil {
		t.Fatal("player should be checked in")
	}
	if player.Username != "Mang0" || player.Character != "Falco" || player.Elo != 1350 {
		t.Fatalf("entry should keep the display name and stats, got %+v", player)
	}

	if character := pool.CheckedInCharacter("MANG0"); character != "Falco" {
		t.Fatalf("character lookup = %q, want Falco", character)
	}
}

func TestCheckInReplacesPreviousEntry(t *testing.T) {
	pool, _ := newTestPool(t)
	ctx := context.Background()

	pool.CheckIn(ctx, "zain", "Marth", 1200)
	pool.CheckIn(ctx, "zain", "Roy", 1220)

	players, err := pool.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("re-check-in should replace the entry, got %d entries", len(players))
	}
	if players[0].Character != "Roy" || players[0].Elo != 1220 {
		t.Fatalf("latest check-in should win, got %+v", players[0])
	}
}

func TestCheckOut(t *testing.T) {
	pool, _ := newTestPool(t)
	ctx := context.Background()

	pool.CheckIn(ctx, "ibdw", "Sheik", 1400)
	if err := pool.CheckOut(ctx, "IBDW"); err != nil {
		t.Fatalf("check out: %v", err)
	}

	player, err := pool.GetCheckedInPlayer(ctx, "ibdw")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if player != nil {
		t.Fatalf("player should be gone, got %+v", player)
	}
	if character := pool.CheckedInCharacter("ibdw"); character != "" {
		t.Fatalf("character should be empty after check-out, got %q", character)
	}
}

func TestSearchByPrefix(t *testing.T) {
	pool, _ := newTestPool(t)
	ctx := context.Background()

	pool.CheckIn(ctx, "Mang0", "Falco", 1350)
	pool.CheckIn(ctx, "mew2king", "Marth", 1500)
	pool.CheckIn(ctx, "zain", "Marth", 1450)

	results, err := pool.Search(ctx, "M")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("prefix m should match two players, got %d", len(results))
	}
	for _, player := range results {
		if player.Username == "zain" {
			t.Fatal("zain should not match prefix m")
		}
	}

	empty, err := pool.Search(ctx, "  ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if empty != nil {
		t.Fatal("blank query should return nothing")
	}
}

func TestFlush(t *testing.T) {
	pool, _ := newTestPool(t)
	ctx := context.Background()

	pool.CheckIn(ctx, "a", "Fox", 1200)
	pool.CheckIn(ctx, "b", "Marth", 1200)
	if err := pool.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	players, err := pool.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if len(players) != 0 {
		t.Fatalf("pool should be empty after flush, got %d entries", len(players))
	}
}

func TestBulkCheckIn(t *testing.T) {
	pool, _ := newTestPool(t)
	ctx := context.Background()

	seed := []PoolPlayer{
		{Username: "mew2king", Character: "Marth", Elo: 1500},
		{Username: "Mang0", Character: "Falco", Elo: 1350},
		{Username: "zain", Character: "Marth", Elo: 1450},
	}
	if err := pool.BulkCheckIn(ctx, seed); err != nil {
		t.Fatalf("bulk check in: %v", err)
	}

	players, err := pool.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if len(players) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(players))
	}
}

func TestCleanupInactive(t *testing.T) {
	pool, mini := newTestPool(t)
	ctx := context.Background()

	pool.CheckIn(ctx, "stale", "Fox", 1200)

	// Backdate the expiry score past the 15 minute window.
	old := float64(time.Now().Add(-20*time.Minute).UnixMilli())
	mini.ZAdd(poolExpiryKey, old, formatPoolValue("stale", "Fox", 1200))

	pool.CheckIn(ctx, "fresh", "Marth", 1300)

	removed, err := pool.CleanupInactive(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 swept entry, got %d", removed)
	}

	if player, _ := pool.GetCheckedInPlayer(ctx, "stale"); player != nil {
		t.Fatal("stale entry should be gone from the search index")
	}
	if player, _ := pool.GetCheckedInPlayer(ctx, "fresh"); player == nil {
		t.Fatal("fresh entry should survive the sweep")
	}
}
