package cache

import (
	"context"
	"testing"
	"time"

	"codex/api/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*AvailabilityCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client, ttl), mr
}

func TestSystemRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	if _, ok := cache.GetSystem(ctx, "sys-vtm"); ok {
		t.Fatal("expected miss on empty cache")
	}

	cache.SetSystem(ctx, store.GameSystem{ID: "sys-vtm", Name: "Vampire: The Masquerade", Status: "ACTIVE"})

	system, ok := cache.GetSystem(ctx, "sys-vtm")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if system.Name != "Vampire: The Masquerade" || system.Status != "ACTIVE" {
		t.Fatalf("got %+v", system)
	}

	cache.InvalidateSystem(ctx, "sys-vtm")
	if _, ok := cache.GetSystem(ctx, "sys-vtm"); ok {
		t.Fatal("expected miss after invalidation")
	}
}

func TestTypeRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	row := store.TypeAvailability{
		DocumentType: "CHARACTER",
		GameSystemID: "sys-vtm",
		Active:       true,
		Config:       store.TypeConfig{TemplateID: "tpl-character", RequiredFields: []string{"name"}},
	}
	cache.SetType(ctx, row)

	got, ok := cache.GetType(ctx, "CHARACTER", "sys-vtm")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if !got.Active || got.Config.TemplateID != "tpl-character" {
		t.Fatalf("got %+v", got)
	}

	// A different system must not share the entry.
	if _, ok := cache.GetType(ctx, "CHARACTER", "sys-dnd5e"); ok {
		t.Fatal("expected miss for other system")
	}
}

func TestEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t, time.Second)
	ctx := context.Background()

	cache.SetSystem(ctx, store.GameSystem{ID: "sys-vtm", Status: "ACTIVE"})
	mr.FastForward(2 * time.Second)

	if _, ok := cache.GetSystem(ctx, "sys-vtm"); ok {
		t.Fatal("expected entry to expire")
	}
}
