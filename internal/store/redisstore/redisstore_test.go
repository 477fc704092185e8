package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gravitas-games/cachegrid/internal/grid"
	"github.com/gravitas-games/cachegrid/internal/store"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestBackendItems(t *testing.T) {
	ctx := context.Background()
	mr, client := newClient(t)
	b := New(client, "player:1:")

	if _, ok, err := b.GetItem(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := b.SetItem(ctx, "cache:0:1", "4"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if got, err := mr.Get("player:1:cache:0:1"); err != nil || got != "4" {
		t.Fatalf("expected prefixed key in redis, got %q err=%v", got, err)
	}
	v, ok, err := b.GetItem(ctx, "cache:0:1")
	if err != nil || !ok || v != "4" {
		t.Fatalf("expected 4, got %q ok=%v err=%v", v, ok, err)
	}
	if err := b.RemoveItem(ctx, "cache:0:1"); err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}
	if mr.Exists("player:1:cache:0:1") {
		t.Fatal("key should be deleted")
	}
}

func TestClearOnlyNamespace(t *testing.T) {
	ctx := context.Background()
	mr, client := newClient(t)
	one := New(client, "player:1:")
	two := New(client, "player:2:")

	for i := 0; i < 600; i++ {
		if err := one.SetItem(ctx, store.CacheKey(grid.Coord{I: i, J: -i}), "2"); err != nil {
			t.Fatalf("unexpected set error: %v", err)
		}
	}
	_ = two.SetItem(ctx, "inventory", "8")
	_ = mr.Set("unrelated", "x")

	if err := one.Clear(ctx); err != nil {
		t.Fatalf("unexpected clear error: %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 2 {
		t.Fatalf("expected only foreign keys to remain, got %v", keys)
	}
	if v, ok, _ := two.GetItem(ctx, "inventory"); !ok || v != "8" {
		t.Fatal("other namespace must survive")
	}
}

func TestClearWithoutPrefixRefused(t *testing.T) {
	_, client := newClient(t)
	if err := New(client, "").Clear(context.Background()); err == nil {
		t.Fatal("expected error for empty prefix")
	}
}

func TestStoreOverRedis(t *testing.T) {
	ctx := context.Background()
	_, client := newClient(t)
	s := store.New(New(client, "p:"))
	c := grid.Coord{I: -3, J: 9}

	if err := s.Set(ctx, c, 16); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if v, ok, err := s.Get(ctx, c); err != nil || !ok || v != 16 {
		t.Fatalf("expected 16, got %d ok=%v err=%v", v, ok, err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("unexpected clear error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, c); ok {
		t.Fatal("override should be cleared")
	}
}
