package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/gravitas-games/cachegrid/internal/grid"
	"github.com/gravitas-games/cachegrid/internal/store"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cachegrid.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestBackendItems(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	b := db.Backend("player:1:")

	if _, ok, err := b.GetItem(ctx, "inventory"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := b.SetItem(ctx, "inventory", "2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := b.SetItem(ctx, "inventory", "4"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	v, ok, err := b.GetItem(ctx, "inventory")
	if err != nil || !ok || v != "4" {
		t.Fatalf("expected 4, got %q ok=%v err=%v", v, ok, err)
	}
	if err := b.RemoveItem(ctx, "inventory"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := b.GetItem(ctx, "inventory"); ok {
		t.Fatal("key should be gone")
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	a := db.Backend("a")
	b := db.Backend("b")

	_ = a.SetItem(ctx, "k", "1")
	_ = a.SetItem(ctx, "k2", "1")
	_ = b.SetItem(ctx, "k", "2")

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n, _ := a.Count(ctx); n != 0 {
		t.Fatalf("expected empty namespace a, got %d", n)
	}
	if v, ok, _ := b.GetItem(ctx, "k"); !ok || v != "2" {
		t.Fatal("namespace b must survive clearing a")
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	db, path := openTestDB(t)
	c := grid.Coord{I: 12, J: -4}

	s := store.New(db.Backend("solo"))
	if err := s.Set(ctx, c, 8); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetInventory(ctx, 2); err != nil {
		t.Fatalf("set inventory: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	s = store.New(reopened.Backend("solo"))
	if v, ok, err := s.Get(ctx, c); err != nil || !ok || v != 8 {
		t.Fatalf("expected 8 after reopen, got %d ok=%v err=%v", v, ok, err)
	}
	if v, ok, _ := s.Inventory(ctx); !ok || v != 2 {
		t.Fatalf("expected inventory 2 after reopen, got %d ok=%v", v, ok)
	}
}

func TestMigrationsRunOnce(t *testing.T) {
	db, _ := openTestDB(t)
	fsys := fstest.MapFS{
		"002_extra.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE extra(id TEXT);\n-- +migrate Down\nDROP TABLE extra;")},
	}
	if err := applyMigrations(db.sqlDB, fsys); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	// A second run would fail on CREATE TABLE if it were not skipped.
	if err := applyMigrations(db.sqlDB, fsys); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	var n int
	if err := db.sqlDB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 recorded migrations, got %d", n)
	}
}

func TestUpSection(t *testing.T) {
	got := upSection("-- +migrate Up\nSELECT 1;\n-- +migrate Down\nSELECT 2;")
	if got != "\nSELECT 1;\n" {
		t.Fatalf("unexpected up section %q", got)
	}
	if upSection("SELECT 3;") != "SELECT 3;" {
		t.Fatal("files without markers run whole")
	}
}
