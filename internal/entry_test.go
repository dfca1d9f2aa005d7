package internal

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func testSetup(t *testing.T, cfg *Config) *core {
	t.Helper()
	c, _, err := setup(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestSetup_RequiresConfig(t *testing.T) {
	if _, _, err := setup(context.Background(), WithLogOutput(io.Discard)); err == nil {
		t.Fatal("setup without config should fail")
	}
}

func TestSetup_MemoryBackendBootstraps(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Backend = BackendMemory
	cfg.Index.Enabled = false

	c := testSetup(t, cfg)
	if c.db != nil {
		t.Error("index should be disabled")
	}
	if c.watchPath != "" {
		t.Errorf("watchPath = %q, want none for memory backend", c.watchPath)
	}
	d, ok := c.app.State().CurrentDocument()
	if !ok || d.Name != "Chapter 1" {
		t.Errorf("current document = %+v", d)
	}
}

func TestSetup_FSBackendWatchesDataFile(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Storage.Path = filepath.Join(dir, "data")
	cfg.Index.Path = filepath.Join(dir, "index.db")

	c := testSetup(t, cfg)
	want := filepath.Join(dir, "data", cfg.Storage.Key)
	if c.watchPath != want {
		t.Errorf("watchPath = %q, want %q", c.watchPath, want)
	}
	if c.db == nil {
		t.Fatal("index should be open")
	}
	if len(c.docs.ListProjects(context.Background())) != 1 {
		t.Error("bootstrap should persist the first project")
	}
}

func TestSetup_SQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Storage.Backend = BackendSQLite
	cfg.Storage.SQLitePath = filepath.Join(dir, "data.db")
	cfg.Index.Enabled = false

	c := testSetup(t, cfg)
	if len(c.docs.ListProjects(context.Background())) != 1 {
		t.Error("bootstrap should persist the first project")
	}
}

func TestSetup_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := NewDefaultConfig()
	cfg.Storage.Backend = BackendRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.Index.Enabled = false

	c := testSetup(t, cfg)
	if !mr.Exists(cfg.Redis.Prefix + cfg.Storage.Key) {
		t.Errorf("keys = %v, want the collection under the prefix", mr.Keys())
	}
	if len(c.docs.ListProjects(context.Background())) != 1 {
		t.Error("bootstrap should persist the first project")
	}
}

func TestSetup_RedisUnreachable(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Backend = BackendRedis
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Index.Enabled = false

	if _, _, err := setup(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard)); err == nil {
		t.Fatal("setup should fail when redis is unreachable")
	}
}
