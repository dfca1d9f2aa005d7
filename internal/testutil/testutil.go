// Package testutil provides shared test helpers for wiring a folio stack
// over throwaway storage.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/folio/internal/appstate"
	"github.com/starford/folio/internal/docstore"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/storage"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestIndex creates a temporary SQLite index that is automatically cleaned up.
func TestIndex(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestFS creates a temporary data directory with a file-backed provider.
func TestFS(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// NewApp builds a document store and a bootstrapped state container over
// in-memory storage.
func NewApp(t *testing.T) (*appstate.Store, *docstore.Store) {
	t.Helper()
	logger := Logger()
	docs := docstore.New(storage.NewMemory(), docstore.WithLogger(logger))
	app := appstate.New(docs, logger)
	if err := app.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return app, docs
}

// SyncIndex brings db up to date with docs.
func SyncIndex(t *testing.T, db *index.DB, docs *docstore.Store) index.Report {
	t.Helper()
	rep, err := index.Sync(context.Background(), db, docs, Logger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	return rep
}
