package bootstrap

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:bootstrap_test.db?mode=memory&cache=shared&_fk=1"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEnsureSchemaAppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	migrationsDir := filepath.Join("..", "..", "..", "db", "migrations")
	if err := EnsureSchema(context.Background(), db, migrationsDir, zap.NewNop()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM prompt_records").Scan(&count); err != nil {
		t.Fatalf("expected prompt_records table: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty table got %d rows", count)
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	db := openTestDB(t)

	migrationsDir := filepath.Join("..", "..", "..", "db", "migrations")
	if err := EnsureSchema(context.Background(), db, migrationsDir, zap.NewNop()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := EnsureSchema(context.Background(), db, migrationsDir, zap.NewNop()); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestEnsureSchemaSkippedWhenDirEmpty(t *testing.T) {
	db := openTestDB(t)

	if err := EnsureSchema(context.Background(), db, "", zap.NewNop()); err != nil {
		t.Fatalf("empty dir must be a no-op: %v", err)
	}
	if _, err := db.Exec("SELECT COUNT(*) FROM prompt_records"); err == nil {
		t.Fatalf("no tables expected without migrations")
	}
}

func TestEnsureSchemaMissingDir(t *testing.T) {
	db := openTestDB(t)

	if err := EnsureSchema(context.Background(), db, filepath.Join(t.TempDir(), "missing"), zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing migrations dir")
	}
}
