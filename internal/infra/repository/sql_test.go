package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zacharykka/scene-pilot/internal/domain"
	"github.com/zacharykka/scene-pilot/internal/infra/database"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	dsn := "file:repo_test.db?mode=memory&cache=shared&_fk=1"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	migrationPath := filepath.Join("..", "..", "..", "db", "migrations", "000001_init.up.sql")
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("exec migration: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}
	return db, cleanup
}

func TestPromptRecordRepository_CreateAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repos := NewSQLRepositories(db, database.NewDialect("sqlite"))
	ctx := context.Background()

	response := "bpy.ops.transform.rotate(value=0.2618)"
	tokenUsage := int64(42)
	costUSD := 0.0012
	latencyMS := int64(830)
	pointer := 0

	first := &domain.PromptRecord{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		ProjectID: "project-1",
		Prompt:    "Rotate the cube 15 degrees",
		Response:  &response,
		Provider:  "local",
		Model:     "starcoder2",
		CreatedAt: time.Now().UTC().Add(-time.Minute),
	}
	if err := repos.PromptRecords.Create(ctx, first); err != nil {
		t.Fatalf("create record: %v", err)
	}

	second := &domain.PromptRecord{
		ID:          uuid.NewString(),
		UserID:      "user-1",
		ProjectID:   "project-1",
		Prompt:      "Delete all lights",
		Provider:    "openai",
		TokenUsage:  &tokenUsage,
		CostUSD:     &costUSD,
		LatencyMS:   &latencyMS,
		PreviousID:  &first.ID,
		UndoPointer: &pointer,
		CreatedAt:   time.Now().UTC(),
	}
	if err := repos.PromptRecords.Create(ctx, second); err != nil {
		t.Fatalf("create record: %v", err)
	}

	records, err := repos.PromptRecords.List(ctx, domain.HistoryFilter{UserID: "user-1", ProjectID: "project-1"})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records got %d", len(records))
	}

	// created_at 升序：先插入的排前。
	if records[0].ID != first.ID {
		t.Fatalf("expected oldest record first")
	}
	if records[0].Response == nil || *records[0].Response != response {
		t.Fatalf("expected response round-trip, got %v", records[0].Response)
	}
	if records[1].Response != nil {
		t.Fatalf("expected nil response for failed record")
	}
	if records[1].TokenUsage == nil || *records[1].TokenUsage != tokenUsage {
		t.Fatalf("expected token usage round-trip")
	}
	if records[1].CostUSD == nil || *records[1].CostUSD != costUSD {
		t.Fatalf("expected cost round-trip")
	}
	if records[1].PreviousID == nil || *records[1].PreviousID != first.ID {
		t.Fatalf("expected previous id round-trip")
	}
	if records[1].UndoPointer == nil || *records[1].UndoPointer != 0 {
		t.Fatalf("expected undo pointer round-trip")
	}
}

func TestPromptRecordRepository_ListFilters(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repos := NewSQLRepositories(db, database.NewDialect("sqlite"))
	ctx := context.Background()

	for i, owner := range []string{"user-1", "user-1", "user-2"} {
		record := &domain.PromptRecord{
			ID:        uuid.NewString(),
			UserID:    owner,
			ProjectID: "project-1",
			Prompt:    "prompt",
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := repos.PromptRecords.Create(ctx, record); err != nil {
			t.Fatalf("create record: %v", err)
		}
	}

	mine, err := repos.PromptRecords.List(ctx, domain.HistoryFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 records for user-1 got %d", len(mine))
	}

	limited, err := repos.PromptRecords.List(ctx, domain.HistoryFilter{UserID: "user-1", Limit: 1})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d records", len(limited))
	}

	all, err := repos.PromptRecords.List(ctx, domain.HistoryFilter{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records without filter got %d", len(all))
	}
}

func TestPromptRecordRepository_UpdateFavorite(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repos := NewSQLRepositories(db, database.NewDialect("sqlite"))
	ctx := context.Background()

	record := &domain.PromptRecord{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		ProjectID: "project-1",
		Prompt:    "prompt",
	}
	if err := repos.PromptRecords.Create(ctx, record); err != nil {
		t.Fatalf("create record: %v", err)
	}

	if err := repos.PromptRecords.UpdateFavorite(ctx, record.ID, true); err != nil {
		t.Fatalf("update favorite: %v", err)
	}

	records, err := repos.PromptRecords.List(ctx, domain.HistoryFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 || !records[0].Favorite {
		t.Fatalf("expected favorite flag persisted")
	}

	if err := repos.PromptRecords.UpdateFavorite(ctx, uuid.NewString(), true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestPromptRecordRepository_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repos := NewSQLRepositories(db, database.NewDialect("sqlite"))
	ctx := context.Background()

	record := &domain.PromptRecord{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		ProjectID: "project-1",
		Prompt:    "prompt",
	}
	if err := repos.PromptRecords.Create(ctx, record); err != nil {
		t.Fatalf("create record: %v", err)
	}

	if err := repos.PromptRecords.Delete(ctx, record.ID); err != nil {
		t.Fatalf("delete record: %v", err)
	}
	if err := repos.PromptRecords.Delete(ctx, record.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}

	records, err := repos.PromptRecords.List(ctx, domain.HistoryFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty list after delete got %d", len(records))
	}
}
