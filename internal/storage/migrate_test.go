package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func TestMigrateRoundTripCompatibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate-roundtrip.db")
	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}

	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("second migrate up failed: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	created, err := repo.CreateTask(t.Context(), Task{
		Number:      "2023/777",
		Name:        "После миграции",
		Status:      "в разработке",
		Priority:    "средний",
		CreatedDate: now,
		UpdatedDate: now,
	})
	if err != nil {
		t.Fatalf("insert after roundtrip failed: %v", err)
	}

	got, err := repo.GetTask(t.Context(), created.ID)
	if err != nil {
		t.Fatalf("get after roundtrip failed: %v", err)
	}
	if got.Name != "После миграции" {
		t.Fatalf("unexpected name after roundtrip: %q", got.Name)
	}
}
