package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/taskboard/internal/identity"
	"github.com/sandeepkv93/taskboard/internal/model"
)

func TestMigrateTracksSchemaVersion(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	assertVersion := func(want int) {
		t.Helper()
		got, err := SchemaVersion(db)
		if err != nil {
			t.Fatalf("schema version: %v", err)
		}
		if got != want {
			t.Fatalf("schema version = %d, want %d", got, want)
		}
	}

	assertVersion(0)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	assertVersion(1)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("repeated migrate up: %v", err)
	}
	assertVersion(1)

	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	assertVersion(0)
	var tables int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'completions'`).Scan(&tables); err != nil {
		t.Fatalf("inspect schema: %v", err)
	}
	if tables != 0 {
		t.Fatal("completions table survived migrate down")
	}
}

func TestSchemaUsableAfterDownAndUp(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "roundtrip.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	for _, step := range []func(*sql.DB) error{MigrateUp, MigrateDown, MigrateUp} {
		if err := step(db); err != nil {
			t.Fatalf("migration step: %v", err)
		}
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	ctx := context.Background()
	tmpl := model.TaskTemplate{
		ID:            "tmpl-rt",
		Title:         "Weekly review",
		Status:        model.StatusTodo,
		Priority:      model.PriorityMedium,
		ScheduledDate: time.Date(2024, 1, 5, 16, 0, 0, 0, time.UTC),
		Recurrence:    &model.RecurrenceRule{Pattern: model.PatternWeekly, Interval: 1},
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.SaveTemplate(ctx, tmpl); err != nil {
		t.Fatalf("save template after roundtrip: %v", err)
	}
	k := identity.Make(tmpl.ID, time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC))
	if err := repo.SetCompletion(ctx, k, true); err != nil {
		t.Fatalf("set completion after roundtrip: %v", err)
	}
	got, err := repo.CompletionMap(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("completion map: %v", err)
	}
	if !got[k].Completed {
		t.Fatalf("expected %s completed, got %#v", k, got[k])
	}
}
