package database

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"lingoquest/internal/logger"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background(), logger.Nop()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{"learners", "progress_ledgers", "learner_badges", "lesson_outcomes", "audio_cache", "bad_words"}
	for _, table := range tables {
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		var name string
		if err := db.QueryRowContext(ctx, query, table).Scan(&name); err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// Running again is a no-op
	if err := db.RunMigrations(ctx, logger.Nop()); err != nil {
		t.Fatalf("Second RunMigrations() error = %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 recorded migrations, got %d", count)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	insert := "INSERT INTO learners (id, display_name, created_at, updated_at) VALUES (?, ?, ?, ?)"

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, insert, "learner-1", "happy-dragon", 1, 1)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() commit path error = %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM learners WHERE id = ?", "learner-1").Scan(&count); err != nil {
		t.Fatalf("Failed to query after commit: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 learner, got %d", count)
	}

	// A failing callback rolls back
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, insert, "learner-2", "brave-otter", 1, 1); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, insert, "learner-1", "duplicate", 1, 1)
		return err
	})
	if err == nil {
		t.Fatal("WithTx() expected error for duplicate primary key")
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM learners WHERE id = ?", "learner-2").Scan(&count); err != nil {
		t.Fatalf("Failed to query after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 learners after rollback, got %d", count)
	}
}

func TestUpsertOverwrites(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	columns := []string{"id", "display_name", "created_at", "updated_at"}
	for _, name := range []string{"first", "second"} {
		if err := db.Upsert(ctx, "learners", columns, []string{"id"}, []string{"display_name", "updated_at"}, "learner-1", name, 1, 2); err != nil {
			t.Fatalf("Upsert(%s) error = %v", name, err)
		}
	}

	var name string
	if err := db.QueryRowContext(ctx, "SELECT display_name FROM learners WHERE id = ?", "learner-1").Scan(&name); err != nil {
		t.Fatalf("Failed to read learner: %v", err)
	}
	if name != "second" {
		t.Errorf("display_name = %q, want second", name)
	}
}

func TestBadWords(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	added, err := db.LoadBadWords(ctx, strings.NewReader("Darn\n\nheck\nheck\n"))
	if err != nil {
		t.Fatalf("LoadBadWords() error = %v", err)
	}
	if added != 3 {
		t.Errorf("LoadBadWords() = %d, want 3", added)
	}

	found, err := db.ValidateWords(ctx, []string{"apple", "DARN", "heck"})
	if err != nil {
		t.Fatalf("ValidateWords() error = %v", err)
	}
	if len(found) != 2 {
		t.Errorf("ValidateWords() = %v, want [DARN heck]", found)
	}
}

// TestConcurrentAccess tests concurrent database access
func TestConcurrentAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "INSERT INTO learners (id, display_name, created_at, updated_at) VALUES (?, ?, ?, ?)",
		"concurrent", "quiet-panda", 1, 1)
	if err != nil {
		t.Fatalf("Failed to create test learner: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var name string
			err := db.QueryRowContext(ctx, "SELECT display_name FROM learners WHERE id = ?", "concurrent").Scan(&name)
			if err != nil {
				t.Errorf("Concurrent read failed: %v", err)
			}
			if name != "quiet-panda" {
				t.Errorf("Expected name 'quiet-panda', got '%s'", name)
			}
		}()
	}
	wg.Wait()
}
