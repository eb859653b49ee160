package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/palgatox64/sonusitory/internal/models"
	"github.com/palgatox64/sonusitory/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// every pooled connection to :memory: would get its own empty database
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "tasks")
		if err != nil {
			t.Fatalf("NextSequence failed: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}

func TestTaskRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		record := models.NewTaskRecord("abc", "Escaneo completo")

		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}
		if record.ID() == "" {
			t.Error("ID should be set after creation")
		}
		if record.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", record.Sequence())
		}
	})

	t.Run("Create ValidationError", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		if err := repo.Create(models.NewTaskRecord("", "title")); err == nil {
			t.Fatal("expected validation error for empty task id")
		}
	})

	t.Run("Create Duplicate TaskID", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		if err := repo.Create(models.NewTaskRecord("abc", "one")); err != nil {
			t.Fatalf("failed to create first task: %v", err)
		}
		err := repo.Create(models.NewTaskRecord("abc", "two"))
		if !isUniqueViolation(err) {
			t.Fatalf("expected unique violation, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		record := models.NewTaskRecord("abc", "Escaneo")
		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}

		byID, err := repo.Get(record.ID())
		if err != nil {
			t.Fatalf("failed to get task: %v", err)
		}
		byTaskID, err := repo.GetByTaskID("abc")
		if err != nil {
			t.Fatalf("failed to get task by task id: %v", err)
		}

		for _, got := range []*models.TaskRecord{byID, byTaskID} {
			if got.ID() != record.ID() || got.Title() != "Escaneo" || got.State() != models.PollPolling {
				t.Errorf("unexpected record %+v", got)
			}
			if got.FinishedAt() != nil || got.DeletedAt() != nil {
				t.Error("new record should not be finished or deleted")
			}
		}

		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		record := models.NewTaskRecord("abc", "Escaneo")
		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}

		record.Observe(models.Failed("sin acceso"))
		record.Finish(models.PollFailed, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
		if err := repo.Update(record); err != nil {
			t.Fatalf("failed to update task: %v", err)
		}

		got, err := repo.GetByTaskID("abc")
		if err != nil {
			t.Fatalf("failed to get task: %v", err)
		}
		if got.State() != models.PollFailed || got.LastStatus() != "FAILURE" || got.Message() != "sin acceso" || got.Polls() != 1 {
			t.Errorf("unexpected record after update: %s %s %s %d", got.State(), got.LastStatus(), got.Message(), got.Polls())
		}
		if got.FinishedAt() == nil || got.FinishedAt().Year() != 2025 {
			t.Errorf("expected finished_at to be stored, got %v", got.FinishedAt())
		}
	})

	t.Run("Update NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		record := models.NewTaskRecord("abc", "Escaneo")
		record.SetID("missing")
		if err := repo.Update(record); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		record := models.NewTaskRecord("abc", "Escaneo")
		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}

		if err := repo.Delete(record.ID()); err != nil {
			t.Fatalf("failed to delete task: %v", err)
		}
		if _, err := repo.Get(record.ID()); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("deleted record should not be found, got %v", err)
		}
		if err := repo.Delete(record.ID()); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("second delete should fail, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		for i, id := range []string{"a", "b", "c"} {
			record := models.NewTaskRecord(id, "Escaneo "+id)
			if i == 1 {
				record.Finish(models.PollSucceeded, time.Now())
			}
			if err := repo.Create(record); err != nil {
				t.Fatalf("failed to create task: %v", err)
			}
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list tasks: %v", err)
		}
		if len(all) != 3 || all[0].TaskID() != "c" {
			t.Errorf("expected 3 tasks newest first, got %d", len(all))
		}

		succeeded, err := repo.List(map[string]any{"state": models.PollSucceeded})
		if err != nil {
			t.Fatalf("failed to list tasks: %v", err)
		}
		if len(succeeded) != 1 || succeeded[0].TaskID() != "b" {
			t.Errorf("expected only task b, got %d records", len(succeeded))
		}

		limited, err := repo.List(map[string]any{"limit": 2, "state": ""})
		if err != nil {
			t.Fatalf("failed to list tasks: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 tasks, got %d", len(limited))
		}
	})

	t.Run("Prune", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		states := map[string]models.PollState{
			"a": models.PollSucceeded,
			"b": models.PollFailed,
			"c": models.PollPolling,
			"d": models.PollAborted,
		}
		for id, state := range states {
			record := models.NewTaskRecord(id, "Escaneo")
			record.SetState(state)
			if err := repo.Create(record); err != nil {
				t.Fatalf("failed to create task: %v", err)
			}
		}

		n, err := repo.Prune(models.PollFailed)
		if err != nil || n != 1 {
			t.Fatalf("expected 1 pruned, got %d, %v", n, err)
		}

		n, err = repo.Prune("")
		if err != nil || n != 2 {
			t.Fatalf("expected 2 pruned, got %d, %v", n, err)
		}

		remaining, _ := repo.List(nil)
		if len(remaining) != 1 || remaining[0].TaskID() != "c" {
			t.Errorf("expected only the polling task to remain, got %d", len(remaining))
		}

		if _, err := repo.Prune(models.PollPolling); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for unfinished state, got %v", err)
		}
	})
}

func TestTaskRecorder(t *testing.T) {
	ctx := context.Background()

	t.Run("Lifecycle", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		rec := NewTaskRecorder(repo)

		if err := rec.Started(ctx, "abc", "Escaneo"); err != nil {
			t.Fatalf("Started failed: %v", err)
		}
		if err := rec.Observed(ctx, "abc", models.Running(models.NewStepInfo(models.StepCovers, 1, 2))); err != nil {
			t.Fatalf("Observed failed: %v", err)
		}
		if err := rec.Missed(ctx, "abc", errors.New("connection refused")); err != nil {
			t.Fatalf("Missed failed: %v", err)
		}
		if err := rec.Observed(ctx, "abc", models.Succeeded("listo", nil)); err != nil {
			t.Fatalf("Observed failed: %v", err)
		}
		if err := rec.Finished(ctx, "abc", models.PollSucceeded); err != nil {
			t.Fatalf("Finished failed: %v", err)
		}

		got, err := repo.GetByTaskID("abc")
		if err != nil {
			t.Fatalf("failed to get task: %v", err)
		}
		if got.State() != models.PollSucceeded || got.Polls() != 3 || got.Message() != "listo" || got.FinishedAt() == nil {
			t.Errorf("unexpected record: %s %d %q %v", got.State(), got.Polls(), got.Message(), got.FinishedAt())
		}
	})

	t.Run("Started Resumes Existing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		rec := NewTaskRecorder(repo)

		if err := rec.Started(ctx, "abc", "Escaneo"); err != nil {
			t.Fatalf("Started failed: %v", err)
		}
		if err := rec.Finished(ctx, "abc", models.PollAborted); err != nil {
			t.Fatalf("Finished failed: %v", err)
		}
		if err := rec.Started(ctx, "abc", "Escaneo"); err != nil {
			t.Fatalf("second Started failed: %v", err)
		}

		all, _ := repo.List(nil)
		if len(all) != 1 {
			t.Fatalf("expected a single record, got %d", len(all))
		}
		if all[0].State() != models.PollPolling || all[0].FinishedAt() != nil {
			t.Errorf("expected record to be polling again, got %s", all[0].State())
		}
	})

	t.Run("Started After Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		rec := NewTaskRecorder(repo)

		if err := rec.Started(ctx, "abc", "Escaneo"); err != nil {
			t.Fatalf("Started failed: %v", err)
		}
		old, _ := repo.GetByTaskID("abc")
		if err := repo.Delete(old.ID()); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := rec.Started(ctx, "abc", "Escaneo"); err != nil {
			t.Fatalf("Started after delete failed: %v", err)
		}
		if _, err := repo.GetByTaskID("abc"); err != nil {
			t.Errorf("expected a fresh record, got %v", err)
		}
	})

	t.Run("Unknown Task", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		rec := NewTaskRecorder(NewTaskRepository(db))
		if err := rec.Observed(ctx, "missing", models.Pending()); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
		if err := rec.Finished(ctx, "missing", models.PollFailed); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})
}
