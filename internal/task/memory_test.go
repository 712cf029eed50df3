package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/maauso/videogen-api/internal/generator"
)

func TestMemoryRepository_Save(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	rec := NewRecord("t1", "evolink", generator.KindTextToVideo)

	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := repo.FindByID(ctx, "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Provider != "evolink" {
		t.Errorf("expected provider evolink, got %s", saved.Provider)
	}
}

func TestMemoryRepository_Save_Update(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	rec := NewRecord("t1", "evolink", generator.KindTextToVideo)
	_ = repo.Save(ctx, rec)

	_ = rec.Observe(generator.TaskStatus{Status: generator.StatusProcessing, Progress: 50})
	_ = repo.Save(ctx, rec)

	saved, _ := repo.FindByID(ctx, "t1")
	if saved.Status != generator.StatusProcessing {
		t.Errorf("expected status %s, got %s", generator.StatusProcessing, saved.Status)
	}
	if saved.Progress != 50 {
		t.Errorf("expected progress 50, got %v", saved.Progress)
	}
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.FindByID(context.Background(), "nonexistent")
	if err != ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestMemoryRepository_FindByID_ReturnsClone(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_ = repo.Save(ctx, NewRecord("t1", "evolink", generator.KindTextToVideo))

	found, _ := repo.FindByID(ctx, "t1")
	found.Progress = 99
	_ = found.Observe(generator.TaskStatus{Status: generator.StatusProcessing})

	original, _ := repo.FindByID(ctx, "t1")
	if original.Progress != 0 {
		t.Error("modifying returned record should not affect repository")
	}
	if original.Status != generator.StatusPending {
		t.Error("modifying returned record status should not affect repository")
	}
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	older := NewRecord("old", "evolink", generator.KindTextToVideo)
	older.CreatedAt = time.Now().Add(-time.Minute)
	_ = repo.Save(ctx, older)
	_ = repo.Save(ctx, NewRecord("new", "replicate", generator.KindImageToVideo))

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
	if list[0].TaskID != "new" {
		t.Errorf("expected newest first, got %s", list[0].TaskID)
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_ = repo.Save(ctx, NewRecord("t1", "evolink", generator.KindTextToVideo))

	if err := repo.Delete(ctx, "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.FindByID(ctx, "t1"); err != ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "t1"); err != ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound deleting twice, got %v", err)
	}
}

func TestMemoryRepository_Concurrent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Save(ctx, NewRecord("shared", "evolink", generator.KindTextToVideo))
			_, _ = repo.FindByID(ctx, "shared")
			_, _ = repo.List(ctx)
		}()
	}
	wg.Wait()

	list, _ := repo.List(ctx)
	if len(list) != 1 {
		t.Errorf("expected 1 record, got %d", len(list))
	}
}
