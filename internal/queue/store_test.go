package queue_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tunesort/internal/queue"
)

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewItemStartsPending(t *testing.T) {
	store := openStore(t)
	item, err := store.NewItem(context.Background(), "run-1", "/in/song.mp3", "mp3", 1024, false)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("status = %s", item.Status)
	}
	if item.Outcome != "" {
		t.Fatalf("new item should have no outcome, got %s", item.Outcome)
	}
	if item.SizeBytes != 1024 || item.Format != "mp3" {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestNewItemRejectsDuplicateSourceWithinRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.NewItem(ctx, "run-1", "/in/song.mp3", "mp3", 1, false); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := store.NewItem(ctx, "run-1", "/in/song.mp3", "mp3", 1, false); err == nil {
		t.Fatal("expected unique constraint violation")
	}
	// A later run may see the same path again.
	if _, err := store.NewItem(ctx, "run-2", "/in/song.mp3", "mp3", 1, false); err != nil {
		t.Fatalf("other run insert: %v", err)
	}
}

func TestRecordOutcomeIsWriteOnce(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	item, err := store.NewItem(ctx, "run-1", "/in/a.flac", "flac", 10, false)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	item.DestinationPath = "/lib/Artist/Album/a.flac"
	if err := store.RecordOutcome(ctx, item, queue.OutcomeOrganized, ""); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status = %s", item.Status)
	}

	err = store.RecordOutcome(ctx, item, queue.OutcomeMoveFailed, "late failure")
	if !errors.Is(err, queue.ErrOutcomeRecorded) {
		t.Fatalf("expected ErrOutcomeRecorded, got %v", err)
	}

	stored, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Outcome != queue.OutcomeOrganized {
		t.Fatalf("outcome overwritten to %s", stored.Outcome)
	}
	if stored.DestinationPath != "/lib/Artist/Album/a.flac" {
		t.Fatalf("destination = %q", stored.DestinationPath)
	}
}

func TestNextPendingDrainsInInsertionOrder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	first, err := store.NewItem(ctx, "run-1", "/in/1.mp3", "mp3", 1, false)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	if _, err := store.NewItem(ctx, "run-1", "/in/2.mp3", "mp3", 1, false); err != nil {
		t.Fatalf("NewItem: %v", err)
	}

	next, err := store.NextPending(ctx, "run-1")
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected first item, got %+v", next)
	}

	if err := store.RecordOutcome(ctx, next, queue.OutcomeValidationFailed, "corrupted"); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	next, err = store.NextPending(ctx, "run-1")
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.SourcePath != "/in/2.mp3" {
		t.Fatalf("expected second item, got %+v", next)
	}
}

func TestSummarizeFoldsOutcomes(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	record := func(path string, outcome queue.Outcome) {
		t.Helper()
		item, err := store.NewItem(ctx, "run-1", path, "mp3", 1, false)
		if err != nil {
			t.Fatalf("NewItem(%s): %v", path, err)
		}
		if err := store.RecordOutcome(ctx, item, outcome, ""); err != nil {
			t.Fatalf("RecordOutcome(%s): %v", path, err)
		}
	}
	record("/in/a.mp3", queue.OutcomeOrganized)
	record("/in/b.mp3", queue.OutcomeOrganized)
	record("/in/c.mp3", queue.OutcomeDuplicateDiscarded)
	record("/in/d.mp3", queue.OutcomeIdentificationFailed)

	summary, err := store.Summarize(ctx, "run-1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Total != 4 || summary.Organized != 2 || summary.Duplicates != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if rate := summary.SuccessRate(); rate != 50 {
		t.Fatalf("success rate = %v", rate)
	}
}

func TestItemsByRunScopedToRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.NewItem(ctx, "run-1", "/in/a.mp3", "mp3", 1, false); err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	if _, err := store.NewItem(ctx, "run-2", "/in/b.mp3", "mp3", 1, true); err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	items, err := store.ItemsByRun(ctx, "run-2")
	if err != nil {
		t.Fatalf("ItemsByRun: %v", err)
	}
	if len(items) != 1 || items[0].SourcePath != "/in/b.mp3" || !items[0].DryRun {
		t.Fatalf("unexpected items %+v", items)
	}
}
