package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spoolworks/spool/internal/storage"
	"github.com/spoolworks/spool/internal/types"
)

func seed(t *testing.T, store *Store, id string) {
	t.Helper()
	issue := &types.Issue{ID: id, Title: "issue " + id, Priority: 2}
	if err := store.CreateIssue(context.Background(), issue, "test"); err != nil {
		t.Fatalf("CreateIssue(%s) failed: %v", id, err)
	}
}

// TestMirrorsSQLiteSemantics covers the behaviors the journal and classifier
// rely on so the two backends stay interchangeable in tests.
func TestMirrorsSQLiteSemantics(t *testing.T) {
	ctx := context.Background()
	store := New()
	seed(t, store, "a")

	// Reads return copies, not aliases into the store.
	got, err := store.GetIssue(ctx, "a")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	got.Title = "mutated"
	again, _ := store.GetIssue(ctx, "a")
	if again.Title == "mutated" {
		t.Error("GetIssue returned an alias into the store")
	}

	if _, err := store.GetIssue(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing issue error = %v, want ErrNotFound", err)
	}
}

func TestDependencyInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := New()
	seed(t, store, "a")

	for _, target := range []string{"z", "m", "b"} {
		dep := &types.Dependency{IssueID: "a", DependsOnID: target, Type: types.DepBlocks}
		if err := store.AddDependency(ctx, dep, "test"); err != nil {
			t.Fatalf("AddDependency failed: %v", err)
		}
	}
	// Upsert keeps the original position.
	dep := &types.Dependency{IssueID: "a", DependsOnID: "z", Type: types.DepRelated}
	if err := store.AddDependency(ctx, dep, "test"); err != nil {
		t.Fatalf("AddDependency upsert failed: %v", err)
	}

	deps, _ := store.GetAllDependencyRecords(ctx)
	want := []string{"z", "m", "b"}
	if len(deps) != 3 {
		t.Fatalf("deps = %d, want 3", len(deps))
	}
	for i, d := range deps {
		if d.DependsOnID != want[i] {
			t.Errorf("edge %d = %s, want %s", i, d.DependsOnID, want[i])
		}
	}
	if deps[0].Type != types.DepRelated {
		t.Errorf("upserted edge type = %s, want related", deps[0].Type)
	}
}

func TestDirtyAndEvents(t *testing.T) {
	ctx := context.Background()
	store := New()
	seed(t, store, "a")

	dirty, _ := store.GetDirtyIssues(ctx)
	if len(dirty) != 1 || dirty[0] != "a" {
		t.Fatalf("dirty = %v, want [a]", dirty)
	}
	if err := store.ClearDirtyIssues(ctx, []string{"a"}); err != nil {
		t.Fatalf("ClearDirtyIssues failed: %v", err)
	}

	if err := store.UpdateIssue(ctx, "a", map[string]interface{}{"title": "renamed"}, "test"); err != nil {
		t.Fatalf("UpdateIssue failed: %v", err)
	}
	dirty, _ = store.GetDirtyIssues(ctx)
	if len(dirty) != 1 {
		t.Errorf("dirty after update = %v, want [a]", dirty)
	}

	events, _ := store.GetEvents(ctx, "a", 0)
	if len(events) != 2 || events[0].EventType != types.EventUpdated {
		t.Errorf("events = %v, want updated then created (newest first)", events)
	}
}

func TestImportPathsLeaveNoTrace(t *testing.T) {
	ctx := context.Background()
	store := New()

	created := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	issue := &types.Issue{ID: "a", Title: "imported", Priority: 1, CreatedAt: created, UpdatedAt: created}
	if err := store.ImportIssue(ctx, issue); err != nil {
		t.Fatalf("ImportIssue failed: %v", err)
	}
	dep := &types.Dependency{IssueID: "a", DependsOnID: "b", Type: types.DepBlocks}
	if err := store.ImportDependency(ctx, dep); err != nil {
		t.Fatalf("ImportDependency failed: %v", err)
	}
	if _, err := store.ImportComment(ctx, "a", "alex", "note", created); err != nil {
		t.Fatalf("ImportComment failed: %v", err)
	}

	dirty, _ := store.GetDirtyIssues(ctx)
	if len(dirty) != 0 {
		t.Errorf("import marked issues dirty: %v", dirty)
	}
	events, _ := store.GetEvents(ctx, "a", 0)
	if len(events) != 0 {
		t.Errorf("import appended events: %v", events)
	}

	got, _ := store.GetIssue(ctx, "a")
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want preserved %v", got.CreatedAt, created)
	}
}

func TestNextChildID(t *testing.T) {
	ctx := context.Background()
	store := New()
	seed(t, store, "spool-1")

	id, err := store.NextChildID(ctx, "spool-1")
	if err != nil {
		t.Fatalf("NextChildID failed: %v", err)
	}
	if id != "spool-1.1" {
		t.Errorf("child ID = %s, want spool-1.1", id)
	}
	if _, err := store.NextChildID(ctx, "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("NextChildID for missing parent = %v, want ErrNotFound", err)
	}
}
