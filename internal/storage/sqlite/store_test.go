package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spoolworks/spool/internal/storage"
	"github.com/spoolworks/spool/internal/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spool.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	})
	return store
}

func createIssue(t *testing.T, store *Store, id, title string) *types.Issue {
	t.Helper()
	issue := &types.Issue{ID: id, Title: title, Priority: 2}
	if err := store.CreateIssue(context.Background(), issue, "test"); err != nil {
		t.Fatalf("CreateIssue(%s) failed: %v", id, err)
	}
	return issue
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "spool.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	issue := &types.Issue{ID: "spool-1", Title: "Persisted", Priority: 1}
	if err := store.CreateIssue(ctx, issue, "test"); err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// Reopening the same file finds the data; initSchema is idempotent.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	got, err := store.GetIssue(ctx, "spool-1")
	if err != nil {
		t.Fatalf("GetIssue after reopen failed: %v", err)
	}
	if got.Title != "Persisted" {
		t.Errorf("title = %q, want Persisted", got.Title)
	}
}

func TestCreateIssue_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	ref := "gh-42"
	issue := &types.Issue{
		ID:          "spool-1",
		Title:       "Full issue",
		Description: "desc",
		Design:      "design",
		Notes:       "notes",
		Priority:    1,
		IssueType:   types.TypeBug,
		Assignee:    "alex",
		ExternalRef: &ref,
	}
	if err := store.CreateIssue(ctx, issue, "test"); err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	if issue.ContentHash == "" {
		t.Error("content hash not computed on create")
	}

	got, err := store.GetIssue(ctx, "spool-1")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.Title != issue.Title || got.Description != issue.Description ||
		got.Priority != issue.Priority || got.IssueType != issue.IssueType ||
		got.Assignee != issue.Assignee {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.ExternalRef == nil || *got.ExternalRef != ref {
		t.Errorf("external ref = %v, want %s", got.ExternalRef, ref)
	}
	if got.ContentHash != issue.ContentHash {
		t.Error("content hash changed on scan")
	}
	if got.Status != types.StatusOpen {
		t.Errorf("status = %s, want open", got.Status)
	}

	byRef, err := store.GetIssueByExternalRef(ctx, ref)
	if err != nil {
		t.Fatalf("GetIssueByExternalRef failed: %v", err)
	}
	if byRef.ID != "spool-1" {
		t.Errorf("lookup by ref = %s, want spool-1", byRef.ID)
	}
}

func TestCreateIssue_Duplicate(t *testing.T) {
	store := testStore(t)
	createIssue(t, store, "spool-1", "First")
	issue := &types.Issue{ID: "spool-1", Title: "Again", Priority: 1}
	if err := store.CreateIssue(context.Background(), issue, "test"); err == nil {
		t.Error("expected error for duplicate ID")
	}
}

func TestGetIssue_NotFound(t *testing.T) {
	store := testStore(t)
	_, err := store.GetIssue(context.Background(), "spool-404")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetIssues_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	createIssue(t, store, "a", "A")
	createIssue(t, store, "b", "B")
	createIssue(t, store, "c", "C")

	got, err := store.GetIssues(ctx, []string{"c", "missing", "a"})
	if err != nil {
		t.Fatalf("GetIssues failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Errorf("GetIssues order = %v", got)
	}
}

func TestUpdateIssue(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	created := createIssue(t, store, "spool-1", "Before")

	err := store.UpdateIssue(ctx, "spool-1", map[string]interface{}{
		"title":    "After",
		"priority": 0,
	}, "test")
	if err != nil {
		t.Fatalf("UpdateIssue failed: %v", err)
	}

	got, err := store.GetIssue(ctx, "spool-1")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.Title != "After" || got.Priority != 0 {
		t.Errorf("update not applied: %+v", got)
	}
	if got.ContentHash == created.ContentHash {
		t.Error("content hash not recomputed")
	}
	if !got.UpdatedAt.After(created.UpdatedAt) {
		t.Error("updated_at not bumped")
	}
}

func TestUpdateIssue_ClosedAtInvariant(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	createIssue(t, store, "spool-1", "Issue")

	// Moving to closed via update sets closed_at.
	if err := store.UpdateIssue(ctx, "spool-1", map[string]interface{}{"status": "closed"}, "test"); err != nil {
		t.Fatalf("UpdateIssue to closed failed: %v", err)
	}
	got, _ := store.GetIssue(ctx, "spool-1")
	if got.ClosedAt == nil {
		t.Fatal("closed_at not set on close")
	}

	// Moving back clears it.
	if err := store.UpdateIssue(ctx, "spool-1", map[string]interface{}{"status": "open"}, "test"); err != nil {
		t.Fatalf("UpdateIssue to open failed: %v", err)
	}
	got, _ = store.GetIssue(ctx, "spool-1")
	if got.ClosedAt != nil {
		t.Error("closed_at not cleared on reopen")
	}
}

func TestUpdateIssue_Invalid(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	createIssue(t, store, "spool-1", "Issue")

	if err := store.UpdateIssue(ctx, "spool-1", map[string]interface{}{"priority": 9}, "test"); err == nil {
		t.Error("expected validation error for priority 9")
	}
	if err := store.UpdateIssue(ctx, "spool-1", map[string]interface{}{"color": "red"}, "test"); err == nil {
		t.Error("expected error for unknown field")
	}
	// Failed update leaves the row untouched.
	got, _ := store.GetIssue(ctx, "spool-1")
	if got.Priority != 2 {
		t.Errorf("priority = %d after failed update, want 2", got.Priority)
	}
}

func TestCloseReopen(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	createIssue(t, store, "spool-1", "Issue")

	if err := store.CloseIssue(ctx, "spool-1", "fixed upstream", "test"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}
	got, _ := store.GetIssue(ctx, "spool-1")
	if got.Status != types.StatusClosed || got.ClosedAt == nil || got.CloseReason != "fixed upstream" {
		t.Errorf("close not applied: %+v", got)
	}
	if err := store.CloseIssue(ctx, "spool-1", "", "test"); err == nil {
		t.Error("expected error closing an already-closed issue")
	}

	if err := store.ReopenIssue(ctx, "spool-1", "test"); err != nil {
		t.Fatalf("ReopenIssue failed: %v", err)
	}
	got, _ = store.GetIssue(ctx, "spool-1")
	if got.Status != types.StatusOpen || got.ClosedAt != nil || got.CloseReason != "" {
		t.Errorf("reopen not applied: %+v", got)
	}
	if err := store.ReopenIssue(ctx, "spool-1", "test"); err == nil {
		t.Error("expected error reopening an open issue")
	}
}

func TestDeleteIssue_Cascades(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	createIssue(t, store, "spool-1", "Doomed")
	createIssue(t, store, "spool-2", "Neighbor")

	dep := &types.Dependency{IssueID: "spool-2", DependsOnID: "spool-1", Type: types.DepBlocks}
	if err := store.AddDependency(ctx, dep, "test"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	if err := store.AddLabel(ctx, "spool-1", "doomed", "test"); err != nil {
		t.Fatalf("AddLabel failed: %v", err)
	}
	if _, err := store.AddComment(ctx, "spool-1", "alex", "bye"); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}

	if err := store.DeleteIssue(ctx, "spool-1"); err != nil {
		t.Fatalf("DeleteIssue failed: %v", err)
	}
	if _, err := store.GetIssue(ctx, "spool-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetIssue after delete = %v, want ErrNotFound", err)
	}

	// Edges touching the issue from either side are gone.
	deps, _ := store.GetAllDependencyRecords(ctx)
	if len(deps) != 0 {
		t.Errorf("deps after delete = %v, want none", deps)
	}
	labels, _ := store.GetLabels(ctx, "spool-1")
	if len(labels) != 0 {
		t.Errorf("labels after delete = %v", labels)
	}
	comments, _ := store.GetComments(ctx, "spool-1")
	if len(comments) != 0 {
		t.Errorf("comments after delete = %v", comments)
	}
	events, _ := store.GetEvents(ctx, "spool-1", 0)
	if len(events) != 0 {
		t.Errorf("events after delete = %v", events)
	}

	// The ID stays dirty so the next export drops the journal record.
	dirty, _ := store.GetDirtyIssues(ctx)
	if !containsString(dirty, "spool-1") {
		t.Errorf("dirty = %v, want spool-1 present", dirty)
	}

	if err := store.DeleteIssue(ctx, "spool-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestSearchIssues(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	a := &types.Issue{ID: "a", Title: "A", Priority: 2, Assignee: "alex"}
	if err := store.CreateIssue(ctx, a, "test"); err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	createIssue(t, store, "b", "B")
	c := &types.Issue{ID: "c", Title: "C", Priority: 0, IssueType: types.TypeBug}
	if err := store.CreateIssue(ctx, c, "test"); err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	if err := store.AddLabel(ctx, "b", "backend", "test"); err != nil {
		t.Fatalf("AddLabel failed: %v", err)
	}
	if err := store.AddLabel(ctx, "b", "urgent", "test"); err != nil {
		t.Fatalf("AddLabel failed: %v", err)
	}
	if err := store.CloseIssue(ctx, "a", "", "test"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}

	all, err := store.SearchIssues(ctx, types.IssueFilter{})
	if err != nil {
		t.Fatalf("SearchIssues failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" {
		t.Errorf("unfiltered = %v, want c first (priority 0)", issueIDs(all))
	}

	open := types.StatusOpen
	got, _ := store.SearchIssues(ctx, types.IssueFilter{Status: &open})
	if len(got) != 2 {
		t.Errorf("open issues = %v, want 2", issueIDs(got))
	}

	bug := types.TypeBug
	got, _ = store.SearchIssues(ctx, types.IssueFilter{IssueType: &bug})
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("bugs = %v, want [c]", issueIDs(got))
	}

	got, _ = store.SearchIssues(ctx, types.IssueFilter{Labels: []string{"backend", "urgent"}})
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("labels AND = %v, want [b]", issueIDs(got))
	}
	got, _ = store.SearchIssues(ctx, types.IssueFilter{Labels: []string{"backend", "frontend"}})
	if len(got) != 0 {
		t.Errorf("labels AND with missing label = %v, want none", issueIDs(got))
	}
	got, _ = store.SearchIssues(ctx, types.IssueFilter{LabelsAny: []string{"backend", "frontend"}})
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("labels OR = %v, want [b]", issueIDs(got))
	}

	got, _ = store.SearchIssues(ctx, types.IssueFilter{Limit: 2})
	if len(got) != 2 {
		t.Errorf("limit = %v, want 2", issueIDs(got))
	}

	got, _ = store.SearchIssues(ctx, types.IssueFilter{IDs: []string{"a", "c"}})
	if len(got) != 2 {
		t.Errorf("IDs filter = %v, want 2", issueIDs(got))
	}
}

func TestDependencies(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	createIssue(t, store, "a", "A")

	// Edges may point at issues that don't exist yet.
	dep := &types.Dependency{IssueID: "a", DependsOnID: "ghost", Type: types.DepBlocks}
	if err := store.AddDependency(ctx, dep, "test"); err != nil {
		t.Fatalf("AddDependency to missing issue failed: %v", err)
	}
	if dep.CreatedBy != "test" {
		t.Errorf("created_by = %q, want actor default", dep.CreatedBy)
	}

	// Re-adding replaces the type, not a second edge.
	dep2 := &types.Dependency{IssueID: "a", DependsOnID: "ghost", Type: types.DepRelated}
	if err := store.AddDependency(ctx, dep2, "test"); err != nil {
		t.Fatalf("AddDependency upsert failed: %v", err)
	}
	deps, _ := store.GetDependencyRecords(ctx, "a")
	if len(deps) != 1 || deps[0].Type != types.DepRelated {
		t.Errorf("deps = %v, want one related edge", deps)
	}

	incoming, _ := store.GetDependentRecords(ctx, "ghost")
	if len(incoming) != 1 || incoming[0].IssueID != "a" {
		t.Errorf("dependents = %v, want edge from a", incoming)
	}

	if err := store.RemoveDependency(ctx, "a", "ghost", "test"); err != nil {
		t.Fatalf("RemoveDependency failed: %v", err)
	}
	if err := store.RemoveDependency(ctx, "a", "ghost", "test"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second remove = %v, want ErrNotFound", err)
	}

	bad := &types.Dependency{IssueID: "a", DependsOnID: "b", Type: "requires"}
	if err := store.AddDependency(ctx, bad, "test"); err == nil {
		t.Error("expected error for invalid dependency type")
	}
}

func TestDependencies_InsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	createIssue(t, store, "a", "A")

	for _, target := range []string{"z", "m", "b"} {
		dep := &types.Dependency{IssueID: "a", DependsOnID: target, Type: types.DepBlocks}
		if err := store.AddDependency(ctx, dep, "test"); err != nil {
			t.Fatalf("AddDependency failed: %v", err)
		}
	}
	deps, err := store.GetAllDependencyRecords(ctx)
	if err != nil {
		t.Fatalf("GetAllDependencyRecords failed: %v", err)
	}
	want := []string{"z", "m", "b"}
	for i, dep := range deps {
		if dep.DependsOnID != want[i] {
			t.Fatalf("edge %d = %s, want %s (insertion order)", i, dep.DependsOnID, want[i])
		}
	}
}

func TestLabels(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	createIssue(t, store, "a", "A")

	if err := store.AddLabel(ctx, "a", "backend", "test"); err != nil {
		t.Fatalf("AddLabel failed: %v", err)
	}
	// Idempotent: no duplicate, no extra event.
	if err := store.AddLabel(ctx, "a", "backend", "test"); err != nil {
		t.Fatalf("re-AddLabel failed: %v", err)
	}
	if err := store.AddLabel(ctx, "a", "api", "test"); err != nil {
		t.Fatalf("AddLabel failed: %v", err)
	}

	labels, _ := store.GetLabels(ctx, "a")
	if len(labels) != 2 || labels[0] != "api" || labels[1] != "backend" {
		t.Errorf("labels = %v, want [api backend]", labels)
	}

	if err := store.AddLabel(ctx, "missing", "x", "test"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("AddLabel to missing issue = %v, want ErrNotFound", err)
	}

	if err := store.RemoveLabel(ctx, "a", "backend", "test"); err != nil {
		t.Fatalf("RemoveLabel failed: %v", err)
	}
	if err := store.RemoveLabel(ctx, "a", "backend", "test"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second RemoveLabel = %v, want ErrNotFound", err)
	}

	batch, _ := store.GetLabelsForIssues(ctx, []string{"a"})
	if len(batch["a"]) != 1 || batch["a"][0] != "api" {
		t.Errorf("batch labels = %v", batch)
	}
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	createIssue(t, store, "a", "A")

	first, err := store.AddComment(ctx, "a", "alex", "first")
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if first.ID == 0 {
		t.Error("comment ID not assigned")
	}
	if _, err := store.AddComment(ctx, "a", "sam", "second"); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}

	comments, _ := store.GetComments(ctx, "a")
	if len(comments) != 2 || comments[0].Text != "first" || comments[1].Text != "second" {
		t.Errorf("comments = %v, want creation order", comments)
	}

	if _, err := store.AddComment(ctx, "missing", "alex", "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("AddComment to missing issue = %v, want ErrNotFound", err)
	}
}

func TestImportComment_Dedupes(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	createIssue(t, store, "a", "A")

	when := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if _, err := store.ImportComment(ctx, "a", "alex", "note", when); err != nil {
		t.Fatalf("ImportComment failed: %v", err)
	}
	if _, err := store.ImportComment(ctx, "a", "alex", "note", when); err != nil {
		t.Fatalf("re-ImportComment failed: %v", err)
	}

	comments, _ := store.GetComments(ctx, "a")
	if len(comments) != 1 {
		t.Fatalf("comments = %d, want 1 (deduplicated)", len(comments))
	}
	if !comments[0].CreatedAt.Equal(when) {
		t.Errorf("created_at = %v, want original %v", comments[0].CreatedAt, when)
	}
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	createIssue(t, store, "a", "A")
	if err := store.UpdateIssue(ctx, "a", map[string]interface{}{"title": "B"}, "test"); err != nil {
		t.Fatalf("UpdateIssue failed: %v", err)
	}
	if err := store.CloseIssue(ctx, "a", "done", "test"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}

	events, err := store.GetEvents(ctx, "a", 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	// Newest first.
	if events[0].EventType != types.EventClosed {
		t.Errorf("events[0] = %s, want closed", events[0].EventType)
	}
	if events[2].EventType != types.EventCreated {
		t.Errorf("events[2] = %s, want created", events[2].EventType)
	}
	if events[0].OldValue == nil || *events[0].OldValue != "open" {
		t.Errorf("close event old value = %v, want open", events[0].OldValue)
	}

	limited, _ := store.GetEvents(ctx, "a", 1)
	if len(limited) != 1 || limited[0].EventType != types.EventClosed {
		t.Errorf("limited events = %v", limited)
	}
}

func TestDirtyTracking(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	createIssue(t, store, "a", "A")
	createIssue(t, store, "b", "B")

	dirty, _ := store.GetDirtyIssues(ctx)
	if len(dirty) != 2 {
		t.Fatalf("dirty = %v, want both new issues", dirty)
	}

	if err := store.ClearDirtyIssues(ctx, []string{"a"}); err != nil {
		t.Fatalf("ClearDirtyIssues failed: %v", err)
	}
	dirty, _ = store.GetDirtyIssues(ctx)
	if len(dirty) != 1 || dirty[0] != "b" {
		t.Errorf("dirty = %v, want [b]", dirty)
	}

	if err := store.MarkDirty(ctx, "a"); err != nil {
		t.Fatalf("MarkDirty failed: %v", err)
	}
	dirty, _ = store.GetDirtyIssues(ctx)
	if len(dirty) != 2 {
		t.Errorf("dirty = %v, want both again", dirty)
	}
}

func TestExportHashes(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	hash, err := store.GetExportHash(ctx, "a")
	if err != nil {
		t.Fatalf("GetExportHash failed: %v", err)
	}
	if hash != "" {
		t.Errorf("unset hash = %q, want empty", hash)
	}

	if err := store.SetExportHash(ctx, "a", "h1"); err != nil {
		t.Fatalf("SetExportHash failed: %v", err)
	}
	if err := store.SetExportHash(ctx, "a", "h2"); err != nil {
		t.Fatalf("SetExportHash upsert failed: %v", err)
	}
	hash, _ = store.GetExportHash(ctx, "a")
	if hash != "h2" {
		t.Errorf("hash = %q, want h2", hash)
	}

	if err := store.ClearAllExportHashes(ctx); err != nil {
		t.Fatalf("ClearAllExportHashes failed: %v", err)
	}
	hash, _ = store.GetExportHash(ctx, "a")
	if hash != "" {
		t.Errorf("hash after clear = %q, want empty", hash)
	}
}

func TestImportIssue_NoSideEffects(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	created := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	issue := &types.Issue{
		ID:        "spool-1",
		Title:     "Imported",
		Priority:  1,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := store.ImportIssue(ctx, issue); err != nil {
		t.Fatalf("ImportIssue failed: %v", err)
	}

	got, err := store.GetIssue(ctx, "spool-1")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(created) {
		t.Errorf("timestamps not preserved: created %v updated %v", got.CreatedAt, got.UpdatedAt)
	}

	dirty, _ := store.GetDirtyIssues(ctx)
	if len(dirty) != 0 {
		t.Errorf("import marked issues dirty: %v", dirty)
	}
	events, _ := store.GetEvents(ctx, "spool-1", 0)
	if len(events) != 0 {
		t.Errorf("import appended events: %v", events)
	}

	// Upsert path.
	issue.Title = "Imported again"
	if err := store.ImportIssue(ctx, issue); err != nil {
		t.Fatalf("re-ImportIssue failed: %v", err)
	}
	got, _ = store.GetIssue(ctx, "spool-1")
	if got.Title != "Imported again" {
		t.Errorf("title = %q, upsert not applied", got.Title)
	}
}

func TestCounters(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	id, err := store.NextID(ctx, "spool")
	if err != nil {
		t.Fatalf("NextID failed: %v", err)
	}
	if id != "spool-1" {
		t.Errorf("first ID = %s, want spool-1", id)
	}
	id, _ = store.NextID(ctx, "spool")
	if id != "spool-2" {
		t.Errorf("second ID = %s, want spool-2", id)
	}
	// Prefixes count independently.
	id, _ = store.NextID(ctx, "web")
	if id != "web-1" {
		t.Errorf("other prefix = %s, want web-1", id)
	}

	createIssue(t, store, "spool-1", "Parent")
	child, err := store.NextChildID(ctx, "spool-1")
	if err != nil {
		t.Fatalf("NextChildID failed: %v", err)
	}
	if child != "spool-1.1" {
		t.Errorf("child ID = %s, want spool-1.1", child)
	}
	child, _ = store.NextChildID(ctx, "spool-1")
	if child != "spool-1.2" {
		t.Errorf("second child ID = %s, want spool-1.2", child)
	}

	if _, err := store.NextChildID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("NextChildID for missing parent = %v, want ErrNotFound", err)
	}
}

func TestConfigAndMetadata(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	if err := store.SetConfig(ctx, "issue-prefix", "spool"); err != nil {
		t.Fatalf("SetConfig failed: %v", err)
	}
	value, _ := store.GetConfig(ctx, "issue-prefix")
	if value != "spool" {
		t.Errorf("config = %q, want spool", value)
	}
	if err := store.SetConfig(ctx, "issue-prefix", "web"); err != nil {
		t.Fatalf("SetConfig upsert failed: %v", err)
	}
	value, _ = store.GetConfig(ctx, "issue-prefix")
	if value != "web" {
		t.Errorf("config = %q, want web", value)
	}
	if err := store.DeleteConfig(ctx, "issue-prefix"); err != nil {
		t.Fatalf("DeleteConfig failed: %v", err)
	}
	value, _ = store.GetConfig(ctx, "issue-prefix")
	if value != "" {
		t.Errorf("config after delete = %q, want empty", value)
	}

	if err := store.SetJournalFileHash(ctx, "abc123"); err != nil {
		t.Fatalf("SetJournalFileHash failed: %v", err)
	}
	hash, _ := store.GetJournalFileHash(ctx)
	if hash != "abc123" {
		t.Errorf("journal file hash = %q, want abc123", hash)
	}
}

func issueIDs(issues []*types.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.ID
	}
	return out
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
