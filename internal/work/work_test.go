package work

import (
	"context"
	"testing"
	"time"

	"github.com/spoolworks/spool/internal/storage/memory"
	"github.com/spoolworks/spool/internal/types"
)

func newFixture(t *testing.T) (*memory.Store, *Classifier, context.Context) {
	t.Helper()
	store := memory.New()
	return store, New(store), context.Background()
}

func mustCreate(t *testing.T, store *memory.Store, issue *types.Issue) {
	t.Helper()
	if err := store.CreateIssue(context.Background(), issue, "test"); err != nil {
		t.Fatalf("CreateIssue(%s) failed: %v", issue.ID, err)
	}
}

func mustDepend(t *testing.T, store *memory.Store, from, to string, typ types.DependencyType) {
	t.Helper()
	dep := &types.Dependency{IssueID: from, DependsOnID: to, Type: typ}
	if err := store.AddDependency(context.Background(), dep, "test"); err != nil {
		t.Fatalf("AddDependency(%s -> %s) failed: %v", from, to, err)
	}
}

func issue(id, title string, priority int) *types.Issue {
	return &types.Issue{ID: id, Title: title, Priority: priority}
}

func readyIDs(t *testing.T, c *Classifier, filter types.WorkFilter) []string {
	t.Helper()
	issues, err := c.Ready(context.Background(), filter)
	if err != nil {
		t.Fatalf("Ready() failed: %v", err)
	}
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.ID
	}
	return out
}

// TestReady_BlockerGates: B depends on A via blocks, so only A is ready
// until A closes.
func TestReady_BlockerGates(t *testing.T) {
	store, c, ctx := newFixture(t)
	mustCreate(t, store, issue("a", "A", 1))
	mustCreate(t, store, issue("b", "B", 1))
	mustDepend(t, store, "b", "a", types.DepBlocks)

	got := readyIDs(t, c, types.WorkFilter{})
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("ready = %v, want [a]", got)
	}

	if err := store.CloseIssue(ctx, "a", "done", "test"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}
	got = readyIDs(t, c, types.WorkFilter{})
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("ready after close = %v, want [b]", got)
	}
}

// TestReady_InformationalEdgesDontBlock verifies related and
// discovered-from edges never gate readiness.
func TestReady_InformationalEdgesDontBlock(t *testing.T) {
	store, c, _ := newFixture(t)
	mustCreate(t, store, issue("a", "A", 1))
	mustCreate(t, store, issue("b", "B", 1))
	mustDepend(t, store, "b", "a", types.DepRelated)
	mustDepend(t, store, "b", "a", types.DepDiscoveredFrom)

	got := readyIDs(t, c, types.WorkFilter{})
	if len(got) != 2 {
		t.Errorf("ready = %v, want both issues", got)
	}
}

// TestReady_EpicChildWorkable: a parent-child edge to an open epic never
// gates the child; only blocks edges do.
func TestReady_EpicChildWorkable(t *testing.T) {
	store, c, ctx := newFixture(t)

	epic := issue("epic-1", "Big feature", 1)
	epic.IssueType = types.TypeEpic
	mustCreate(t, store, epic)
	mustCreate(t, store, issue("epic-1.1", "first child", 2))
	mustDepend(t, store, "epic-1.1", "epic-1", types.DepParentChild)

	got := readyIDs(t, c, types.WorkFilter{})
	if len(got) != 2 {
		t.Fatalf("ready = %v, want the epic and its child", got)
	}

	blocked, err := c.Blocked(ctx)
	if err != nil {
		t.Fatalf("Blocked() failed: %v", err)
	}
	if len(blocked) != 0 {
		t.Errorf("blocked = %v, want none", blocked)
	}

	stats, err := c.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics() failed: %v", err)
	}
	if stats.ReadyIssues != 2 || stats.BlockedIssues != 0 {
		t.Errorf("stats ready/blocked = %d/%d, want 2/0", stats.ReadyIssues, stats.BlockedIssues)
	}
}

// TestReady_DanglingEdgeTolerated: an edge to a nonexistent issue imposes
// no constraint.
func TestReady_DanglingEdgeTolerated(t *testing.T) {
	store, c, _ := newFixture(t)
	mustCreate(t, store, issue("a", "A", 1))
	mustDepend(t, store, "a", "ghost-1", types.DepBlocks)

	got := readyIDs(t, c, types.WorkFilter{})
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("ready = %v, want [a]", got)
	}
}

func TestReady_Filters(t *testing.T) {
	store, c, _ := newFixture(t)
	p0 := issue("a", "A", 0)
	p0.Assignee = "alex"
	mustCreate(t, store, p0)
	mustCreate(t, store, issue("b", "B", 2))
	if err := store.AddLabel(context.Background(), "b", "backend", "test"); err != nil {
		t.Fatalf("AddLabel failed: %v", err)
	}

	priority := 0
	if got := readyIDs(t, c, types.WorkFilter{Priority: &priority}); len(got) != 1 || got[0] != "a" {
		t.Errorf("priority filter = %v, want [a]", got)
	}
	if got := readyIDs(t, c, types.WorkFilter{Unassigned: true}); len(got) != 1 || got[0] != "b" {
		t.Errorf("unassigned filter = %v, want [b]", got)
	}
	if got := readyIDs(t, c, types.WorkFilter{Labels: []string{"backend"}}); len(got) != 1 || got[0] != "b" {
		t.Errorf("label filter = %v, want [b]", got)
	}
	if got := readyIDs(t, c, types.WorkFilter{Limit: 1}); len(got) != 1 {
		t.Errorf("limit = %v, want 1 issue", got)
	}
}

func TestReady_InvalidSortPolicy(t *testing.T) {
	_, c, ctx := newFixture(t)
	if _, err := c.Ready(ctx, types.WorkFilter{SortPolicy: "newest"}); err == nil {
		t.Error("expected error for invalid sort policy")
	}
}

// TestReady_HybridSort: recent issues sort by priority first, older issues
// trail by age regardless of priority.
func TestReady_HybridSort(t *testing.T) {
	store, c, _ := newFixture(t)

	old := issue("old-urgent", "old but urgent", 0)
	old.CreatedAt = time.Now().Add(-10 * 24 * time.Hour)
	old.UpdatedAt = old.CreatedAt
	mustCreate(t, store, old)

	older := issue("older-low", "oldest and low", 3)
	older.CreatedAt = time.Now().Add(-20 * 24 * time.Hour)
	older.UpdatedAt = older.CreatedAt
	mustCreate(t, store, older)

	mustCreate(t, store, issue("new-low", "new low priority", 3))
	mustCreate(t, store, issue("new-high", "new high priority", 0))

	got := readyIDs(t, c, types.WorkFilter{SortPolicy: types.SortPolicyHybrid})
	want := []string{"new-high", "new-low", "older-low", "old-urgent"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hybrid order = %v, want %v", got, want)
		}
	}

	got = readyIDs(t, c, types.WorkFilter{SortPolicy: types.SortPolicyPriority})
	if got[0] != "old-urgent" || got[1] != "new-high" {
		t.Errorf("priority order = %v", got)
	}

	got = readyIDs(t, c, types.WorkFilter{SortPolicy: types.SortPolicyOldest})
	if got[0] != "older-low" || got[1] != "old-urgent" {
		t.Errorf("oldest order = %v", got)
	}
}

func TestBlocked(t *testing.T) {
	store, c, ctx := newFixture(t)
	mustCreate(t, store, issue("a", "A", 1))
	mustCreate(t, store, issue("b", "B", 1))
	mustCreate(t, store, issue("c", "C", 1))
	mustDepend(t, store, "c", "a", types.DepBlocks)
	mustDepend(t, store, "c", "b", types.DepBlocks)

	blocked, err := c.Blocked(ctx)
	if err != nil {
		t.Fatalf("Blocked() failed: %v", err)
	}
	if len(blocked) != 1 {
		t.Fatalf("blocked = %d issues, want 1", len(blocked))
	}
	if blocked[0].ID != "c" || blocked[0].BlockedByCount != 2 {
		t.Errorf("blocked[0] = %s blocked by %d, want c blocked by 2", blocked[0].ID, blocked[0].BlockedByCount)
	}
}

// TestEligibleEpics: an epic with three children becomes eligible only when
// the third child closes.
func TestEligibleEpics(t *testing.T) {
	store, c, ctx := newFixture(t)

	epic := issue("epic-1", "Big feature", 1)
	epic.IssueType = types.TypeEpic
	mustCreate(t, store, epic)

	children := []string{"epic-1.1", "epic-1.2", "epic-1.3"}
	for _, id := range children {
		mustCreate(t, store, issue(id, "child "+id, 2))
		mustDepend(t, store, id, "epic-1", types.DepParentChild)
	}

	for i, id := range children {
		epics, err := c.EligibleEpics(ctx)
		if err != nil {
			t.Fatalf("EligibleEpics() failed: %v", err)
		}
		if len(epics) != 1 {
			t.Fatalf("epics = %d, want 1", len(epics))
		}
		if epics[0].ClosedChildren != i {
			t.Errorf("closed children = %d, want %d", epics[0].ClosedChildren, i)
		}
		if epics[0].EligibleForClose {
			t.Errorf("epic eligible with %d/3 children closed", i)
		}
		if err := store.CloseIssue(ctx, id, "", "test"); err != nil {
			t.Fatalf("CloseIssue(%s) failed: %v", id, err)
		}
	}

	epics, err := c.EligibleEpics(ctx)
	if err != nil {
		t.Fatalf("EligibleEpics() failed: %v", err)
	}
	if !epics[0].EligibleForClose {
		t.Error("epic should be eligible with all children closed")
	}
}

// TestEligibleEpics_NoChildren: a childless epic is never eligible.
func TestEligibleEpics_NoChildren(t *testing.T) {
	store, c, ctx := newFixture(t)
	epic := issue("epic-1", "Empty epic", 1)
	epic.IssueType = types.TypeEpic
	mustCreate(t, store, epic)

	epics, err := c.EligibleEpics(ctx)
	if err != nil {
		t.Fatalf("EligibleEpics() failed: %v", err)
	}
	if epics[0].EligibleForClose {
		t.Error("childless epic should not be eligible")
	}
}

func TestStale(t *testing.T) {
	store, c, ctx := newFixture(t)

	fresh := issue("fresh", "Fresh", 1)
	mustCreate(t, store, fresh)

	old := issue("old", "Old", 1)
	old.CreatedAt = time.Now().Add(-60 * 24 * time.Hour)
	old.UpdatedAt = old.CreatedAt
	mustCreate(t, store, old)

	closed := issue("done", "Done", 1)
	closed.CreatedAt = old.CreatedAt
	closed.UpdatedAt = old.CreatedAt
	mustCreate(t, store, closed)
	if err := store.CloseIssue(ctx, "done", "", "test"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}

	stale, err := c.Stale(ctx, types.StaleFilter{Days: 30})
	if err != nil {
		t.Fatalf("Stale() failed: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "old" {
		t.Errorf("stale = %v, want [old]", staleIDs(stale))
	}

	if _, err := c.Stale(ctx, types.StaleFilter{Days: 30, Status: "closed"}); err == nil {
		t.Error("closed should be an invalid stale status filter")
	}
}

func staleIDs(issues []*types.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.ID
	}
	return out
}

func TestStatistics(t *testing.T) {
	store, c, ctx := newFixture(t)
	mustCreate(t, store, issue("a", "A", 1))
	mustCreate(t, store, issue("b", "B", 1))
	mustCreate(t, store, issue("c", "C", 1))
	mustDepend(t, store, "b", "a", types.DepBlocks)
	if err := store.CloseIssue(ctx, "c", "", "test"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}

	stats, err := c.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics() failed: %v", err)
	}
	if stats.TotalIssues != 3 {
		t.Errorf("total = %d, want 3", stats.TotalIssues)
	}
	if stats.OpenIssues != 2 {
		t.Errorf("open = %d, want 2", stats.OpenIssues)
	}
	if stats.ClosedIssues != 1 {
		t.Errorf("closed = %d, want 1", stats.ClosedIssues)
	}
	if stats.ReadyIssues != 1 {
		t.Errorf("ready = %d, want 1", stats.ReadyIssues)
	}
	if stats.BlockedIssues != 1 {
		t.Errorf("blocked = %d, want 1", stats.BlockedIssues)
	}
}
