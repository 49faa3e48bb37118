package graph

import (
	"reflect"
	"testing"

	"github.com/spoolworks/spool/internal/types"
)

func dep(from, to string, typ types.DependencyType) *types.Dependency {
	return &types.Dependency{IssueID: from, DependsOnID: to, Type: typ}
}

func TestDetectCycles_None(t *testing.T) {
	snap := NewSnapshot([]*types.Dependency{
		dep("a", "b", types.DepBlocks),
		dep("b", "c", types.DepBlocks),
		dep("a", "c", types.DepBlocks),
	})
	if cycles := snap.DetectCycles(); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestDetectCycles_Simple(t *testing.T) {
	snap := NewSnapshot([]*types.Dependency{
		dep("a", "b", types.DepBlocks),
		dep("b", "a", types.DepBlocks),
	})
	cycles := snap.DetectCycles()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %v", cycles)
	}
	if len(cycles[0]) != 2 {
		t.Errorf("cycle = %v, want 2 nodes", cycles[0])
	}
}

func TestDetectCycles_SelfLoop(t *testing.T) {
	snap := NewSnapshot([]*types.Dependency{
		dep("a", "a", types.DepBlocks),
	})
	cycles := snap.DetectCycles()
	if len(cycles) != 1 || len(cycles[0]) != 1 || cycles[0][0] != "a" {
		t.Errorf("expected self-loop cycle [a], got %v", cycles)
	}
}

// TestDetectCycles_NonConstrainingIgnored verifies related and
// discovered-from edges never form cycles.
func TestDetectCycles_NonConstrainingIgnored(t *testing.T) {
	snap := NewSnapshot([]*types.Dependency{
		dep("a", "b", types.DepRelated),
		dep("b", "a", types.DepDiscoveredFrom),
		dep("a", "c", types.DepBlocks),
		dep("c", "a", types.DepRelated),
	})
	if cycles := snap.DetectCycles(); len(cycles) != 0 {
		t.Errorf("informational edges formed a cycle: %v", cycles)
	}
}

// TestDetectCycles_Dedup verifies the same cycle is reported once even
// though it is reachable from multiple entry points.
func TestDetectCycles_Dedup(t *testing.T) {
	snap := NewSnapshot([]*types.Dependency{
		dep("x", "a", types.DepBlocks),
		dep("y", "b", types.DepBlocks),
		dep("a", "b", types.DepBlocks),
		dep("b", "c", types.DepBlocks),
		dep("c", "a", types.DepBlocks),
	})
	cycles := snap.DetectCycles()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %v", cycles)
	}
	if len(cycles[0]) != 3 {
		t.Errorf("cycle = %v, want 3 nodes", cycles[0])
	}
}

func TestDetectCycles_TwoDisjoint(t *testing.T) {
	snap := NewSnapshot([]*types.Dependency{
		dep("a", "b", types.DepBlocks),
		dep("b", "a", types.DepBlocks),
		dep("c", "d", types.DepParentChild),
		dep("d", "c", types.DepParentChild),
	})
	if cycles := snap.DetectCycles(); len(cycles) != 2 {
		t.Errorf("expected 2 cycles, got %v", cycles)
	}
}

func ids(nodes []TreeNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestTree_Linear(t *testing.T) {
	snap := NewSnapshot([]*types.Dependency{
		dep("a", "b", types.DepBlocks),
		dep("b", "c", types.DepBlocks),
	})
	nodes := snap.Tree("a", 0, false, false)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(ids(nodes), want) {
		t.Errorf("tree = %v, want %v", ids(nodes), want)
	}
	for i, depth := range []int{0, 1, 2} {
		if nodes[i].Depth != depth {
			t.Errorf("node %s depth = %d, want %d", nodes[i].ID, nodes[i].Depth, depth)
		}
	}
}

// TestTree_Diamond_SingleVisit verifies the shared node appears once at its
// first discovery in default mode and on both paths in all-paths mode.
func TestTree_Diamond_SingleVisit(t *testing.T) {
	deps := []*types.Dependency{
		dep("a", "b", types.DepBlocks),
		dep("a", "c", types.DepBlocks),
		dep("b", "d", types.DepBlocks),
		dep("c", "d", types.DepBlocks),
	}
	snap := NewSnapshot(deps)

	single := ids(snap.Tree("a", 0, false, false))
	if !reflect.DeepEqual(single, []string{"a", "b", "d", "c"}) {
		t.Errorf("single-visit tree = %v", single)
	}

	all := ids(snap.Tree("a", 0, true, false))
	if !reflect.DeepEqual(all, []string{"a", "b", "d", "c", "d"}) {
		t.Errorf("all-paths tree = %v", all)
	}
}

func TestTree_CycleTruncated(t *testing.T) {
	snap := NewSnapshot([]*types.Dependency{
		dep("a", "b", types.DepBlocks),
		dep("b", "a", types.DepBlocks),
	})
	nodes := snap.Tree("a", 0, false, false)
	if !reflect.DeepEqual(ids(nodes), []string{"a", "b", "a"}) {
		t.Fatalf("tree = %v", ids(nodes))
	}
	if !nodes[2].Truncated {
		t.Error("cycle node should be truncated")
	}
}

func TestTree_DepthCap(t *testing.T) {
	snap := NewSnapshot([]*types.Dependency{
		dep("a", "b", types.DepBlocks),
		dep("b", "c", types.DepBlocks),
		dep("c", "d", types.DepBlocks),
	})
	nodes := snap.Tree("a", 2, false, false)
	if !reflect.DeepEqual(ids(nodes), []string{"a", "b", "c"}) {
		t.Fatalf("tree = %v", ids(nodes))
	}
	// c has children beyond the cap, so it is a truncated leaf.
	if !nodes[2].Truncated {
		t.Error("depth-capped node with children should be truncated")
	}
}

func TestTree_Reverse(t *testing.T) {
	snap := NewSnapshot([]*types.Dependency{
		dep("a", "c", types.DepBlocks),
		dep("b", "c", types.DepBlocks),
	})
	nodes := snap.Tree("c", 0, false, true)
	if !reflect.DeepEqual(ids(nodes), []string{"c", "a", "b"}) {
		t.Errorf("reverse tree = %v", ids(nodes))
	}
}

func TestCounts(t *testing.T) {
	snap := NewSnapshot([]*types.Dependency{
		dep("a", "b", types.DepBlocks),
		dep("a", "c", types.DepParentChild),
		dep("a", "d", types.DepRelated), // not counted
		dep("e", "a", types.DepBlocks),
	})
	counts := snap.Counts([]string{"a", "b", "z"})

	if counts["a"].DependencyCount != 2 {
		t.Errorf("a dependency count = %d, want 2", counts["a"].DependencyCount)
	}
	if counts["a"].DependentCount != 1 {
		t.Errorf("a dependent count = %d, want 1", counts["a"].DependentCount)
	}
	if counts["b"].DependencyCount != 0 || counts["b"].DependentCount != 1 {
		t.Errorf("b counts = %+v", counts["b"])
	}
	if counts["z"].DependencyCount != 0 || counts["z"].DependentCount != 0 {
		t.Errorf("unknown node should have zero counts, got %+v", counts["z"])
	}
}

func TestRoots(t *testing.T) {
	snap := NewSnapshot([]*types.Dependency{
		dep("a", "b", types.DepBlocks),
		dep("c", "d", types.DepRelated),
	})
	roots := snap.Roots()
	// b has an incoming constraining edge; c and d only touch a related
	// edge, so both are roots alongside a.
	want := []string{"a", "c", "d"}
	if !reflect.DeepEqual(roots, want) {
		t.Errorf("roots = %v, want %v", roots, want)
	}
}
