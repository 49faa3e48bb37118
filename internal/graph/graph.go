// Package graph implements the dependency graph algorithms: cycle
// detection, dependency tree construction, and dependency counting.
//
// All algorithms run over a Snapshot - a one-time in-memory copy of the
// edge set read under the store's lock. This keeps a single traversal
// read-consistent even if the store is concurrently mutated, and avoids
// re-querying the store per node.
package graph

import (
	"sort"
	"strings"

	"github.com/spoolworks/spool/internal/types"
)

// Snapshot is an immutable adjacency view of the dependency edge set.
// Adjacency lists preserve edge insertion order so traversal tie-breaks
// are deterministic.
type Snapshot struct {
	forward map[string][]edge // issue -> issues it depends on
	reverse map[string][]edge // issue -> issues that depend on it
	nodes   []string          // node IDs in first-seen order
}

type edge struct {
	to  string
	typ types.DependencyType
}

// NewSnapshot builds a Snapshot from a dependency record slice. The slice
// must be in insertion order (the store guarantees this).
func NewSnapshot(deps []*types.Dependency) *Snapshot {
	s := &Snapshot{
		forward: make(map[string][]edge),
		reverse: make(map[string][]edge),
	}
	seen := make(map[string]bool)
	for _, d := range deps {
		s.forward[d.IssueID] = append(s.forward[d.IssueID], edge{to: d.DependsOnID, typ: d.Type})
		s.reverse[d.DependsOnID] = append(s.reverse[d.DependsOnID], edge{to: d.IssueID, typ: d.Type})
		if !seen[d.IssueID] {
			seen[d.IssueID] = true
			s.nodes = append(s.nodes, d.IssueID)
		}
		if !seen[d.DependsOnID] {
			seen[d.DependsOnID] = true
			s.nodes = append(s.nodes, d.DependsOnID)
		}
	}
	return s
}

// Three-color DFS marking.
const (
	white = iota // unvisited
	gray         // in progress (on current path)
	black        // done
)

// DetectCycles finds all elementary cycles reachable from any node,
// considering only edge types that impose ordering constraints (blocks and
// parent-child). Each cycle is reported as the ordered sequence of issue IDs
// forming it. A self-loop is a one-node cycle and is reported.
//
// Cost is amortized linear in nodes+edges: every node is pushed gray at most
// once per DFS and finished black exactly once.
func (s *Snapshot) DetectCycles() [][]string {
	color := make(map[string]int, len(s.nodes))
	var path []string
	var cycles [][]string
	seen := make(map[string]bool) // dedupe by rotation-normalized key

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		path = append(path, node)

		for _, e := range s.forward[node] {
			if !e.typ.Constrains() {
				continue
			}
			switch color[e.to] {
			case white:
				visit(e.to)
			case gray:
				// Back edge: the cycle is the path slice from e.to
				// to the current node inclusive.
				start := -1
				for i, id := range path {
					if id == e.to {
						start = i
						break
					}
				}
				if start >= 0 {
					cycle := append([]string(nil), path[start:]...)
					key := cycleKey(cycle)
					if !seen[key] {
						seen[key] = true
						cycles = append(cycles, cycle)
					}
				}
			}
		}

		path = path[:len(path)-1]
		color[node] = black
	}

	for _, node := range s.nodes {
		if color[node] == white {
			visit(node)
		}
	}
	return cycles
}

// cycleKey normalizes a cycle to a canonical rotation (lexicographically
// smallest ID first) so the same cycle discovered from different entry
// points is reported once.
func cycleKey(cycle []string) string {
	min := 0
	for i, id := range cycle {
		if id < cycle[min] {
			min = i
		}
	}
	rotated := make([]string, 0, len(cycle))
	rotated = append(rotated, cycle[min:]...)
	rotated = append(rotated, cycle[:min]...)
	return strings.Join(rotated, "\x00")
}

// TreeNode is one entry in a pre-order dependency tree traversal.
type TreeNode struct {
	ID        string
	Depth     int
	ParentID  string
	Truncated bool
}

// Tree walks the dependency tree rooted at rootID in pre-order.
//
// maxDepth <= 0 means unlimited. When showAllPaths is false each issue
// appears at most once, at the first depth it is discovered (ties broken by
// edge insertion order); when true every distinct path is emitted. A node
// whose expansion would exceed maxDepth is emitted once more as a
// truncated leaf, as is a node already on the current path (cycle
// tolerance). Depth-cap truncation markers appear in both modes, not just
// showAllPaths, so a capped listing always shows where it was cut off.
// reverse=false follows "what this depends on"; reverse=true follows
// "what depends on this".
//
// The traversal is iterative with an explicit current-path set, so it is
// stack-depth-independent.
func (s *Snapshot) Tree(rootID string, maxDepth int, showAllPaths, reverse bool) []TreeNode {
	adj := s.forward
	if reverse {
		adj = s.reverse
	}

	type frame struct {
		id   string
		next int // index of the next child edge to expand
	}

	var out []TreeNode
	visited := map[string]bool{rootID: true}
	onPath := map[string]bool{rootID: true}
	stack := []frame{{id: rootID}}
	out = append(out, TreeNode{ID: rootID, Depth: 0})

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		edges := adj[top.id]
		if top.next >= len(edges) {
			onPath[top.id] = false
			stack = stack[:len(stack)-1]
			continue
		}
		child := edges[top.next].to
		top.next++

		depth := len(stack) // child sits one below the current frame

		if onPath[child] {
			// Cycle: emit once more, never re-expand.
			out = append(out, TreeNode{ID: child, Depth: depth, ParentID: top.id, Truncated: true})
			continue
		}
		if !showAllPaths && visited[child] {
			continue
		}
		visited[child] = true

		if maxDepth > 0 && depth >= maxDepth && len(adj[child]) > 0 {
			// Depth cap reached: include as a truncated leaf.
			out = append(out, TreeNode{ID: child, Depth: depth, ParentID: top.id, Truncated: true})
			continue
		}

		out = append(out, TreeNode{ID: child, Depth: depth, ParentID: top.id})
		onPath[child] = true
		stack = append(stack, frame{id: child})
	}

	return out
}

// Counts computes dependency and dependent counts for a batch of issue IDs
// in one pass over the edge set: O(|ids| + |edges|). Only constraining edge
// types (blocks, parent-child) are counted.
func (s *Snapshot) Counts(ids []string) map[string]*types.DependencyCounts {
	result := make(map[string]*types.DependencyCounts, len(ids))
	for _, id := range ids {
		result[id] = &types.DependencyCounts{}
	}
	for from, edges := range s.forward {
		c, wanted := result[from]
		if !wanted {
			continue
		}
		for _, e := range edges {
			if e.typ.Constrains() {
				c.DependencyCount++
			}
		}
	}
	for to, edges := range s.reverse {
		c, wanted := result[to]
		if !wanted {
			continue
		}
		for _, e := range edges {
			if e.typ.Constrains() {
				c.DependentCount++
			}
		}
	}
	return result
}

// Roots returns the node IDs that have no incoming constraining edges,
// sorted for stable output. Useful for rendering forests.
func (s *Snapshot) Roots() []string {
	var roots []string
	for _, node := range s.nodes {
		hasIncoming := false
		for _, e := range s.reverse[node] {
			if e.typ.Constrains() {
				hasIncoming = true
				break
			}
		}
		if !hasIncoming {
			roots = append(roots, node)
		}
	}
	sort.Strings(roots)
	return roots
}
