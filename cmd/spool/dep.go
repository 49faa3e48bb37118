package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spoolworks/spool/internal/config"
	"github.com/spoolworks/spool/internal/graph"
	"github.com/spoolworks/spool/internal/types"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependency edges",
}

var depAddCmd = &cobra.Command{
	Use:   "add <id> <depends-on-id>",
	Short: "Add a dependency edge",
	Long: `Record that <id> depends on <depends-on-id>.

Edge types: blocks (default), related, parent-child, discovered-from.
Only blocks gates readiness; blocks and parent-child feed cycle detection
and the dependency tree. Edges
may reference issues that don't exist yet; a dangling endpoint simply
imposes no constraint.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		depType, _ := cmd.Flags().GetString("type")
		dep := &types.Dependency{
			IssueID:     args[0],
			DependsOnID: args[1],
			Type:        types.DependencyType(depType),
		}
		if err := store.AddDependency(ctx, dep, config.Actor()); err != nil {
			return err
		}

		// A new constraining edge can complete a cycle; surface it
		// immediately instead of waiting for someone to run cycles.
		if dep.Type.Constrains() {
			deps, err := store.GetAllDependencyRecords(ctx)
			if err != nil {
				return err
			}
			for _, cycle := range graph.NewSnapshot(deps).DetectCycles() {
				fmt.Printf("Warning: dependency cycle: %s\n", strings.Join(cycle, " -> "))
			}
		}

		fmt.Printf("Added %s -> %s (%s)\n", args[0], args[1], dep.Type)
		return nil
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove <id> <depends-on-id>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.RemoveDependency(ctx, args[0], args[1], config.Actor()); err != nil {
			return err
		}
		fmt.Printf("Removed %s -> %s\n", args[0], args[1])
		return nil
	},
}

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Detect dependency cycles",
	Long: `Find cycles among constraining edges (blocks and parent-child).
Issues in a cycle can never become ready, so cycles are always worth
fixing. Exits non-zero when cycles exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		deps, err := store.GetAllDependencyRecords(ctx)
		if err != nil {
			return err
		}
		cycles := graph.NewSnapshot(deps).DetectCycles()

		if jsonMode() {
			if cycles == nil {
				cycles = [][]string{}
			}
			if err := printJSON(cycles); err != nil {
				return err
			}
		} else if len(cycles) == 0 {
			fmt.Println("No cycles found.")
		} else {
			for _, cycle := range cycles {
				fmt.Printf("%s -> %s\n", strings.Join(cycle, " -> "), cycle[0])
			}
		}
		if len(cycles) > 0 {
			return fmt.Errorf("%d dependency cycle(s) found", len(cycles))
		}
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree <id>",
	Short: "Show the dependency tree of an issue",
	Long: `Walk the dependency tree rooted at <id> in pre-order.

By default each issue appears at most once and the walk follows "what
this depends on". --reverse follows "what depends on this" instead.
--all-paths shows every distinct path. Nodes cut off by --depth or by a
cycle are marked with an ellipsis.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		maxDepth, _ := cmd.Flags().GetInt("depth")
		allPaths, _ := cmd.Flags().GetBool("all-paths")
		reverse, _ := cmd.Flags().GetBool("reverse")

		deps, err := store.GetAllDependencyRecords(ctx)
		if err != nil {
			return err
		}
		nodes := graph.NewSnapshot(deps).Tree(args[0], maxDepth, allPaths, reverse)

		ids := make([]string, 0, len(nodes))
		for _, node := range nodes {
			ids = append(ids, node.ID)
		}
		issues, err := store.GetIssues(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[string]*types.Issue, len(issues))
		for _, issue := range issues {
			byID[issue.ID] = issue
		}

		if jsonMode() {
			out := make([]*types.TreeNode, 0, len(nodes))
			for _, node := range nodes {
				tn := &types.TreeNode{Depth: node.Depth, ParentID: node.ParentID, Truncated: node.Truncated}
				if issue, ok := byID[node.ID]; ok {
					tn.Issue = *issue
				} else {
					tn.Issue = types.Issue{ID: node.ID}
				}
				out = append(out, tn)
			}
			return printJSON(out)
		}

		for _, node := range nodes {
			prefix := strings.Repeat("  ", node.Depth)
			suffix := ""
			if node.Truncated {
				suffix = " ..."
			}
			if issue, ok := byID[node.ID]; ok {
				fmt.Printf("%s%s %s [P%d] %s%s\n", prefix, statusGlyph(issue.Status), issue.ID, issue.Priority, issue.Title, suffix)
			} else {
				fmt.Printf("%s? %s (missing)%s\n", prefix, node.ID, suffix)
			}
		}
		return nil
	},
}

func init() {
	depAddCmd.Flags().StringP("type", "t", string(types.DepBlocks), "edge type")
	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRemoveCmd)
	rootCmd.AddCommand(depCmd)

	rootCmd.AddCommand(cyclesCmd)

	treeCmd.Flags().Int("depth", 0, "maximum depth (0 = unlimited)")
	treeCmd.Flags().Bool("all-paths", false, "show every path instead of each issue once")
	treeCmd.Flags().Bool("reverse", false, "walk dependents instead of dependencies")
	rootCmd.AddCommand(treeCmd)
}
