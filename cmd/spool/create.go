package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spoolworks/spool/internal/config"
	"github.com/spoolworks/spool/internal/types"
)

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new issue",
	Long: `Create an issue and print its generated ID.

With --parent the new issue gets a hierarchical child ID (parent.1,
parent.2, ...) and a parent-child edge to the parent, so the parent epic
cannot close until the child does.

Dependencies are given as ID or type:ID, e.g. --depends-on app-3 or
--depends-on related:app-7. Types: blocks, related, parent-child,
discovered-from (default blocks).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		issueType, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetInt("priority")
		description, _ := cmd.Flags().GetString("description")
		design, _ := cmd.Flags().GetString("design")
		acceptance, _ := cmd.Flags().GetString("acceptance")
		notes, _ := cmd.Flags().GetString("notes")
		assignee, _ := cmd.Flags().GetString("assignee")
		labels, _ := cmd.Flags().GetStringSlice("label")
		parent, _ := cmd.Flags().GetString("parent")
		externalRef, _ := cmd.Flags().GetString("external-ref")
		dependsOn, _ := cmd.Flags().GetStringSlice("depends-on")

		var id string
		if parent != "" {
			id, err = store.NextChildID(ctx, parent)
		} else {
			prefix, cfgErr := store.GetConfig(ctx, "issue-prefix")
			if cfgErr != nil {
				return cfgErr
			}
			if prefix == "" {
				prefix = config.GetString("issue-prefix")
			}
			id, err = store.NextID(ctx, prefix)
		}
		if err != nil {
			return err
		}

		issue := &types.Issue{
			ID:                 id,
			Title:              args[0],
			Description:        description,
			Design:             design,
			AcceptanceCriteria: acceptance,
			Notes:              notes,
			Priority:           priority,
			IssueType:          types.IssueType(issueType),
			Assignee:           assignee,
		}
		if externalRef != "" {
			issue.ExternalRef = &externalRef
		}

		actor := config.Actor()
		if err := store.CreateIssue(ctx, issue, actor); err != nil {
			return err
		}

		for _, label := range labels {
			if err := store.AddLabel(ctx, id, label, actor); err != nil {
				return err
			}
		}
		if parent != "" {
			dep := &types.Dependency{IssueID: id, DependsOnID: parent, Type: types.DepParentChild}
			if err := store.AddDependency(ctx, dep, actor); err != nil {
				return err
			}
		}
		for _, spec := range dependsOn {
			dep, err := parseDepSpec(id, spec)
			if err != nil {
				return err
			}
			if err := store.AddDependency(ctx, dep, actor); err != nil {
				return err
			}
		}

		if jsonMode() {
			created, err := store.GetIssue(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(created)
		}
		fmt.Printf("Created %s\n", id)
		return nil
	},
}

// parseDepSpec parses "id" or "type:id" into an edge from issueID.
func parseDepSpec(issueID, spec string) (*types.Dependency, error) {
	depType := types.DepBlocks
	target := spec
	if idx := strings.Index(spec, ":"); idx > 0 {
		depType = types.DependencyType(spec[:idx])
		target = spec[idx+1:]
	}
	if !depType.IsValid() {
		return nil, fmt.Errorf("invalid dependency type in %q", spec)
	}
	if target == "" {
		return nil, fmt.Errorf("missing issue ID in %q", spec)
	}
	return &types.Dependency{IssueID: issueID, DependsOnID: target, Type: depType}, nil
}

func init() {
	createCmd.Flags().StringP("type", "t", "task", "issue type (bug|feature|task|epic|chore)")
	createCmd.Flags().IntP("priority", "p", 2, "priority 0 (urgent) to 4 (someday)")
	createCmd.Flags().StringP("description", "d", "", "issue description")
	createCmd.Flags().String("design", "", "design notes")
	createCmd.Flags().String("acceptance", "", "acceptance criteria")
	createCmd.Flags().String("notes", "", "free-form notes")
	createCmd.Flags().StringP("assignee", "a", "", "assignee")
	createCmd.Flags().StringSliceP("label", "l", nil, "labels to attach (repeatable)")
	createCmd.Flags().String("parent", "", "parent issue ID (creates a hierarchical child)")
	createCmd.Flags().String("external-ref", "", "external reference, e.g. gh-123")
	createCmd.Flags().StringSlice("depends-on", nil, "dependencies as ID or type:ID (repeatable)")
	rootCmd.AddCommand(createCmd)
}
