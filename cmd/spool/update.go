package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spoolworks/spool/internal/config"
	"github.com/spoolworks/spool/internal/types"
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of an issue",
	Long: `Update one or more fields. Only flags that are explicitly set are
applied; everything else is left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		updates := make(map[string]interface{})
		stringFields := map[string]string{
			"title":       "title",
			"description": "description",
			"design":      "design",
			"acceptance":  "acceptance_criteria",
			"notes":       "notes",
			"assignee":    "assignee",
			"status":      "status",
			"type":        "issue_type",
		}
		for flag, field := range stringFields {
			if cmd.Flags().Changed(flag) {
				value, _ := cmd.Flags().GetString(flag)
				updates[field] = value
			}
		}
		if cmd.Flags().Changed("priority") {
			priority, _ := cmd.Flags().GetInt("priority")
			updates["priority"] = priority
		}
		if cmd.Flags().Changed("external-ref") {
			ref, _ := cmd.Flags().GetString("external-ref")
			if ref == "" {
				updates["external_ref"] = nil
			} else {
				updates["external_ref"] = ref
			}
		}
		if len(updates) == 0 {
			return fmt.Errorf("nothing to update (set at least one field flag)")
		}

		if value, ok := updates["status"]; ok {
			if !types.Status(value.(string)).IsValid() {
				return fmt.Errorf("invalid status: %s", value)
			}
		}
		if value, ok := updates["issue_type"]; ok {
			if !types.IssueType(value.(string)).IsValid() {
				return fmt.Errorf("invalid issue type: %s", value)
			}
		}

		id := args[0]
		if err := store.UpdateIssue(ctx, id, updates, config.Actor()); err != nil {
			return err
		}

		if jsonMode() {
			issue, err := store.GetIssue(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(issue)
		}
		fmt.Printf("Updated %s\n", id)
		return nil
	},
}

var closeCmd = &cobra.Command{
	Use:   "close <id>...",
	Short: "Close one or more issues",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		reason, _ := cmd.Flags().GetString("reason")
		actor := config.Actor()
		for _, id := range args {
			if err := store.CloseIssue(ctx, id, reason, actor); err != nil {
				return err
			}
			if !jsonMode() {
				fmt.Printf("Closed %s\n", id)
			}
		}
		if jsonMode() {
			issues, err := store.GetIssues(ctx, args)
			if err != nil {
				return err
			}
			return printJSON(issues)
		}
		return nil
	},
}

var reopenCmd = &cobra.Command{
	Use:   "reopen <id>...",
	Short: "Reopen closed issues",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		actor := config.Actor()
		for _, id := range args {
			if err := store.ReopenIssue(ctx, id, actor); err != nil {
				return err
			}
			if !jsonMode() {
				fmt.Printf("Reopened %s\n", id)
			}
		}
		if jsonMode() {
			issues, err := store.GetIssues(ctx, args)
			if err != nil {
				return err
			}
			return printJSON(issues)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete issues and all their attachments",
	Long: `Delete issues permanently, cascading removal of their dependency
edges, labels, comments, and events. The next export drops them from the
journal. Requires --force.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			return fmt.Errorf("deletion is permanent, pass --force to confirm")
		}

		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, id := range args {
			if err := store.DeleteIssue(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", id)
		}
		return nil
	},
}

func init() {
	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().StringP("description", "d", "", "new description")
	updateCmd.Flags().String("design", "", "new design notes")
	updateCmd.Flags().String("acceptance", "", "new acceptance criteria")
	updateCmd.Flags().String("notes", "", "new notes")
	updateCmd.Flags().StringP("assignee", "a", "", "new assignee (empty to unassign)")
	updateCmd.Flags().StringP("status", "s", "", "new status (open|in_progress|blocked|closed)")
	updateCmd.Flags().StringP("type", "t", "", "new issue type")
	updateCmd.Flags().IntP("priority", "p", 0, "new priority 0-4")
	updateCmd.Flags().String("external-ref", "", "new external reference (empty to clear)")
	rootCmd.AddCommand(updateCmd)

	closeCmd.Flags().StringP("reason", "r", "", "close reason")
	rootCmd.AddCommand(closeCmd)

	rootCmd.AddCommand(reopenCmd)

	deleteCmd.Flags().Bool("force", false, "confirm permanent deletion")
	rootCmd.AddCommand(deleteCmd)
}
