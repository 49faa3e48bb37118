package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spoolworks/spool/internal/graph"
	"github.com/spoolworks/spool/internal/storage"
	"github.com/spoolworks/spool/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		var filter types.IssueFilter
		if value, _ := cmd.Flags().GetString("status"); value != "" {
			status := types.Status(value)
			if !status.IsValid() {
				return fmt.Errorf("invalid status: %s", value)
			}
			filter.Status = &status
		}
		if cmd.Flags().Changed("priority") {
			priority, _ := cmd.Flags().GetInt("priority")
			filter.Priority = &priority
		}
		if value, _ := cmd.Flags().GetString("type"); value != "" {
			issueType := types.IssueType(value)
			if !issueType.IsValid() {
				return fmt.Errorf("invalid issue type: %s", value)
			}
			filter.IssueType = &issueType
		}
		if value, _ := cmd.Flags().GetString("assignee"); value != "" {
			filter.Assignee = &value
		}
		filter.Labels, _ = cmd.Flags().GetStringSlice("label")
		filter.LabelsAny, _ = cmd.Flags().GetStringSlice("label-any")
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		issues, err := store.SearchIssues(ctx, filter)
		if err != nil {
			return err
		}

		if jsonMode() {
			if issues == nil {
				issues = []*types.Issue{}
			}
			return printJSON(issues)
		}
		if len(issues) == 0 {
			fmt.Println("No issues found.")
			return nil
		}
		for _, issue := range issues {
			printIssueLine(issue)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one issue in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		id := args[0]
		issue, err := store.GetIssue(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("issue %s not found", id)
			}
			return err
		}

		labels, err := store.GetLabels(ctx, id)
		if err != nil {
			return err
		}
		deps, err := store.GetDependencyRecords(ctx, id)
		if err != nil {
			return err
		}
		dependents, err := store.GetDependentRecords(ctx, id)
		if err != nil {
			return err
		}
		comments, err := store.GetComments(ctx, id)
		if err != nil {
			return err
		}

		if jsonMode() {
			out := *issue
			out.Labels = labels
			out.Dependencies = deps
			out.Comments = comments
			return printJSON(&out)
		}
		printIssueDetail(issue, labels, deps, dependents, comments)

		allDeps, err := store.GetAllDependencyRecords(ctx)
		if err != nil {
			return err
		}
		counts := graph.NewSnapshot(allDeps).Counts([]string{id})[id]
		fmt.Printf("\nDependencies: %d  Dependents: %d\n", counts.DependencyCount, counts.DependentCount)
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events <id>",
	Short: "Show an issue's audit trail, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		events, err := store.GetEvents(ctx, args[0], limit)
		if err != nil {
			return err
		}

		if jsonMode() {
			if events == nil {
				events = []*types.Event{}
			}
			return printJSON(events)
		}
		if len(events) == 0 {
			fmt.Println("No events.")
			return nil
		}
		for _, e := range events {
			detail := ""
			switch {
			case e.OldValue != nil && e.NewValue != nil:
				detail = fmt.Sprintf(" %s -> %s", *e.OldValue, *e.NewValue)
			case e.NewValue != nil:
				detail = " " + *e.NewValue
			case e.OldValue != nil:
				detail = " " + *e.OldValue
			}
			fmt.Printf("[%s] %s by %s%s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.EventType, e.Actor, detail)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("status", "s", "", "filter by status (open|in_progress|blocked|closed)")
	listCmd.Flags().IntP("priority", "p", 0, "filter by exact priority")
	listCmd.Flags().StringP("type", "t", "", "filter by issue type")
	listCmd.Flags().StringP("assignee", "a", "", "filter by assignee")
	listCmd.Flags().StringSliceP("label", "l", nil, "require ALL of these labels")
	listCmd.Flags().StringSlice("label-any", nil, "require AT LEAST ONE of these labels")
	listCmd.Flags().IntP("limit", "n", 0, "maximum issues to show (0 = all)")
	rootCmd.AddCommand(listCmd)

	rootCmd.AddCommand(showCmd)

	eventsCmd.Flags().IntP("limit", "n", 20, "maximum events to show (0 = all)")
	rootCmd.AddCommand(eventsCmd)
}
