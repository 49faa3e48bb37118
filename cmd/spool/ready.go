package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spoolworks/spool/internal/config"
	"github.com/spoolworks/spool/internal/types"
	"github.com/spoolworks/spool/internal/work"
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List issues that are ready to work on",
	Long: `An issue is ready when it is open and none of its blocking
dependencies point at a non-closed issue. Parent-child edges don't gate
readiness: children of an open epic are workable.

Sort policies:
  hybrid    issues from the last 48h by priority, then older issues by age
  priority  priority first, then creation date
  oldest    creation date only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		var filter types.WorkFilter
		if cmd.Flags().Changed("priority") {
			priority, _ := cmd.Flags().GetInt("priority")
			filter.Priority = &priority
		}
		if value, _ := cmd.Flags().GetString("assignee"); value != "" {
			filter.Assignee = &value
		}
		filter.Unassigned, _ = cmd.Flags().GetBool("unassigned")
		filter.Labels, _ = cmd.Flags().GetStringSlice("label")
		filter.LabelsAny, _ = cmd.Flags().GetStringSlice("label-any")
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		sortPolicy, _ := cmd.Flags().GetString("sort")
		if sortPolicy == "" {
			sortPolicy = config.GetString("ready.sort")
		}
		filter.SortPolicy = types.SortPolicy(sortPolicy)

		issues, err := work.New(store).Ready(ctx, filter)
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
			fmt.Println("No ready issues.")
			return nil
		}
		for _, issue := range issues {
			printIssueLine(issue)
		}
		if isTTY() {
			fmt.Printf("\n%d ready issue(s). Use 'spool show <id>' for details.\n", len(issues))
		}
		return nil
	},
}

var blockedCmd = &cobra.Command{
	Use:   "blocked",
	Short: "List issues waiting on other issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		blocked, err := work.New(store).Blocked(ctx)
		if err != nil {
			return err
		}

		if jsonMode() {
			if blocked == nil {
				blocked = []*types.BlockedIssue{}
			}
			return printJSON(blocked)
		}
		if len(blocked) == 0 {
			fmt.Println("No blocked issues.")
			return nil
		}
		for _, issue := range blocked {
			printIssueLine(&issue.Issue)
			fmt.Printf("    blocked by: %s\n", strings.Join(issue.BlockedBy, ", "))
		}
		return nil
	},
}

var staleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List issues that haven't been touched in a while",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		days, _ := cmd.Flags().GetInt("days")
		if !cmd.Flags().Changed("days") {
			if configured := config.GetInt("stale.days"); configured > 0 {
				days = configured
			}
		}
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		stale, err := work.New(store).Stale(ctx, types.StaleFilter{Days: days, Status: status, Limit: limit})
		if err != nil {
			return err
		}

		if jsonMode() {
			if stale == nil {
				stale = []*types.Issue{}
			}
			return printJSON(stale)
		}
		if len(stale) == 0 {
			fmt.Printf("No issues stale for %d+ days.\n", days)
			return nil
		}
		for _, issue := range stale {
			fmt.Printf("%s %-14s [P%d] %s (updated %s)\n",
				statusGlyph(issue.Status), issue.ID, issue.Priority, issue.Title,
				issue.UpdatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var epicCmd = &cobra.Command{
	Use:   "epic",
	Short: "Show open epics and their child completion",
	Long: `List open epics with child progress. An epic is eligible for
closure when it has at least one child and every child is closed.
--eligible shows only those.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		eligibleOnly, _ := cmd.Flags().GetBool("eligible")
		epics, err := work.New(store).EligibleEpics(ctx)
		if err != nil {
			return err
		}
		if eligibleOnly {
			var filtered []*types.EpicStatus
			for _, epic := range epics {
				if epic.EligibleForClose {
					filtered = append(filtered, epic)
				}
			}
			epics = filtered
		}

		if jsonMode() {
			if epics == nil {
				epics = []*types.EpicStatus{}
			}
			return printJSON(epics)
		}
		if len(epics) == 0 {
			fmt.Println("No open epics.")
			return nil
		}
		for _, epic := range epics {
			marker := " "
			if epic.EligibleForClose {
				marker = "✓"
			}
			fmt.Printf("%s %-14s %s (%d/%d children closed)\n",
				marker, epic.Epic.ID, epic.Epic.Title, epic.ClosedChildren, epic.TotalChildren)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate project statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := work.New(store).Statistics(ctx)
		if err != nil {
			return err
		}

		if jsonMode() {
			return printJSON(stats)
		}
		fmt.Printf("Total issues:      %d\n", stats.TotalIssues)
		fmt.Printf("Open:              %d\n", stats.OpenIssues)
		fmt.Printf("In progress:       %d\n", stats.InProgressIssues)
		fmt.Printf("Closed:            %d\n", stats.ClosedIssues)
		fmt.Printf("Ready:             %d\n", stats.ReadyIssues)
		fmt.Printf("Blocked:           %d\n", stats.BlockedIssues)
		fmt.Printf("Epics closeable:   %d\n", stats.EpicsEligibleForClosure)
		if stats.ClosedIssues > 0 {
			fmt.Printf("Avg lead time:     %.1f hours\n", stats.AverageLeadTime)
		}
		return nil
	},
}

func init() {
	readyCmd.Flags().IntP("priority", "p", 0, "filter by exact priority")
	readyCmd.Flags().StringP("assignee", "a", "", "filter by assignee")
	readyCmd.Flags().Bool("unassigned", false, "only unassigned issues")
	readyCmd.Flags().StringSliceP("label", "l", nil, "require ALL of these labels")
	readyCmd.Flags().StringSlice("label-any", nil, "require AT LEAST ONE of these labels")
	readyCmd.Flags().IntP("limit", "n", 0, "maximum issues to show (0 = all)")
	readyCmd.Flags().String("sort", "", "sort policy (hybrid|priority|oldest)")
	rootCmd.AddCommand(readyCmd)

	rootCmd.AddCommand(blockedCmd)

	staleCmd.Flags().Int("days", 30, "staleness threshold in days")
	staleCmd.Flags().StringP("status", "s", "", "filter by status (open|in_progress|blocked)")
	staleCmd.Flags().IntP("limit", "n", 0, "maximum issues to show (0 = all)")
	rootCmd.AddCommand(staleCmd)

	epicCmd.Flags().Bool("eligible", false, "only epics eligible for closure")
	rootCmd.AddCommand(epicCmd)

	rootCmd.AddCommand(statsCmd)
}
