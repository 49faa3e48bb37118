package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/spoolworks/spool/internal/config"
	"github.com/spoolworks/spool/internal/types"
)

// jsonMode reports whether output should be machine-readable.
func jsonMode() bool {
	return config.GetBool("json")
}

// isTTY reports whether stdout is an interactive terminal. Hints and
// decorations are suppressed when output is piped.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// statusGlyph maps a status to its one-character list marker.
func statusGlyph(status types.Status) string {
	switch status {
	case types.StatusOpen:
		return "○"
	case types.StatusInProgress:
		return "◐"
	case types.StatusBlocked:
		return "◑"
	case types.StatusClosed:
		return "●"
	default:
		return "?"
	}
}

// printIssueLine writes the one-line list representation of an issue.
func printIssueLine(issue *types.Issue) {
	assignee := ""
	if issue.Assignee != "" {
		assignee = "  @" + issue.Assignee
	}
	fmt.Printf("%s %-14s [P%d] [%s] %s%s\n",
		statusGlyph(issue.Status), issue.ID, issue.Priority, issue.IssueType, issue.Title, assignee)
}

// printIssueDetail writes the full multi-line representation of an issue.
func printIssueDetail(issue *types.Issue, labels []string, deps, dependents []*types.Dependency, comments []*types.Comment) {
	fmt.Printf("%s %s\n", issue.ID, issue.Title)
	fmt.Printf("Status:   %s\n", issue.Status)
	fmt.Printf("Priority: P%d\n", issue.Priority)
	fmt.Printf("Type:     %s\n", issue.IssueType)
	if issue.Assignee != "" {
		fmt.Printf("Assignee: %s\n", issue.Assignee)
	}
	if issue.ExternalRef != nil {
		fmt.Printf("External: %s\n", *issue.ExternalRef)
	}
	if len(labels) > 0 {
		fmt.Printf("Labels:   %s\n", strings.Join(labels, ", "))
	}
	fmt.Printf("Created:  %s\n", issue.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:  %s\n", issue.UpdatedAt.Format("2006-01-02 15:04:05"))
	if issue.ClosedAt != nil {
		fmt.Printf("Closed:   %s", issue.ClosedAt.Format("2006-01-02 15:04:05"))
		if issue.CloseReason != "" {
			fmt.Printf(" (%s)", issue.CloseReason)
		}
		fmt.Println()
	}

	if issue.Description != "" {
		fmt.Printf("\nDescription:\n%s\n", indent(issue.Description))
	}
	if issue.Design != "" {
		fmt.Printf("\nDesign:\n%s\n", indent(issue.Design))
	}
	if issue.AcceptanceCriteria != "" {
		fmt.Printf("\nAcceptance criteria:\n%s\n", indent(issue.AcceptanceCriteria))
	}
	if issue.Notes != "" {
		fmt.Printf("\nNotes:\n%s\n", indent(issue.Notes))
	}

	if len(deps) > 0 {
		fmt.Printf("\nDepends on:\n")
		for _, dep := range deps {
			fmt.Printf("  %s (%s)\n", dep.DependsOnID, dep.Type)
		}
	}
	if len(dependents) > 0 {
		fmt.Printf("\nDepended on by:\n")
		for _, dep := range dependents {
			fmt.Printf("  %s (%s)\n", dep.IssueID, dep.Type)
		}
	}
	if len(comments) > 0 {
		fmt.Printf("\nComments:\n")
		for _, c := range comments {
			fmt.Printf("  [%s] %s: %s\n", c.CreatedAt.Format("2006-01-02 15:04"), c.Author, c.Text)
		}
	}
}

func indent(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
