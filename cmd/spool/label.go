package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spoolworks/spool/internal/config"
	"github.com/spoolworks/spool/internal/types"
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Manage issue labels",
}

var labelAddCmd = &cobra.Command{
	Use:   "add <id> <label>...",
	Short: "Attach labels to an issue",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		actor := config.Actor()
		for _, label := range args[1:] {
			if err := store.AddLabel(ctx, args[0], label, actor); err != nil {
				return err
			}
		}
		fmt.Printf("Labeled %s: %s\n", args[0], strings.Join(args[1:], ", "))
		return nil
	},
}

var labelRemoveCmd = &cobra.Command{
	Use:   "remove <id> <label>...",
	Short: "Detach labels from an issue",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		actor := config.Actor()
		for _, label := range args[1:] {
			if err := store.RemoveLabel(ctx, args[0], label, actor); err != nil {
				return err
			}
		}
		fmt.Printf("Unlabeled %s: %s\n", args[0], strings.Join(args[1:], ", "))
		return nil
	},
}

var labelListCmd = &cobra.Command{
	Use:   "list <id>",
	Short: "List an issue's labels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		labels, err := store.GetLabels(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonMode() {
			if labels == nil {
				labels = []string{}
			}
			return printJSON(labels)
		}
		for _, label := range labels {
			fmt.Println(label)
		}
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <id> [text]",
	Short: "Add or list comments",
	Long: `With text, add a comment to the issue. Without text, list the
issue's comments oldest first.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 2 {
			comment, err := store.AddComment(ctx, args[0], config.Actor(), args[1])
			if err != nil {
				return err
			}
			if jsonMode() {
				return printJSON(comment)
			}
			fmt.Printf("Commented on %s\n", args[0])
			return nil
		}

		comments, err := store.GetComments(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonMode() {
			if comments == nil {
				comments = []*types.Comment{}
			}
			return printJSON(comments)
		}
		if len(comments) == 0 {
			fmt.Println("No comments.")
			return nil
		}
		for _, c := range comments {
			fmt.Printf("[%s] %s: %s\n", c.CreatedAt.Format("2006-01-02 15:04"), c.Author, c.Text)
		}
		return nil
	},
}

func init() {
	labelCmd.AddCommand(labelAddCmd)
	labelCmd.AddCommand(labelRemoveCmd)
	labelCmd.AddCommand(labelListCmd)
	rootCmd.AddCommand(labelCmd)

	rootCmd.AddCommand(commentCmd)
}
