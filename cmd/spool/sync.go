package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spoolworks/spool/internal/config"
	"github.com/spoolworks/spool/internal/journal"
	"github.com/spoolworks/spool/internal/logx"
	"github.com/spoolworks/spool/internal/watch"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export changed issues to the JSONL journal",
	Long: `Write issues changed since the last export into the journal file.

The export refuses to run when the journal changed externally (a git pull,
a hand edit) since the last sync; import it first. --full rewrites every
record and drops deleted issues regardless of the dirty set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		path, _ := cmd.Flags().GetString("output")
		if path == "" {
			path = config.JournalPath()
		}
		if path == "" {
			return fmt.Errorf("no journal path (run in a workspace or pass --output)")
		}

		full, _ := cmd.Flags().GetBool("full")
		if full {
			if err := store.ClearAllExportHashes(ctx); err != nil {
				return err
			}
		}

		result, err := journal.New(store).Export(ctx, path, full)
		if err != nil {
			return err
		}

		if jsonMode() {
			return printJSON(result)
		}
		fmt.Printf("Exported %d, skipped %d, deleted %d -> %s\n",
			result.Exported, result.Skipped, result.Deleted, result.Path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import issues from the JSONL journal",
	Long: `Apply the journal to the database.

Each record is compared three ways: the incoming content, the local
content, and the content recorded at the last sync. Local-only changes
win, journal-only changes apply, and both-changed records are reported as
conflicts with the local version kept. Exits non-zero when conflicts
exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		path, _ := cmd.Flags().GetString("input")
		if path == "" {
			path = config.JournalPath()
		}
		if path == "" {
			return fmt.Errorf("no journal path (run in a workspace or pass --input)")
		}

		result, err := journal.New(store).Import(ctx, path)
		if err != nil {
			return err
		}

		if jsonMode() {
			if err := printJSON(result); err != nil {
				return err
			}
		} else {
			fmt.Printf("Imported: %d created, %d updated, %d unchanged\n",
				result.Created, result.Updated, result.Unchanged)
			for _, conflict := range result.Conflicts {
				fmt.Printf("Conflict: %s (local %.8s, incoming %.8s, base %.8s) local kept\n",
					conflict.ID, conflict.LocalHash, conflict.IncomingHash, conflict.BaseHash)
			}
		}
		if len(result.Conflicts) > 0 {
			return fmt.Errorf("%d conflict(s), resolve and re-import", len(result.Conflicts))
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the journal and auto-import changes",
	Long: `Run in the foreground, importing the journal whenever it changes.
Useful alongside an agent that pulls from git while you work. Press
Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		path := config.JournalPath()
		if path == "" {
			return fmt.Errorf("no journal path (run in a workspace)")
		}

		logger := logx.New(logx.Options{
			File:       config.GetString("log.file"),
			MaxSizeMB:  config.GetInt("log.max-size-mb"),
			MaxBackups: config.GetInt("log.max-backups"),
			MaxAgeDays: config.GetInt("log.max-age-days"),
			Verbose:    true,
		})
		engine := journal.New(store)

		onChange := func() {
			stale, err := engine.Stale(ctx, path)
			if err != nil {
				logger.Printf("staleness check failed: %v", err)
				return
			}
			if !stale {
				return
			}
			result, err := engine.Import(ctx, path)
			if err != nil {
				logger.Printf("import failed: %v", err)
				return
			}
			logger.Printf("imported %s: %d created, %d updated, %d conflicts",
				path, result.Created, result.Updated, len(result.Conflicts))
		}

		watcher, err := watch.New(path, config.GetDuration("watch-debounce"), onChange, logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()

		fmt.Printf("Watching %s (Ctrl+C to stop)\n", path)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
		case <-ctx.Done():
		}
		fmt.Println("\nStopping.")
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "journal path (default <workspace>/.spool/issues.jsonl)")
	exportCmd.Flags().Bool("full", false, "rewrite every record, not just dirty ones")
	rootCmd.AddCommand(exportCmd)

	importCmd.Flags().StringP("input", "i", "", "journal path (default <workspace>/.spool/issues.jsonl)")
	rootCmd.AddCommand(importCmd)

	rootCmd.AddCommand(watchCmd)
}
