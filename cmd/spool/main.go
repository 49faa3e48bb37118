// Command spool is a dependency-aware issue tracker for coding agents.
//
// Issues live in a local SQLite database (.spool/spool.db) for fast queries
// and sync to a JSONL journal (.spool/issues.jsonl) that travels through
// git. Typed dependency edges drive ready/blocked classification so agents
// can ask "what can I work on right now" and trust the answer.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spoolworks/spool/internal/config"
	"github.com/spoolworks/spool/internal/journal"
	"github.com/spoolworks/spool/internal/logx"
	"github.com/spoolworks/spool/internal/storage/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "spool",
	Short: "Dependency-aware issue tracking for coding agents",
	Long: `spool tracks issues with typed dependency edges and classifies work
into ready, blocked, and stale sets.

State lives in a local SQLite database for fast queries and syncs to a
JSONL journal that travels through git. Run 'spool init' in a repository
to get started.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		// Explicit flags override env vars and config.yaml.
		for _, key := range []string{"db", "actor", "json", "no-auto-import"} {
			if cmd.Flags().Changed(key) {
				switch key {
				case "json", "no-auto-import":
					value, _ := cmd.Flags().GetBool(key)
					config.Set(key, value)
				default:
					value, _ := cmd.Flags().GetString(key)
					config.Set(key, value)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "database path (default <workspace>/.spool/spool.db)")
	rootCmd.PersistentFlags().String("actor", "", "actor recorded in the audit trail (default $USER)")
	rootCmd.PersistentFlags().Bool("json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().Bool("no-auto-import", false, "skip automatic journal import on open")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the workspace database, auto-importing the journal first
// when it changed behind the store's back (a git pull, typically).
func openStore(ctx context.Context) (*sqlite.Store, error) {
	dbPath := config.DBPath()
	if dbPath == "" {
		return nil, errors.New("no workspace found (run 'spool init' first, or pass --db)")
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}

	if !config.GetBool("no-auto-import") {
		if err := autoImport(ctx, store); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}

// autoImport imports the journal when its content no longer matches the
// hash recorded at the last sync. Conflicts are reported but don't stop the
// command: the local versions stay in place.
func autoImport(ctx context.Context, store *sqlite.Store) error {
	path := config.JournalPath()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	engine := journal.New(store)
	stale, err := engine.Stale(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to check journal staleness: %w", err)
	}
	if !stale {
		return nil
	}

	logger := logx.New(logx.Options{
		File:       config.GetString("log.file"),
		MaxSizeMB:  config.GetInt("log.max-size-mb"),
		MaxBackups: config.GetInt("log.max-backups"),
		MaxAgeDays: config.GetInt("log.max-age-days"),
	})
	result, err := engine.Import(ctx, path)
	if err != nil {
		return fmt.Errorf("auto-import failed: %w", err)
	}
	logger.Printf("auto-imported %s: %d created, %d updated, %d conflicts",
		path, result.Created, result.Updated, len(result.Conflicts))
	for _, conflict := range result.Conflicts {
		fmt.Fprintf(os.Stderr, "Warning: conflict on %s, local version kept\n", conflict.ID)
	}
	return nil
}
