package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spoolworks/spool/internal/config"
	"github.com/spoolworks/spool/internal/storage/sqlite"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a spool workspace in the current directory",
	Long: `Create the .spool directory with a fresh database and config file.

The issue prefix determines generated IDs: a prefix of "app" yields app-1,
app-2, and hierarchical children app-1.1, app-1.2.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir := filepath.Join(cwd, config.Dir)
		if _, err := os.Stat(filepath.Join(dir, "spool.db")); err == nil {
			return fmt.Errorf("workspace already initialized at %s", dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}

		store, err := sqlite.Open(filepath.Join(dir, "spool.db"))
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if err := store.SetConfig(ctx, "issue-prefix", prefix); err != nil {
			return err
		}

		configPath := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := writeConfigTemplate(configPath, prefix); err != nil {
				return err
			}
		}

		fmt.Printf("Initialized spool workspace in %s\n", dir)
		fmt.Printf("Issue prefix: %s\n", prefix)
		return nil
	},
}

// writeConfigTemplate writes a starter config.yaml with the common keys
// spelled out.
func writeConfigTemplate(path, prefix string) error {
	template := map[string]interface{}{
		"issue-prefix": prefix,
		"ready": map[string]interface{}{
			"sort": "hybrid",
		},
		"stale": map[string]interface{}{
			"days": 30,
		},
	}
	data, err := yaml.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to render config template: %w", err)
	}
	header := []byte("# spool workspace configuration.\n# Keys can be overridden with SPOOL_* environment variables or flags.\n")
	if err := os.WriteFile(path, append(header, data...), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func init() {
	initCmd.Flags().String("prefix", "spool", "issue ID prefix")
	rootCmd.AddCommand(initCmd)
}
