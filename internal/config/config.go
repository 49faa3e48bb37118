// Package config wraps the viper configuration singleton.
//
// Precedence, highest first: command-line flags (handled by the CLI),
// SPOOL_* environment variables, .spool/config.yaml, built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Dir is the workspace directory holding the database, journal, and config.
const Dir = ".spool"

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Walk up from CWD to find the workspace config so commands work from
	// subdirectories.
	configFileSet := false
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, Dir, "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// Environment variables take precedence over the config file.
	// E.g. SPOOL_DB, SPOOL_ACTOR, SPOOL_JSON, SPOOL_NO_AUTO_IMPORT.
	v.SetEnvPrefix("SPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", "")
	v.SetDefault("journal", "")
	v.SetDefault("actor", "")
	v.SetDefault("json", false)
	v.SetDefault("issue-prefix", "spool")
	v.SetDefault("no-auto-import", false)
	v.SetDefault("watch-debounce", "500ms")
	v.SetDefault("ready.sort", "hybrid")
	v.SetDefault("stale.days", 30)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max-size-mb", 10)
	v.SetDefault("log.max-backups", 3)
	v.SetDefault("log.max-age-days", 28)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// ResetForTesting clears the config state so Initialize can run again.
// Not thread-safe; only call from single-threaded test contexts.
func ResetForTesting() {
	v = nil
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value, overriding all other sources.
// The CLI uses this to push explicitly-set flags into the config layer.
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// ConfigFileUsed returns the path of the loaded config file, or "".
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// WorkspaceRoot walks up from CWD looking for the workspace directory.
// Returns "" when no workspace is found.
func WorkspaceRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, Dir)); err == nil {
			return dir
		}
		if dir == filepath.Dir(dir) {
			return ""
		}
	}
}

// DBPath resolves the database path: the db config key if set, otherwise
// <workspace>/.spool/spool.db.
func DBPath() string {
	if path := GetString("db"); path != "" {
		return path
	}
	root := WorkspaceRoot()
	if root == "" {
		return ""
	}
	return filepath.Join(root, Dir, "spool.db")
}

// JournalPath resolves the journal path: the journal config key if set,
// otherwise <workspace>/.spool/issues.jsonl.
func JournalPath() string {
	if path := GetString("journal"); path != "" {
		return path
	}
	root := WorkspaceRoot()
	if root == "" {
		return ""
	}
	return filepath.Join(root, Dir, "issues.jsonl")
}

// Actor resolves the audit actor: the actor config key if set, then
// the OS username, then "unknown".
func Actor() string {
	if actor := GetString("actor"); actor != "" {
		return actor
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return "unknown"
}
