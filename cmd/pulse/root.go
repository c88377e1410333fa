// ABOUTME: Root Cobra command for pulse CLI.
// ABOUTME: Loads env config and manages the storage connection lifecycle.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithyav2000/pulsecontext/internal/config"
	"github.com/Adithyav2000/pulsecontext/internal/storage"
)

var (
	cfg    *config.Config
	store  *storage.DB
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Health export migration and aggregation pipeline",
	Long: `Pulse migrates a health export file into a local SQLite database and
derives rolling statistical aggregates from it.

PIPELINE:

  export.xml -> stream parse -> normalize -> batch insert -> aggregate

  The aggregation pass derives four tables per user: daily summaries,
  hourly/day-of-week heart-rate baselines, a 30-day HRV baseline, and
  activity pattern histograms. Every aggregation is idempotent: re-running
  it fully replaces the previous output for that user.

QUICK START:

  $ pulse migrate export.xml            # Full pipeline for the default user
  $ pulse migrate export.xml --user bob # ...for a specific user
  $ pulse aggregate                     # Recompute derived tables only
  $ pulse status                        # Latest cached snapshot

CONFIGURATION (environment):

  PULSE_DB_PATH        SQLite database path (default: XDG data dir)
  PULSE_CACHE_DIR      snapshot cache directory
  PULSE_USER           default user id
  PULSE_USER_TIMEZONE  timezone seeded on the user row
  PULSE_BATCH_SIZE     import flush threshold (default 1000)

DATA STORAGE:

  Records and aggregates live in SQLite at ~/.local/share/pulse/pulse.db.
  Raw records are append-only; re-importing the same file without --dedup
  will duplicate them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if dbPath != "" {
			cfg.DBPath = config.ExpandPath(dbPath)
		}

		store, err = storage.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			return store.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides PULSE_DB_PATH)")
}
