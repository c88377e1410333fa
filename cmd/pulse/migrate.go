// ABOUTME: CLI command running the full migration pipeline over an export file.
// ABOUTME: Imports records, computes the four aggregates, and registers device sources.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Adithyav2000/pulsecontext/internal/aggregate"
	"github.com/Adithyav2000/pulsecontext/internal/cache"
	"github.com/Adithyav2000/pulsecontext/internal/export"
	"github.com/Adithyav2000/pulsecontext/internal/migrate"
)

var (
	migrateUser  string
	migrateDedup bool
)

var migrateCmd = &cobra.Command{
	Use:     "migrate <export.xml>",
	Aliases: []string{"import"},
	Short:   "Migrate a health export into the database",
	Long: `Migrate a health export file into the local database and derive all
aggregate tables.

The export is stream-parsed, so files far larger than memory are fine.
Records missing required attributes or failing date/numeric parsing are
skipped with a warning; a malformed document aborts the whole run.

Batches of records (default 1000) commit as individual transactions: a
crash mid-run loses at most the in-flight batch, and committed batches
stay durable. Re-running after a partial failure repairs all aggregate
tables, but duplicates raw records unless --dedup is set.

Examples:
  pulse migrate export.xml
  pulse migrate export.xml --user adithya --dedup`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exportPath := args[0]
		userID := migrateUser
		if userID == "" {
			userID = cfg.DefaultUser
		}

		snapshots, err := cache.Open(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("open snapshot cache: %w", err)
		}
		defer snapshots.Close()

		fmt.Printf("Importing health data from %s\n", exportPath)

		orch := migrate.NewOrchestrator(cfg, store, snapshots, os.Stdout)
		if migrateDedup {
			orch.WithDedup()
		}

		summary, err := orch.Run(userID, exportPath)
		if err != nil {
			var parseErr *export.ParseError
			var stepErr *aggregate.StepError
			switch {
			case errors.As(err, &parseErr):
				color.Red("✗ Export file is unusable: %v", parseErr)
			case errors.As(err, &stepErr):
				color.Red("✗ Aggregation failed at %s; earlier steps are kept, re-run to repair", stepErr.Step)
			default:
				color.Red("✗ Migration failed")
			}
			return err
		}

		color.Green("✓ Migration complete")
		fmt.Printf("  user:            %s\n", summary.UserID)
		fmt.Printf("  records:         %d inserted, %d skipped\n",
			summary.RecordsInserted, summary.RecordsSkipped)
		fmt.Printf("  aggregations:    %d\n", len(summary.Aggregations))
		fmt.Printf("  device sources:  %d\n", summary.DeviceSources)
		fmt.Printf("  took:            %s\n", summary.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateUser, "user", "", "user id (defaults to PULSE_USER)")
	migrateCmd.Flags().BoolVar(&migrateDedup, "dedup", false, "skip records already imported (content-derived keys)")
	rootCmd.AddCommand(migrateCmd)
}
