// ABOUTME: CLI command recomputing the derived aggregate tables only.
// ABOUTME: Safe to re-run: each table is fully replaced per user.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Adithyav2000/pulsecontext/internal/aggregate"
	"github.com/Adithyav2000/pulsecontext/internal/cache"
	"github.com/Adithyav2000/pulsecontext/internal/migrate"
)

var aggregateUser string

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Recompute derived aggregate tables",
	Long: `Recompute daily summaries, HR baselines, the HRV baseline, and activity
patterns from the stored raw records.

Each computation deletes the user's previous rows and inserts the fresh
set inside one transaction, so running this any number of times yields
identical results on unchanged data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := aggregateUser
		if userID == "" {
			userID = cfg.DefaultUser
		}

		snapshots, err := cache.Open(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("open snapshot cache: %w", err)
		}
		defer snapshots.Close()

		orch := migrate.NewOrchestrator(cfg, store, snapshots, os.Stdout)
		if err := orch.Aggregate(userID); err != nil {
			var stepErr *aggregate.StepError
			if errors.As(err, &stepErr) {
				color.Red("✗ Aggregation failed at %s; earlier steps are kept, re-run to repair", stepErr.Step)
			}
			return err
		}

		color.Green("✓ Aggregates recomputed for %s", userID)
		return nil
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateUser, "user", "", "user id (defaults to PULSE_USER)")
	rootCmd.AddCommand(aggregateCmd)
}
