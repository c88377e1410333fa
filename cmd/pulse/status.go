// ABOUTME: CLI command showing the latest cached snapshot for a user.
// ABOUTME: Falls back to the database when no cache entry exists yet.
package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Adithyav2000/pulsecontext/internal/cache"
)

var statusUser string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest snapshot for a user",
	Long: `Show the cached snapshot for a user: record count, newest daily summary,
and the 30-day HRV baseline. The snapshot is refreshed at the end of each
migrate or aggregate run; when none exists yet the database is read
directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := statusUser
		if userID == "" {
			userID = cfg.DefaultUser
		}

		snapshot, err := loadSnapshot(userID)
		if err != nil {
			return err
		}

		fmt.Printf("User:     %s\n", snapshot.UserID)
		fmt.Printf("Records:  %d\n", snapshot.RecordCount)
		if !snapshot.GeneratedAt.IsZero() {
			fmt.Printf("As of:    %s\n", snapshot.GeneratedAt.Format(time.RFC3339))
		}

		if s := snapshot.LatestSummary; s != nil {
			fmt.Printf("\nLatest daily summary (%s):\n", s.Date)
			printStat("resting HR", s.RestingHRBPM, "bpm")
			printStat("min HR", s.MinHRBPM, "bpm")
			printStat("max HR", s.MaxHRBPM, "bpm")
			printStat("avg HR", s.AvgHRBPM, "bpm")
			printStat("avg HRV", s.AvgHRVMs, "ms")
			printStat("steps", s.Steps, "")
			printStat("active energy", s.ActiveEnergyCal, "cal")
			if s.ActiveMinutes != nil {
				fmt.Printf("  %-14s %d\n", "active minutes", *s.ActiveMinutes)
			}
		} else {
			color.Yellow("No daily summaries yet - run 'pulse migrate' first")
		}

		if b := snapshot.HRVBaseline; b != nil {
			fmt.Printf("\nHRV baseline (%s to %s):\n", b.PeriodStart, b.PeriodEnd)
			fmt.Printf("  %-14s %.2f ms\n", "30-day avg", b.BaselineHRV30Day)
			if b.BaselineHRVStd != nil {
				fmt.Printf("  %-14s %.2f ms\n", "stddev", *b.BaselineHRVStd)
			}
			fmt.Printf("  %-14s %.1f\n", "z threshold", b.ZScoreThreshold)
		}

		return nil
	},
}

// loadSnapshot prefers the cache and rebuilds a minimal view from the
// database when the cache has nothing for this user.
func loadSnapshot(userID string) (*cache.Snapshot, error) {
	snapshots, err := cache.Open(cfg.CacheDir)
	if err == nil {
		defer snapshots.Close()
		s, err := snapshots.GetSnapshot(userID)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			return nil, err
		}
	}

	count, err := store.CountRecords(userID)
	if err != nil {
		return nil, err
	}
	summaries, err := store.ListDailySummaries(userID)
	if err != nil {
		return nil, err
	}
	hrv, err := store.GetHRVBaseline(userID)
	if err != nil {
		return nil, err
	}

	snapshot := &cache.Snapshot{UserID: userID, RecordCount: count, HRVBaseline: hrv}
	if len(summaries) > 0 {
		snapshot.LatestSummary = summaries[0]
	}
	return snapshot, nil
}

func printStat(label string, value *float64, unit string) {
	if value == nil {
		return
	}
	if unit != "" {
		fmt.Printf("  %-14s %.1f %s\n", label, *value, unit)
	} else {
		fmt.Printf("  %-14s %.1f\n", label, *value)
	}
}

func init() {
	statusCmd.Flags().StringVar(&statusUser, "user", "", "user id (defaults to PULSE_USER)")
	rootCmd.AddCommand(statusCmd)
}
