// ABOUTME: Derived aggregate table persistence: transactional replace plus readers.
// ABOUTME: Each replace runs delete-then-insert for one user inside a single transaction.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Adithyav2000/pulsecontext/internal/models"
)

// ReplaceDailySummaries replaces all daily summaries for a user. The delete
// and the inserts commit together, so a failure cannot leave the table
// emptied for that user.
func (d *DB) ReplaceDailySummaries(userID string, summaries []*models.DailySummary) error {
	return d.replace(userID, "daily_summaries", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO daily_summaries
			(user_id, date, resting_hr_bpm, min_hr_bpm, max_hr_bpm, avg_hr_bpm,
			 avg_hrv_ms, steps, active_minutes, active_energy_cal, stress_score, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, s := range summaries {
			_, err := stmt.Exec(
				s.UserID, s.Date,
				s.RestingHRBPM, s.MinHRBPM, s.MaxHRBPM, s.AvgHRBPM,
				s.AvgHRVMs, s.Steps, s.ActiveMinutes, s.ActiveEnergyCal,
				s.StressScore, s.CreatedAt.Format(time.RFC3339),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceHRBaselines replaces all hour/day-of-week HR baselines for a user.
func (d *DB) ReplaceHRBaselines(userID string, baselines []*models.HRBaseline) error {
	return d.replace(userID, "hr_baselines", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO hr_baselines
			(user_id, hour_of_day, day_of_week, baseline_hr, baseline_std, sample_count, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range baselines {
			_, err := stmt.Exec(
				b.UserID, b.HourOfDay, b.DayOfWeek,
				b.BaselineHR, b.BaselineStd, b.SampleCount,
				b.LastUpdated.Format(time.RFC3339),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceHRVBaseline replaces the single 30-day HRV baseline row for a user.
// A nil baseline legitimately clears the row (no HRV records in the window).
func (d *DB) ReplaceHRVBaseline(userID string, b *models.HRVBaseline) error {
	return d.replace(userID, "hrv_baselines", func(tx *sql.Tx) error {
		if b == nil {
			return nil
		}
		_, err := tx.Exec(`
			INSERT INTO hrv_baselines
			(user_id, period_start, period_end, baseline_hrv_30day_avg,
			 baseline_hrv_std, z_score_threshold, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			b.UserID, b.PeriodStart, b.PeriodEnd, b.BaselineHRV30Day,
			b.BaselineHRVStd, b.ZScoreThreshold, b.LastUpdated.Format(time.RFC3339),
		)
		return err
	})
}

// ReplaceActivityPatterns replaces all activity pattern counts for a user.
func (d *DB) ReplaceActivityPatterns(userID string, patterns []*models.ActivityPattern) error {
	return d.replace(userID, "activity_patterns", func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO activity_patterns
			(user_id, day_of_week, hour_of_day, motion_type, frequency_count, last_updated)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range patterns {
			_, err := stmt.Exec(
				p.UserID, p.DayOfWeek, p.HourOfDay, p.MotionType,
				p.FrequencyCount, p.LastUpdated.Format(time.RFC3339),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// replace deletes a user's rows from table and runs insert inside one
// transaction.
func (d *DB) replace(userID, table string, insert func(tx *sql.Tx) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", table, err)
	}
	if _, err := tx.Exec("DELETE FROM "+table+" WHERE user_id = ?", userID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}

// RegisterDeviceSources idempotently upserts the device source rows.
// Existing (user, device, source) triples are left untouched.
func (d *DB) RegisterDeviceSources(sources []models.DeviceSource) error {
	for _, s := range sources {
		_, err := d.db.Exec(`
			INSERT INTO device_sources (user_id, device_name, device_type, source_label)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, device_name, source_label) DO NOTHING
		`, s.UserID, s.DeviceName, s.DeviceType, s.SourceLabel)
		if err != nil {
			return fmt.Errorf("register device source %s: %w", s.DeviceName, err)
		}
	}
	return nil
}

// ListDailySummaries returns a user's daily summaries, most recent date first.
func (d *DB) ListDailySummaries(userID string) ([]*models.DailySummary, error) {
	rows, err := d.db.Query(`
		SELECT user_id, date, resting_hr_bpm, min_hr_bpm, max_hr_bpm, avg_hr_bpm,
		       avg_hrv_ms, steps, active_minutes, active_energy_cal, stress_score, created_at
		FROM daily_summaries
		WHERE user_id = ?
		ORDER BY date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list daily summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*models.DailySummary
	for rows.Next() {
		var s models.DailySummary
		var createdAt string
		var activeMinutes sql.NullInt64
		err := rows.Scan(
			&s.UserID, &s.Date, &s.RestingHRBPM, &s.MinHRBPM, &s.MaxHRBPM, &s.AvgHRBPM,
			&s.AvgHRVMs, &s.Steps, &activeMinutes, &s.ActiveEnergyCal, &s.StressScore, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily summary: %w", err)
		}
		if activeMinutes.Valid {
			n := int(activeMinutes.Int64)
			s.ActiveMinutes = &n
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

// ListHRBaselines returns a user's HR baselines ordered by day then hour.
func (d *DB) ListHRBaselines(userID string) ([]*models.HRBaseline, error) {
	rows, err := d.db.Query(`
		SELECT user_id, hour_of_day, day_of_week, baseline_hr, baseline_std, sample_count, last_updated
		FROM hr_baselines
		WHERE user_id = ?
		ORDER BY day_of_week, hour_of_day
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list hr baselines: %w", err)
	}
	defer rows.Close()

	var baselines []*models.HRBaseline
	for rows.Next() {
		var b models.HRBaseline
		var lastUpdated string
		err := rows.Scan(
			&b.UserID, &b.HourOfDay, &b.DayOfWeek,
			&b.BaselineHR, &b.BaselineStd, &b.SampleCount, &lastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan hr baseline: %w", err)
		}
		b.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
		baselines = append(baselines, &b)
	}
	return baselines, rows.Err()
}

// GetHRVBaseline returns the user's HRV baseline row, or nil when absent.
func (d *DB) GetHRVBaseline(userID string) (*models.HRVBaseline, error) {
	var b models.HRVBaseline
	var lastUpdated string
	err := d.db.QueryRow(`
		SELECT user_id, period_start, period_end, baseline_hrv_30day_avg,
		       baseline_hrv_std, z_score_threshold, last_updated
		FROM hrv_baselines
		WHERE user_id = ?
	`, userID).Scan(
		&b.UserID, &b.PeriodStart, &b.PeriodEnd, &b.BaselineHRV30Day,
		&b.BaselineHRVStd, &b.ZScoreThreshold, &lastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get hrv baseline: %w", err)
	}
	b.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	return &b, nil
}

// ListActivityPatterns returns a user's activity patterns ordered by day,
// hour, then motion type.
func (d *DB) ListActivityPatterns(userID string) ([]*models.ActivityPattern, error) {
	rows, err := d.db.Query(`
		SELECT user_id, day_of_week, hour_of_day, motion_type, frequency_count, last_updated
		FROM activity_patterns
		WHERE user_id = ?
		ORDER BY day_of_week, hour_of_day, motion_type
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list activity patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*models.ActivityPattern
	for rows.Next() {
		var p models.ActivityPattern
		var lastUpdated string
		err := rows.Scan(
			&p.UserID, &p.DayOfWeek, &p.HourOfDay, &p.MotionType,
			&p.FrequencyCount, &lastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity pattern: %w", err)
		}
		p.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
		patterns = append(patterns, &p)
	}
	return patterns, rows.Err()
}

// CountDeviceSources returns how many device sources a user has registered.
func (d *DB) CountDeviceSources(userID string) (int, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM device_sources WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count device sources: %w", err)
	}
	return n, nil
}
