// ABOUTME: Derived aggregate row models computed from health records.
// ABOUTME: Each table is fully owned and replaced per user by the aggregation engine.
package models

import "time"

// DailySummary is one row per (user, calendar date). Aggregates are nil when
// the date has no matching records for that category — never zero.
type DailySummary struct {
	UserID          string
	Date            string // YYYY-MM-DD
	RestingHRBPM    *float64
	MinHRBPM        *float64
	MaxHRBPM        *float64
	AvgHRBPM        *float64
	AvgHRVMs        *float64
	Steps           *float64
	ActiveMinutes   *int
	ActiveEnergyCal *float64
	StressScore     *float64 // currently unset
	CreatedAt       time.Time
}

// HRBaseline is the mean/stddev of heart-rate samples in one
// (hour-of-day, day-of-week) bucket over the trailing 30 days.
// Day-of-week runs Monday=0 through Sunday=6.
type HRBaseline struct {
	UserID      string
	HourOfDay   int
	DayOfWeek   int
	BaselineHR  float64
	BaselineStd *float64 // nil below two samples
	SampleCount int
	LastUpdated time.Time
}

// HRVBaseline is the single 30-day HRV reference row for a user.
type HRVBaseline struct {
	UserID           string
	PeriodStart      string // YYYY-MM-DD
	PeriodEnd        string // YYYY-MM-DD
	BaselineHRV30Day float64
	BaselineHRVStd   *float64
	ZScoreThreshold  float64
	LastUpdated      time.Time
}

// HRVZScoreThreshold is the anomaly threshold carried as data on each
// HRV baseline row.
const HRVZScoreThreshold = 2.0

// ActivityPattern is a frequency count for one
// (day-of-week, hour-of-day, motion type) bucket.
type ActivityPattern struct {
	UserID         string
	DayOfWeek      int
	HourOfDay      int
	MotionType     string
	FrequencyCount int
	LastUpdated    time.Time
}
