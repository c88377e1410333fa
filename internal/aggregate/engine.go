// ABOUTME: Aggregation engine deriving the four aggregate tables from raw records.
// ABOUTME: Each computation is idempotent: delete-then-insert per user in one transaction.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/Adithyav2000/pulsecontext/internal/models"
)

// baselineWindow is the trailing window for HR and HRV baselines.
const baselineWindow = 30 * 24 * time.Hour

// Store is the storage contract the engine needs: a streaming read of the
// raw records and transactional replacement of each derived table.
type Store interface {
	ForEachRecord(userID string, fn func(*models.HealthRecord) error) error
	ReplaceDailySummaries(userID string, summaries []*models.DailySummary) error
	ReplaceHRBaselines(userID string, baselines []*models.HRBaseline) error
	ReplaceHRVBaseline(userID string, baseline *models.HRVBaseline) error
	ReplaceActivityPatterns(userID string, patterns []*models.ActivityPattern) error
}

// StepError names the aggregation step that failed. Later steps are not
// attempted; earlier ones stay committed and a re-run repairs the rest.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("aggregation step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Engine recomputes derived tables from the full record history. It never
// mutates raw records.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine creates an engine over the given store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// WithNow pins the computation instant, used by tests to fix the trailing
// 30-day windows.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Run executes the four computations in fixed order. The first failure stops
// the sequence.
func (e *Engine) Run(userID string) error {
	steps := []struct {
		name string
		fn   func(string) error
	}{
		{"daily summaries", e.ComputeDailySummaries},
		{"hr baselines", e.ComputeHRBaselines},
		{"hrv baseline", e.ComputeHRVBaseline},
		{"activity patterns", e.ComputeActivityPatterns},
	}
	for _, step := range steps {
		if err := step.fn(userID); err != nil {
			return &StepError{Step: step.name, Err: err}
		}
	}
	return nil
}

// dayOfWeek normalizes to Monday=0 through Sunday=6, computed from the
// record's own offset-resolved timestamp.
func dayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// dailyAcc accumulates one calendar date's samples.
type dailyAcc struct {
	hr            []float64
	hrv           welford
	steps         float64
	stepCount     int
	energy        float64
	energyCount   int
	activeMinutes map[string]struct{}
}

// ComputeDailySummaries groups the full history by calendar date and derives
// per-date aggregates. A category with no samples on a date yields nil.
func (e *Engine) ComputeDailySummaries(userID string) error {
	days := make(map[string]*dailyAcc)

	err := e.store.ForEachRecord(userID, func(r *models.HealthRecord) error {
		date := r.Timestamp.Format("2006-01-02")
		acc := days[date]
		if acc == nil {
			acc = &dailyAcc{activeMinutes: make(map[string]struct{})}
			days[date] = acc
		}

		switch models.Classify(r.RecordType) {
		case models.CategoryHeartRate:
			acc.hr = append(acc.hr, r.Value)
		case models.CategoryHRV:
			acc.hrv.add(r.Value)
		case models.CategorySteps:
			acc.steps += r.Value
			acc.stepCount++
		case models.CategoryActiveEnergy:
			acc.energy += r.Value
			acc.energyCount++
		}

		// Active-minutes proxy: distinct minutes with an "Active" sample or
		// any sample above 100.
		if models.IsActiveType(r.RecordType) || r.Value > 100 {
			acc.activeMinutes[r.Timestamp.Format("2006-01-02 15:04")] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return err
	}

	dates := make([]string, 0, len(days))
	for date := range days {
		dates = append(dates, date)
	}
	// Descending date keeps the emitted set deterministic.
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	now := e.now()
	summaries := make([]*models.DailySummary, 0, len(dates))
	for _, date := range dates {
		acc := days[date]
		s := &models.DailySummary{UserID: userID, Date: date, CreatedAt: now}

		if len(acc.hr) > 0 {
			resting := percentileCont(acc.hr, 0.25)
			minHR := acc.hr[0] // percentileCont sorted the slice
			maxHR := acc.hr[len(acc.hr)-1]
			avgHR := mean(acc.hr)
			s.RestingHRBPM = &resting
			s.MinHRBPM = &minHR
			s.MaxHRBPM = &maxHR
			s.AvgHRBPM = &avgHR
		}
		if acc.hrv.n > 0 {
			avg := acc.hrv.mean
			s.AvgHRVMs = &avg
		}
		if acc.stepCount > 0 {
			steps := acc.steps
			s.Steps = &steps
		}
		if len(acc.activeMinutes) > 0 {
			minutes := len(acc.activeMinutes)
			s.ActiveMinutes = &minutes
		}
		if acc.energyCount > 0 {
			energy := acc.energy
			s.ActiveEnergyCal = &energy
		}
		summaries = append(summaries, s)
	}

	return e.store.ReplaceDailySummaries(userID, summaries)
}

// ComputeHRBaselines buckets heart-rate samples from the trailing 30 days by
// (hour of day, day of week) and stores mean, sample stddev, and count per
// bucket, rounded to one decimal.
func (e *Engine) ComputeHRBaselines(userID string) error {
	now := e.now()
	cutoff := now.Add(-baselineWindow)

	var buckets [24][7]welford
	err := e.store.ForEachRecord(userID, func(r *models.HealthRecord) error {
		if models.Classify(r.RecordType) != models.CategoryHeartRate {
			return nil
		}
		if r.Timestamp.Before(cutoff) {
			return nil
		}
		buckets[r.Timestamp.Hour()][dayOfWeek(r.Timestamp)].add(r.Value)
		return nil
	})
	if err != nil {
		return err
	}

	var baselines []*models.HRBaseline
	for dow := 0; dow < 7; dow++ {
		for hour := 0; hour < 24; hour++ {
			w := &buckets[hour][dow]
			if w.n == 0 {
				continue
			}
			baselines = append(baselines, &models.HRBaseline{
				UserID:      userID,
				HourOfDay:   hour,
				DayOfWeek:   dow,
				BaselineHR:  round(w.mean, 1),
				BaselineStd: roundPtr(w.stddev(), 1),
				SampleCount: w.n,
				LastUpdated: now,
			})
		}
	}

	return e.store.ReplaceHRBaselines(userID, baselines)
}

// ComputeHRVBaseline derives the single 30-day HRV reference row. With no
// HRV samples in the window the row is cleared, which is a legitimate
// outcome, not an error.
func (e *Engine) ComputeHRVBaseline(userID string) error {
	now := e.now()
	cutoff := now.Add(-baselineWindow)

	var w welford
	err := e.store.ForEachRecord(userID, func(r *models.HealthRecord) error {
		if models.Classify(r.RecordType) != models.CategoryHRV {
			return nil
		}
		if r.Timestamp.Before(cutoff) {
			return nil
		}
		w.add(r.Value)
		return nil
	})
	if err != nil {
		return err
	}

	if w.n == 0 {
		return e.store.ReplaceHRVBaseline(userID, nil)
	}

	return e.store.ReplaceHRVBaseline(userID, &models.HRVBaseline{
		UserID:           userID,
		PeriodStart:      now.AddDate(0, 0, -30).Format("2006-01-02"),
		PeriodEnd:        now.Format("2006-01-02"),
		BaselineHRV30Day: round(w.mean, 2),
		BaselineHRVStd:   roundPtr(w.stddev(), 2),
		ZScoreThreshold:  models.HRVZScoreThreshold,
		LastUpdated:      now,
	})
}

// ComputeActivityPatterns counts step, motion, and walking-speed samples per
// (day of week, hour of day, motion type) bucket over the full history.
func (e *Engine) ComputeActivityPatterns(userID string) error {
	type key struct {
		dow    int
		hour   int
		motion string
	}
	counts := make(map[key]int)

	err := e.store.ForEachRecord(userID, func(r *models.HealthRecord) error {
		cat := models.Classify(r.RecordType)
		if cat != models.CategorySteps && cat != models.CategoryMotion {
			return nil
		}
		k := key{
			dow:    dayOfWeek(r.Timestamp),
			hour:   r.Timestamp.Hour(),
			motion: models.ClassifyMotion(&r.Value),
		}
		counts[k]++
		return nil
	})
	if err != nil {
		return err
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.dow != b.dow {
			return a.dow < b.dow
		}
		if a.hour != b.hour {
			return a.hour < b.hour
		}
		return a.motion < b.motion
	})

	now := e.now()
	patterns := make([]*models.ActivityPattern, 0, len(keys))
	for _, k := range keys {
		patterns = append(patterns, &models.ActivityPattern{
			UserID:         userID,
			DayOfWeek:      k.dow,
			HourOfDay:      k.hour,
			MotionType:     k.motion,
			FrequencyCount: counts[k],
			LastUpdated:    now,
		})
	}

	return e.store.ReplaceActivityPatterns(userID, patterns)
}
