// ABOUTME: Tests for SQLite storage: batch inserts, streaming reads, and derived table replacement.
// ABOUTME: Uses temp-directory databases, one per test.
package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithyav2000/pulsecontext/internal/models"
)

// setupTestDB creates a test database in a temp directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "pulse-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	dbPath := filepath.Join(tmpDir, "pulse.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.EnsureUser(models.User{UserID: "alice", Name: "Alice", Timezone: "America/New_York"}); err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	return db
}

func sampleRecord(ts time.Time, recordType string, value float64) *models.HealthRecord {
	return models.NewHealthRecord("alice", recordType, "Apple Watch", ts, value)
}

func est(y int, mo time.Month, d, h, mi int) time.Time {
	return time.Date(y, mo, d, h, mi, 0, 0, time.FixedZone("EST", -5*3600))
}

func TestEnsureUserIdempotent(t *testing.T) {
	db := setupTestDB(t)

	// Second upsert with a different name must not error or overwrite.
	if err := db.EnsureUser(models.User{UserID: "alice", Name: "Other", Timezone: "UTC"}); err != nil {
		t.Fatalf("second EnsureUser failed: %v", err)
	}
}

func TestInsertRecordBatchAndReadBack(t *testing.T) {
	db := setupTestDB(t)

	batch := []*models.HealthRecord{
		sampleRecord(est(2025, 6, 2, 8, 0), "HKQuantityTypeIdentifierHeartRate", 72),
		sampleRecord(est(2025, 6, 2, 8, 5), "HKQuantityTypeIdentifierHeartRate", 75),
		sampleRecord(est(2025, 6, 2, 9, 0), "HKQuantityTypeIdentifierStepCount", 300),
	}
	inserted, err := db.InsertRecordBatch(batch)
	if err != nil {
		t.Fatalf("InsertRecordBatch failed: %v", err)
	}
	if inserted != 3 {
		t.Errorf("inserted = %d, want 3", inserted)
	}

	var got []*models.HealthRecord
	err = db.ForEachRecord("alice", func(r *models.HealthRecord) error {
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachRecord failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("read back %d records, want 3", len(got))
	}

	// Timestamp order and offset preservation.
	if !got[0].Timestamp.Equal(batch[0].Timestamp) {
		t.Errorf("timestamp roundtrip: got %v, want %v", got[0].Timestamp, batch[0].Timestamp)
	}
	_, offset := got[0].Timestamp.Zone()
	if offset != -5*3600 {
		t.Errorf("offset lost on roundtrip: %d", offset)
	}
	if got[2].RecordType != "HKQuantityTypeIdentifierStepCount" {
		t.Errorf("order: got %q last", got[2].RecordType)
	}
	if got[0].Unit != nil {
		t.Errorf("unit should be nil, got %v", *got[0].Unit)
	}
}

func TestInsertRecordBatchEmpty(t *testing.T) {
	db := setupTestDB(t)
	inserted, err := db.InsertRecordBatch(nil)
	if err != nil {
		t.Fatalf("empty batch failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("inserted = %d, want 0", inserted)
	}
}

func TestInsertRecordBatchDedup(t *testing.T) {
	db := setupTestDB(t)

	key := "abc123"
	a := sampleRecord(est(2025, 6, 2, 8, 0), "HKQuantityTypeIdentifierHeartRate", 72)
	a.DedupKey = &key
	if _, err := db.InsertRecordBatch([]*models.HealthRecord{a}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	b := sampleRecord(est(2025, 6, 2, 8, 0), "HKQuantityTypeIdentifierHeartRate", 72)
	b.DedupKey = &key
	inserted, err := db.InsertRecordBatch([]*models.HealthRecord{b})
	if err != nil {
		t.Fatalf("second insert failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("duplicate dedup key inserted %d rows, want 0", inserted)
	}

	count, err := db.CountRecords("alice")
	if err != nil {
		t.Fatalf("CountRecords failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestReplaceDailySummariesIdempotent(t *testing.T) {
	db := setupTestDB(t)

	hr := 62.0
	mins := 42
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	summaries := []*models.DailySummary{
		{UserID: "alice", Date: "2025-06-02", RestingHRBPM: &hr, ActiveMinutes: &mins, CreatedAt: now},
		{UserID: "alice", Date: "2025-06-01", CreatedAt: now},
	}

	for i := 0; i < 2; i++ {
		if err := db.ReplaceDailySummaries("alice", summaries); err != nil {
			t.Fatalf("ReplaceDailySummaries run %d failed: %v", i, err)
		}
	}

	got, err := db.ListDailySummaries("alice")
	if err != nil {
		t.Fatalf("ListDailySummaries failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d summaries after two replaces, want 2", len(got))
	}
	if got[0].Date != "2025-06-02" {
		t.Errorf("expected descending date order, got %s first", got[0].Date)
	}
	if got[0].RestingHRBPM == nil || *got[0].RestingHRBPM != 62.0 {
		t.Errorf("resting HR roundtrip: %v", got[0].RestingHRBPM)
	}
	if got[0].ActiveMinutes == nil || *got[0].ActiveMinutes != 42 {
		t.Errorf("active minutes roundtrip: %v", got[0].ActiveMinutes)
	}
	// A category with no records stores NULL, not zero.
	if got[1].RestingHRBPM != nil || got[1].Steps != nil || got[1].ActiveMinutes != nil {
		t.Errorf("empty aggregates should be nil: %+v", got[1])
	}
}

func TestReplaceHRBaselines(t *testing.T) {
	db := setupTestDB(t)

	std := 3.1
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	baselines := []*models.HRBaseline{
		{UserID: "alice", HourOfDay: 8, DayOfWeek: 0, BaselineHR: 62.5, BaselineStd: &std, SampleCount: 12, LastUpdated: now},
		{UserID: "alice", HourOfDay: 9, DayOfWeek: 0, BaselineHR: 70.0, SampleCount: 1, LastUpdated: now},
	}
	if err := db.ReplaceHRBaselines("alice", baselines); err != nil {
		t.Fatalf("ReplaceHRBaselines failed: %v", err)
	}

	got, err := db.ListHRBaselines("alice")
	if err != nil {
		t.Fatalf("ListHRBaselines failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d baselines, want 2", len(got))
	}
	if got[0].BaselineStd == nil || *got[0].BaselineStd != 3.1 {
		t.Errorf("stddev roundtrip: %v", got[0].BaselineStd)
	}
	if got[1].BaselineStd != nil {
		t.Errorf("single-sample stddev should stay nil, got %v", *got[1].BaselineStd)
	}
}

func TestReplaceHRVBaseline(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetHRVBaseline("alice")
	if err != nil {
		t.Fatalf("GetHRVBaseline failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no baseline yet, got %+v", got)
	}

	std := 8.25
	b := &models.HRVBaseline{
		UserID: "alice", PeriodStart: "2025-05-11", PeriodEnd: "2025-06-10",
		BaselineHRV30Day: 48.5, BaselineHRVStd: &std,
		ZScoreThreshold: models.HRVZScoreThreshold,
		LastUpdated:     time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	if err := db.ReplaceHRVBaseline("alice", b); err != nil {
		t.Fatalf("ReplaceHRVBaseline failed: %v", err)
	}

	got, err = db.GetHRVBaseline("alice")
	if err != nil {
		t.Fatalf("GetHRVBaseline failed: %v", err)
	}
	if got == nil || got.BaselineHRV30Day != 48.5 || got.ZScoreThreshold != 2.0 {
		t.Fatalf("baseline roundtrip: %+v", got)
	}

	// Replacing with nil clears the row.
	if err := db.ReplaceHRVBaseline("alice", nil); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	got, err = db.GetHRVBaseline("alice")
	if err != nil {
		t.Fatalf("GetHRVBaseline failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected cleared baseline, got %+v", got)
	}
}

func TestRegisterDeviceSourcesIdempotent(t *testing.T) {
	db := setupTestDB(t)

	sources := models.KnownDeviceSources("alice")
	for i := 0; i < 2; i++ {
		if err := db.RegisterDeviceSources(sources); err != nil {
			t.Fatalf("RegisterDeviceSources run %d failed: %v", i, err)
		}
	}

	count, err := db.CountDeviceSources("alice")
	if err != nil {
		t.Fatalf("CountDeviceSources failed: %v", err)
	}
	if count != len(sources) {
		t.Errorf("count = %d, want %d", count, len(sources))
	}
}

func TestReplaceActivityPatterns(t *testing.T) {
	db := setupTestDB(t)

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	patterns := []*models.ActivityPattern{
		{UserID: "alice", DayOfWeek: 0, HourOfDay: 8, MotionType: models.MotionWalking, FrequencyCount: 5, LastUpdated: now},
		{UserID: "alice", DayOfWeek: 0, HourOfDay: 8, MotionType: models.MotionSedentary, FrequencyCount: 2, LastUpdated: now},
	}
	for i := 0; i < 2; i++ {
		if err := db.ReplaceActivityPatterns("alice", patterns); err != nil {
			t.Fatalf("ReplaceActivityPatterns run %d failed: %v", i, err)
		}
	}

	got, err := db.ListActivityPatterns("alice")
	if err != nil {
		t.Fatalf("ListActivityPatterns failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d patterns, want 2", len(got))
	}
	if got[0].MotionType != models.MotionSedentary {
		t.Errorf("expected motion-type ordering, got %q first", got[0].MotionType)
	}
}
