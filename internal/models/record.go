// ABOUTME: HealthRecord canonical row model plus user and device source models.
// ABOUTME: Records are timezone-resolved, append-only, and written once by the importer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Workout boundary suffixes appended to the workout activity type.
// A Workout element becomes two records so both timestamps survive losslessly.
const (
	WorkoutStartSuffix = "/start"
	WorkoutEndSuffix   = "/end"
)

// HealthRecord is a single normalized sample from the export.
// Timestamp always carries a timezone offset; Value is always finite.
type HealthRecord struct {
	ID         uuid.UUID
	UserID     string
	RecordType string
	Source     string
	Timestamp  time.Time
	Value      float64
	Unit       *string
	// DedupKey is a content-derived hash set only when dedup is enabled.
	DedupKey  *string
	CreatedAt time.Time
}

// NewHealthRecord creates a record with a generated UUID and current created-at.
func NewHealthRecord(userID, recordType, source string, ts time.Time, value float64) *HealthRecord {
	return &HealthRecord{
		ID:         uuid.New(),
		UserID:     userID,
		RecordType: recordType,
		Source:     source,
		Timestamp:  ts,
		Value:      value,
		CreatedAt:  time.Now(),
	}
}

// WithUnit sets the unit if non-empty.
func (r *HealthRecord) WithUnit(unit string) *HealthRecord {
	if unit != "" {
		r.Unit = &unit
	}
	return r
}

// User is the owner of a set of health records.
type User struct {
	UserID   string
	Name     string
	Timezone string
}

// DeviceSource registers a known device that contributes records.
// Upserted idempotently, never deleted by the pipeline.
type DeviceSource struct {
	UserID      string
	DeviceName  string
	DeviceType  string
	SourceLabel string
}

// KnownDeviceSources is the fixed registration list applied at the end of a
// migration run.
func KnownDeviceSources(userID string) []DeviceSource {
	return []DeviceSource{
		{UserID: userID, DeviceName: "Apple Watch", DeviceType: "wearable", SourceLabel: "Apple Watch"},
		{UserID: userID, DeviceName: "iPhone", DeviceType: "phone", SourceLabel: "iPhone"},
		{UserID: userID, DeviceName: "Oura", DeviceType: "wearable", SourceLabel: "Oura"},
		{UserID: userID, DeviceName: "Garmin", DeviceType: "wearable", SourceLabel: "Garmin"},
	}
}
