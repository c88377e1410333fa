// ABOUTME: Record classification from the source type vocabulary into closed categories.
// ABOUTME: Substring matching tolerates vocabulary variants across export versions.
package models

import "strings"

// Category is the semantic bucket a record type falls into for aggregation.
type Category string

const (
	CategoryHeartRate    Category = "heart_rate"
	CategoryHRV          Category = "hrv"
	CategorySteps        Category = "steps"
	CategoryActiveEnergy Category = "active_energy"
	CategoryMotion       Category = "motion"
	CategoryUnknown      Category = "unknown"
)

// Motion type labels derived from value thresholds. These are a coarse
// heuristic over sample magnitudes, not ground-truth motion labels.
const (
	MotionUnknown      = "unknown"
	MotionHighActivity = "high_activity"
	MotionWalking      = "walking"
	MotionSedentary    = "sedentary"
)

// Classify maps a raw record type string to exactly one category.
// HRV patterns are checked before heart rate: a type like
// "HKQuantityTypeIdentifierHeartRateVariabilitySDNN" contains "HeartRate"
// and must land in the HRV bucket, not the heart-rate one.
func Classify(recordType string) Category {
	switch {
	case strings.Contains(recordType, "HRV"),
		strings.Contains(recordType, "HeartRateVariability"):
		return CategoryHRV
	case strings.Contains(recordType, "HeartRate"):
		return CategoryHeartRate
	case strings.Contains(recordType, "StepCount"):
		return CategorySteps
	case strings.Contains(recordType, "ActiveEnergyBurned"):
		return CategoryActiveEnergy
	case strings.Contains(recordType, "Motion"),
		strings.Contains(recordType, "WalkingSpeed"):
		return CategoryMotion
	default:
		return CategoryUnknown
	}
}

// IsActiveType reports whether the type counts toward the active-minutes
// proxy, which uses a broader "Active" match than the energy category.
func IsActiveType(recordType string) bool {
	return strings.Contains(recordType, "Active")
}

// ClassifyMotion buckets a sample value into a motion type. Thresholds are
// strictly-greater-than: 500 falls to walking, 100 falls to sedentary.
func ClassifyMotion(value *float64) string {
	switch {
	case value == nil:
		return MotionUnknown
	case *value > 500:
		return MotionHighActivity
	case *value > 100:
		return MotionWalking
	default:
		return MotionSedentary
	}
}
