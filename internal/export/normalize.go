// ABOUTME: Normalizer mapping raw export elements to canonical health records.
// ABOUTME: Handles timezone-aware date parsing, numeric validation, and skip semantics.
package export

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Adithyav2000/pulsecontext/internal/models"
)

// exportTimeLayout is the canonical export timestamp format,
// e.g. "2025-02-10 08:45:23 -0500".
const exportTimeLayout = "2006-01-02 15:04:05 -0700"

// SkipError marks a single record that cannot be normalized: a required
// attribute is missing or fails date/numeric parsing. Skips are counted and
// the run continues; they never abort an import.
type SkipError struct {
	Tag    string
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped %s element: %s", e.Tag, e.Reason)
}

// Normalizer converts raw elements into records for one user. No record-type
// allow-list is applied here: any vocabulary string is stored verbatim and
// classified later by the aggregation engine.
type Normalizer struct {
	userID  string
	skipped int
}

// NewNormalizer creates a normalizer for the given user.
func NewNormalizer(userID string) *Normalizer {
	return &Normalizer{userID: userID}
}

// Skipped returns how many elements have been skipped so far.
func (n *Normalizer) Skipped() int { return n.skipped }

// Normalize maps one element to its canonical rows. A Record yields one row;
// a Workout yields a start and an end boundary row. A *SkipError return is
// non-fatal: the element is counted and the caller moves on.
func (n *Normalizer) Normalize(el RawElement) ([]*models.HealthRecord, error) {
	switch el.Tag {
	case "Record":
		rec, err := n.normalizeRecord(el)
		if err != nil {
			n.skipped++
			return nil, err
		}
		return []*models.HealthRecord{rec}, nil
	case "Workout":
		recs, err := n.normalizeWorkout(el)
		if err != nil {
			n.skipped++
			return nil, err
		}
		return recs, nil
	default:
		n.skipped++
		return nil, &SkipError{Tag: el.Tag, Reason: "unsupported element"}
	}
}

func (n *Normalizer) normalizeRecord(el RawElement) (*models.HealthRecord, error) {
	recordType := el.Attr("type")
	if recordType == "" {
		recordType = "unknown"
	}
	source := el.Attr("sourceName")
	if source == "" {
		source = el.Attr("source")
	}
	if source == "" {
		source = "unknown"
	}

	startDate := el.Attr("startDate")
	rawValue := el.Attr("value")
	if startDate == "" || rawValue == "" {
		return nil, &SkipError{Tag: el.Tag, Reason: "missing startDate or value"}
	}

	ts, err := parseDate(startDate)
	if err != nil {
		return nil, &SkipError{Tag: el.Tag, Reason: fmt.Sprintf("bad startDate %q", startDate)}
	}
	value, err := strconv.ParseFloat(rawValue, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, &SkipError{Tag: el.Tag, Reason: fmt.Sprintf("bad value %q", rawValue)}
	}

	rec := models.NewHealthRecord(n.userID, recordType, source, ts, value)
	rec.WithUnit(el.Attr("unit"))
	return rec, nil
}

func (n *Normalizer) normalizeWorkout(el RawElement) ([]*models.HealthRecord, error) {
	activityType := el.Attr("workoutActivityType")
	if activityType == "" {
		activityType = "unknown"
	}
	source := el.Attr("sourceName")
	if source == "" {
		source = el.Attr("source")
	}
	if source == "" {
		source = "unknown"
	}

	startDate := el.Attr("startDate")
	endDate := el.Attr("endDate")
	if startDate == "" || endDate == "" {
		return nil, &SkipError{Tag: el.Tag, Reason: "missing startDate or endDate"}
	}
	start, err := parseDate(startDate)
	if err != nil {
		return nil, &SkipError{Tag: el.Tag, Reason: fmt.Sprintf("bad startDate %q", startDate)}
	}
	end, err := parseDate(endDate)
	if err != nil {
		return nil, &SkipError{Tag: el.Tag, Reason: fmt.Sprintf("bad endDate %q", endDate)}
	}

	return []*models.HealthRecord{
		models.NewHealthRecord(n.userID, activityType+models.WorkoutStartSuffix, source, start, 0),
		models.NewHealthRecord(n.userID, activityType+models.WorkoutEndSuffix, source, end, 0),
	}, nil
}

// parseDate accepts the canonical export format and falls back to RFC 3339.
// Both carry an explicit offset, so no timezone-naive timestamp can get
// through to storage.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(exportTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
