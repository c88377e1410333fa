// ABOUTME: User upsert and raw health record persistence.
// ABOUTME: Batch inserts are one multi-row statement committed as a single transaction.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Adithyav2000/pulsecontext/internal/models"
)

// EnsureUser idempotently creates the user row.
func (d *DB) EnsureUser(u models.User) error {
	_, err := d.db.Exec(`
		INSERT INTO users (user_id, name, timezone)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`, u.UserID, u.Name, u.Timezone)
	if err != nil {
		return fmt.Errorf("ensure user %s: %w", u.UserID, err)
	}
	return nil
}

// InsertRecordBatch writes all records as one multi-row insert inside one
// transaction and returns the number of rows actually inserted. Records
// carrying a dedup key that already exists are ignored, not duplicated.
// On any error the transaction is rolled back and nothing is kept.
func (d *DB) InsertRecordBatch(records []*models.HealthRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT OR IGNORE INTO health_records
		(id, user_id, record_type, source, ts, value, unit, dedup_key, created_at)
		VALUES `)
	args := make([]interface{}, 0, len(records)*9)
	for i, r := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			r.ID.String(),
			r.UserID,
			r.RecordType,
			r.Source,
			r.Timestamp.Format(time.RFC3339),
			r.Value,
			r.Unit,
			r.DedupKey,
			r.CreatedAt.Format(time.RFC3339),
		)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}
	res, err := tx.Exec(sb.String(), args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert record batch: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert record batch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit record batch: %w", err)
	}
	return int(inserted), nil
}

// ForEachRecord streams all records for a user in timestamp order through fn.
// Aggregations fold over this instead of loading the full history at once.
func (d *DB) ForEachRecord(userID string, fn func(*models.HealthRecord) error) error {
	rows, err := d.db.Query(`
		SELECT id, user_id, record_type, source, ts, value, unit
		FROM health_records
		WHERE user_id = ?
		ORDER BY ts
	`, userID)
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountRecords returns the number of stored records for a user.
func (d *DB) CountRecords(userID string) (int, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM health_records WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func scanRecord(rows *sql.Rows) (*models.HealthRecord, error) {
	var r models.HealthRecord
	var idStr, ts string
	var unit sql.NullString

	if err := rows.Scan(&idStr, &r.UserID, &r.RecordType, &r.Source, &ts, &r.Value, &unit); err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}

	r.ID, _ = uuid.Parse(idStr)
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return nil, fmt.Errorf("scan record timestamp %q: %w", ts, err)
	}
	r.Timestamp = parsed
	if unit.Valid {
		r.Unit = &unit.String
	}
	return &r, nil
}
