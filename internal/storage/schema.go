// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines raw health_records plus the four derived aggregate tables.
package storage

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		timezone TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS health_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		record_type TEXT NOT NULL,
		source TEXT NOT NULL,
		ts DATETIME NOT NULL,
		value REAL NOT NULL,
		unit TEXT,
		dedup_key TEXT UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(user_id)
	);

	CREATE TABLE IF NOT EXISTS daily_summaries (
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		resting_hr_bpm REAL,
		min_hr_bpm REAL,
		max_hr_bpm REAL,
		avg_hr_bpm REAL,
		avg_hrv_ms REAL,
		steps REAL,
		active_minutes INTEGER,
		active_energy_cal REAL,
		stress_score REAL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, date)
	);

	CREATE TABLE IF NOT EXISTS hr_baselines (
		user_id TEXT NOT NULL,
		hour_of_day INTEGER NOT NULL,
		day_of_week INTEGER NOT NULL,
		baseline_hr REAL NOT NULL,
		baseline_std REAL,
		sample_count INTEGER NOT NULL,
		last_updated DATETIME NOT NULL,
		PRIMARY KEY (user_id, hour_of_day, day_of_week)
	);

	CREATE TABLE IF NOT EXISTS hrv_baselines (
		user_id TEXT PRIMARY KEY,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		baseline_hrv_30day_avg REAL NOT NULL,
		baseline_hrv_std REAL,
		z_score_threshold REAL NOT NULL,
		last_updated DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activity_patterns (
		user_id TEXT NOT NULL,
		day_of_week INTEGER NOT NULL,
		hour_of_day INTEGER NOT NULL,
		motion_type TEXT NOT NULL,
		frequency_count INTEGER NOT NULL,
		last_updated DATETIME NOT NULL,
		PRIMARY KEY (user_id, day_of_week, hour_of_day, motion_type)
	);

	CREATE TABLE IF NOT EXISTS device_sources (
		user_id TEXT NOT NULL,
		device_name TEXT NOT NULL,
		device_type TEXT NOT NULL,
		source_label TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, device_name, source_label)
	);

	CREATE INDEX IF NOT EXISTS idx_records_user_ts ON health_records(user_id, ts);
	CREATE INDEX IF NOT EXISTS idx_records_user_type ON health_records(user_id, record_type);
	`

	_, err := d.db.Exec(schema)
	return err
}
