package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS attendance_journal (
    id             INTEGER PRIMARY KEY,
    record_id      TEXT NOT NULL,
    project_id     TEXT NOT NULL DEFAULT '',
    practice_title TEXT,
    activity_id    TEXT NOT NULL,
    activity_title TEXT,
    farmer_id      TEXT NOT NULL,
    farmer_names   TEXT,
    notes          TEXT,
    photo_count    INTEGER NOT NULL DEFAULT 0 CHECK(photo_count >= 0),
    recorded_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_journal_recorded_at ON attendance_journal(recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_journal_farmer_id ON attendance_journal(farmer_id);
CREATE INDEX IF NOT EXISTS idx_journal_activity_id ON attendance_journal(activity_id);
`

// Open opens or creates the SQLite database and initializes the schema.
func Open(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}
