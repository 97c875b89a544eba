package db

import (
	"database/sql"
	"fmt"
	"time"

	"agriflow/internal/model"
)

const journalColumns = `id, record_id, project_id, COALESCE(practice_title, ''), activity_id,
	COALESCE(activity_title, ''), farmer_id, COALESCE(farmer_names, ''), COALESCE(notes, ''),
	photo_count, recorded_at`

// Journal appends submitted attendance to the local database.
type Journal struct {
	DB *sql.DB
}

// Append records a receipt and returns its id.
func (j Journal) Append(e model.NewJournalEntry) (int64, error) {
	return InsertEntry(j.DB, e)
}

// ListEntries retrieves journal entries, newest first, optionally filtered
// by farmer, activity, practice or notes.
func ListEntries(db *sql.DB, filter string) ([]model.JournalEntry, error) {
	query := `
		SELECT ` + journalColumns + `
		FROM attendance_journal
		WHERE (? = '' OR farmer_names LIKE '%' || ? || '%' OR activity_title LIKE '%' || ? || '%'
			OR practice_title LIKE '%' || ? || '%' OR notes LIKE '%' || ? || '%')
		ORDER BY recorded_at DESC, id DESC
	`

	rows, err := db.Query(query, filter, filter, filter, filter, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w", err)
	}

	return entries, nil
}

// GetEntry retrieves a single journal entry by ID.
func GetEntry(db *sql.DB, id int64) (model.JournalEntry, error) {
	row := db.QueryRow(`SELECT `+journalColumns+` FROM attendance_journal WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("failed to get journal entry: %w", err)
	}
	return e, nil
}

// InsertEntry creates a new journal entry.
func InsertEntry(db *sql.DB, e model.NewJournalEntry) (int64, error) {
	query := `
		INSERT INTO attendance_journal (record_id, project_id, practice_title, activity_id, activity_title,
			farmer_id, farmer_names, notes, photo_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query, e.RecordID, e.ProjectID, nullable(e.PracticeTitle), e.ActivityID,
		nullable(e.ActivityTitle), e.FarmerID, nullable(e.FarmerNames), nullable(e.Notes), e.PhotoCount)
	if err != nil {
		return 0, fmt.Errorf("failed to insert journal entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

// InsertEntryWithID restores a deleted entry under its original id.
func InsertEntryWithID(db *sql.DB, e model.JournalEntry) error {
	query := `
		INSERT INTO attendance_journal (id, record_id, project_id, practice_title, activity_id, activity_title,
			farmer_id, farmer_names, notes, photo_count, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	recordedAt := time.Now().UTC().Format(time.RFC3339)
	if !e.RecordedAt.IsZero() {
		recordedAt = e.RecordedAt.UTC().Format(time.RFC3339)
	}

	if _, err := db.Exec(query, e.ID, e.RecordID, e.ProjectID, nullable(e.PracticeTitle), e.ActivityID,
		nullable(e.ActivityTitle), e.FarmerID, nullable(e.FarmerNames), nullable(e.Notes), e.PhotoCount, recordedAt); err != nil {
		return fmt.Errorf("failed to insert journal entry with id: %w", err)
	}
	return nil
}

// DeleteEntry deletes a journal entry.
func DeleteEntry(db *sql.DB, id int64) error {
	_, err := db.Exec("DELETE FROM attendance_journal WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (model.JournalEntry, error) {
	var e model.JournalEntry
	var recordedAt string
	if err := row.Scan(&e.ID, &e.RecordID, &e.ProjectID, &e.PracticeTitle, &e.ActivityID,
		&e.ActivityTitle, &e.FarmerID, &e.FarmerNames, &e.Notes, &e.PhotoCount, &recordedAt); err != nil {
		return model.JournalEntry{}, fmt.Errorf("failed to scan journal entry: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, recordedAt); err == nil {
		e.RecordedAt = t
	}
	return e, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
