package model

// Bubble Tea message types

// ErrorMsg represents an error message.
type ErrorMsg struct {
	Err error
}

// JournalLoadedMsg is sent when the local journal is loaded.
type JournalLoadedMsg struct {
	Entries []JournalEntry
}

// AttendanceRecordedMsg is sent by the attendance form after the server
// accepted a submission.
type AttendanceRecordedMsg struct {
	Record  AttendanceRecord
	EntryID int64
}

// RosterLoadedMsg is sent when an activity's attendance list is loaded.
type RosterLoadedMsg struct {
	Activity Activity
	Records  []AttendanceRecord
}

// HistoryLoadedMsg is sent when a farmer's attendance history is loaded.
type HistoryLoadedMsg struct {
	History FarmerHistory
}

// FormCancelledMsg is sent when a form is cancelled.
type FormCancelledMsg struct{}

// DeleteEntryMsg is sent after a journal entry was deleted.
type DeleteEntryMsg struct {
	ID      int64
	Deleted JournalEntry
}

// Screen represents different app screens.
type Screen int

const (
	ScreenJournal Screen = iota
	ScreenAttendanceForm
	ScreenRoster
	ScreenHistory
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNav Mode = iota
	ModeInsert
)
