package model

import (
	"encoding/json"
	"time"
)

// Practice groups the activities of a project.
type Practice struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Activity belongs to exactly one practice.
type Activity struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Farmer is the projection returned by search and QR lookup.
type Farmer struct {
	ID           string `json:"id"`
	Names        string `json:"names"`
	FarmerNumber string `json:"farmerNumber,omitempty"`
}

// CapturedImage is a photo held in memory until submission.
type CapturedImage struct {
	Name        string
	ContentType string
	Data        []byte
}

// AttendanceSubmission is assembled right before the POST and written
// straight into the multipart body.
type AttendanceSubmission struct {
	ActivityID string `validate:"required"`
	FarmerID   string `validate:"required"`
	Notes      string
	Photos     []CapturedImage
}

// ProjectSummary is the project nested in attendance history records.
type ProjectSummary struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Objectives  string `json:"objectives,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

// PracticeDetail is the practice nested in attendance history records.
type PracticeDetail struct {
	Title            string          `json:"title"`
	InitialSituation string          `json:"initialSituation,omitempty"`
	Project          *ProjectSummary `json:"project,omitempty"`
}

// ActivityDetail is the activity nested in attendance history records.
type ActivityDetail struct {
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	StartDate      string          `json:"startDate,omitempty"`
	EndDate        string          `json:"endDate,omitempty"`
	TargetPractice *PracticeDetail `json:"targetPractice,omitempty"`
}

// AttendanceRecord is a server-assigned attendance record.
type AttendanceRecord struct {
	ID         string          `json:"id"`
	ActivityID string          `json:"activityId,omitempty"`
	FarmerID   string          `json:"farmerId,omitempty"`
	Notes      string          `json:"notes"`
	Photos     []string        `json:"photos"`
	CreatedAt  string          `json:"createdAt,omitempty"`
	Farmer     *Farmer         `json:"farmer,omitempty"`
	Activity   *ActivityDetail `json:"activity,omitempty"`

	// Raw holds the response body exactly as the server sent it.
	Raw json.RawMessage `json:"-"`
}

// PracticeTitle returns the practice title nested in the record, if any.
func (r AttendanceRecord) PracticeTitle() string {
	if r.Activity == nil || r.Activity.TargetPractice == nil {
		return ""
	}
	return r.Activity.TargetPractice.Title
}

// JournalEntry is a local receipt for a submitted attendance record.
type JournalEntry struct {
	ID            int64
	RecordID      string
	ProjectID     string
	PracticeTitle string
	ActivityID    string
	ActivityTitle string
	FarmerID      string
	FarmerNames   string
	Notes         string
	PhotoCount    int
	RecordedAt    time.Time
}

// NewJournalEntry represents data for creating a journal entry.
type NewJournalEntry struct {
	RecordID      string
	ProjectID     string
	PracticeTitle string
	ActivityID    string
	ActivityTitle string
	FarmerID      string
	FarmerNames   string
	Notes         string
	PhotoCount    int
}

// FarmerHistory is a farmer's attendance grouped by practice.
type FarmerHistory struct {
	Farmer    Farmer
	Project   *ProjectSummary
	Practices []PracticeAttendance
}

// PracticeAttendance holds the records of one practice, in server order.
type PracticeAttendance struct {
	Practice PracticeDetail
	Records  []AttendanceRecord
}
