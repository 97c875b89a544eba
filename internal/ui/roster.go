package ui

import (
	"strconv"

	"agriflow/internal/model"
	"agriflow/internal/util"

	"github.com/charmbracelet/lipgloss"
)

// RosterModel lists the attendance the server holds for one activity.
type RosterModel struct {
	*Table[model.AttendanceRecord]
	activity model.Activity
}

// NewRosterModel creates a roster for activity.
func NewRosterModel(activity model.Activity, records []model.AttendanceRecord) *RosterModel {
	t := newTable(records, []tableColumn{
		{key: "farmer", label: "farmer", width: 24},
		{key: "number", label: "number", width: 10},
		{key: "date", label: "date", width: 14},
		{key: "photos", label: "photos", width: 8},
		{key: "notes", label: "notes", width: 30},
	}, rosterValue)
	t.noun = "attendees"
	t.empty = "    Nobody has been recorded for this activity yet."
	return &RosterModel{Table: t, activity: activity}
}

func rosterValue(r model.AttendanceRecord, key string) string {
	switch key {
	case "farmer":
		if r.Farmer != nil {
			return r.Farmer.Names
		}
		return r.FarmerID
	case "number":
		if r.Farmer != nil {
			return r.Farmer.FarmerNumber
		}
		return ""
	case "date":
		return util.FormatDate(r.CreatedAt)
	case "photos":
		return strconv.Itoa(len(r.Photos))
	case "notes":
		return r.Notes
	default:
		return ""
	}
}

// View renders the roster with its activity heading.
func (m *RosterModel) View(width, height int) string {
	heading := LabelStyle.Render(m.activity.Title)
	return lipgloss.JoinVertical(lipgloss.Left, " "+heading, "", m.Table.View(width, height-2))
}
