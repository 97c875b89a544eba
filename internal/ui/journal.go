package ui

import (
	"fmt"
	"strconv"

	"agriflow/internal/model"
	"agriflow/internal/util"

	"github.com/charmbracelet/lipgloss"
)

// JournalModel lists attendance recorded from this machine.
type JournalModel struct {
	*Table[model.JournalEntry]
}

// NewJournalModel creates a new journal model.
func NewJournalModel(entries []model.JournalEntry) *JournalModel {
	t := newTable(entries, []tableColumn{
		{key: "recorded", label: "recorded", width: 14},
		{key: "farmer", label: "farmer", width: 22},
		{key: "activity", label: "activity", width: 22},
		{key: "practice", label: "practice", width: 18},
		{key: "photos", label: "photos", width: 8},
		{key: "notes", label: "notes", width: 24},
		{key: "record", label: "record", width: 12},
	}, journalValue)
	t.cell = journalCell
	t.less = func(a, b model.JournalEntry) bool { return a.ID > b.ID }
	t.noun = "entries"
	t.empty = `    No attendance recorded yet.
    Press  a  to record the first one.`
	return &JournalModel{Table: t}
}

func journalValue(e model.JournalEntry, key string) string {
	switch key {
	case "recorded":
		if e.RecordedAt.IsZero() {
			return ""
		}
		return e.RecordedAt.UTC().Format("2006-01-02T15:04:05")
	case "farmer":
		return e.FarmerNames
	case "activity":
		return e.ActivityTitle
	case "practice":
		return e.PracticeTitle
	case "photos":
		return fmt.Sprintf("%03d", e.PhotoCount)
	case "notes":
		return e.Notes
	case "record":
		return e.RecordID
	default:
		return ""
	}
}

func journalCell(e model.JournalEntry, key string, width int) string {
	switch key {
	case "recorded":
		return util.FormatTimeHuman(e.RecordedAt)
	case "photos":
		if e.PhotoCount == 0 {
			return HelpDescStyle.Render("–")
		}
		return lipgloss.NewStyle().Foreground(ColorSoil).Render(strconv.Itoa(e.PhotoCount))
	default:
		return util.TruncateString(util.Placeholder(journalValue(e, key)), width)
	}
}
