package ui

import (
	"fmt"
	"strings"

	"agriflow/internal/model"
	"agriflow/internal/util"

	"github.com/charmbracelet/lipgloss"
)

// HistoryModel shows a farmer's attendance grouped by practice.
type HistoryModel struct {
	history model.FarmerHistory
	offset  int
}

// NewHistoryModel creates a new history model.
func NewHistoryModel(history model.FarmerHistory) *HistoryModel {
	return &HistoryModel{history: history}
}

// ScrollDown moves the view one practice down.
func (m *HistoryModel) ScrollDown() {
	if m.offset < len(m.history.Practices)-1 {
		m.offset++
	}
}

// ScrollUp moves the view one practice up.
func (m *HistoryModel) ScrollUp() {
	if m.offset > 0 {
		m.offset--
	}
}

// View renders the farmer history.
func (m *HistoryModel) View(width, height int) string {
	h := m.history

	var fields []string
	fields = append(fields, renderField("Farmer", h.Farmer.Names))
	if h.Farmer.FarmerNumber != "" {
		fields = append(fields, renderField("Number", h.Farmer.FarmerNumber))
	}
	if h.Project != nil {
		fields = append(fields, renderField("Project", h.Project.Title))
		fields = append(fields, renderField("Runs", util.FormatDateRange(h.Project.StartDate, h.Project.EndDate)))
	}
	total := 0
	for _, p := range h.Practices {
		total += len(p.Records)
	}
	fields = append(fields, LabelStyle.Render("Attended:")+" "+NormalRowStyle.Render(
		fmt.Sprintf("%s across %s", util.FormatCount(total, "session"), util.FormatCount(len(h.Practices), "practice"))))

	sections := []string{strings.Join(fields, "\n")}
	sections = append(sections, lipgloss.NewStyle().
		Foreground(ColorMuted).
		Render(strings.Repeat("─", max(0, width-8))))

	if len(h.Practices) == 0 {
		sections = append(sections, HelpDescStyle.Render("No attendance on record for this farmer."))
	}
	for _, p := range h.Practices[min(m.offset, len(h.Practices)):] {
		sections = append(sections, m.renderPractice(p, width))
	}

	return PanelStyle.
		Width(width - 4).
		MaxHeight(height).
		Render(strings.Join(sections, "\n\n"))
}

func (m *HistoryModel) renderPractice(p model.PracticeAttendance, width int) string {
	lines := []string{LabelStyle.Render(p.Practice.Title)}
	if p.Practice.InitialSituation != "" {
		lines = append(lines, HelpDescStyle.Render(util.TruncateString(p.Practice.InitialSituation, width-12)))
	}

	dateWidth := 28
	titleWidth := max(16, width-dateWidth-24)
	for _, rec := range p.Records {
		title, dates := "—", ""
		if rec.Activity != nil {
			title = rec.Activity.Title
			dates = util.FormatDateRange(rec.Activity.StartDate, rec.Activity.EndDate)
		}
		cells := []string{
			"• " + util.TruncateString(title, titleWidth-2),
			dates,
		}
		if n := len(rec.Photos); n > 0 {
			cells = append(cells, lipgloss.NewStyle().Foreground(ColorSoil).Render(util.FormatCount(n, "photo")))
		}
		lines = append(lines, renderTableRow(cells, []int{titleWidth, dateWidth, 12}, NormalRowStyle))
		if rec.Notes != "" {
			lines = append(lines, HelpDescStyle.Render("    "+util.TruncateString(rec.Notes, width-16)))
		}
	}
	return strings.Join(lines, "\n")
}

func renderField(label, value string) string {
	return LabelStyle.Render(label+":") + " " + NormalRowStyle.Render(util.Placeholder(value))
}
