package ui

import (
	"strings"

	"agriflow/internal/model"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// RenderHelp renders context-sensitive help footer.
func RenderHelp(screen model.Screen, mode model.Mode, width int) string {
	if mode == model.ModeInsert {
		return renderFormHelp(width)
	}

	switch screen {
	case model.ScreenJournal:
		return renderJournalHelp(width)
	case model.ScreenRoster:
		return renderRosterHelp(width)
	case model.ScreenHistory:
		return renderHistoryHelp(width)
	default:
		return renderDefaultHelp(width)
	}
}

func renderJournalHelp(width int) string {
	k := DefaultKeyMap()
	keys := []string{
		helpKey("j/k", "navigate"),
		bindingHelp(k.Record),
		bindingHelp(k.Select),
		bindingHelp(k.Search),
		helpKey("s/S", "sort"),
		helpKey("n/N", "filter"),
		bindingHelp(k.Delete),
		helpKey("u/ctrl+r", "undo/redo"),
		bindingHelp(k.Quit),
	}
	return renderHelpLine(keys, width)
}

func renderRosterHelp(width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("tab", "next col"),
		helpKey("s/S", "sort"),
		helpKey("n/N", "filter"),
		helpKey("h/esc", "back to form"),
	}
	return renderHelpLine(keys, width)
}

func renderHistoryHelp(width int) string {
	keys := []string{
		helpKey("j/k", "scroll"),
		helpKey("h/esc", "back"),
	}
	return renderHelpLine(keys, width)
}

func renderFormHelp(width int) string {
	k := DefaultFormKeyMap()
	keys := []string{
		bindingHelp(k.NextField),
		helpKey("enter", "choose"),
		bindingHelp(k.Scan),
		bindingHelp(k.Roster),
		bindingHelp(k.Submit),
		bindingHelp(k.Cancel),
	}
	return renderHelpLine(keys, width)
}

func renderDefaultHelp(width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("h/l", "back/select"),
		helpKey("q", "quit"),
	}
	return renderHelpLine(keys, width)
}

func bindingHelp(b key.Binding) string {
	h := b.Help()
	return helpKey(h.Key, h.Desc)
}

func helpKey(key, desc string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(desc)
}

func renderHelpLine(keys []string, width int) string {
	line := strings.Join(keys, "  ")
	return FooterStyle.Width(width).Render(line)
}

// RenderFullHelp renders the full help screen.
func RenderFullHelp(width, height int) string {
	content := lipgloss.NewStyle().
		Width(width-4).
		Height(height-6).
		Padding(1, 2)

	sections := []string{
		titleSection("Journal"),
		helpSection([]helpItem{
			{"j / k", "Move down / up"},
			{"gg / G", "Jump to top / bottom"},
			{"ctrl+d / ctrl+u", "Half page down / up"},
			{"tab / shift+tab", "Cycle active column"},
			{"/ then 1-9", "Jump to column"},
			{"s / S", "Sort active column asc/desc"},
			{"c / C", "Hide active column / show all"},
			{"n / N", "Filter by selected value / clear"},
			{"f", "Search farmer, activity, practice or notes"},
			{"a", "Record attendance"},
			{"enter / l", "Farmer attendance history"},
			{"d", "Delete journal entry (local only)"},
			{"u / ctrl+r", "Undo / redo"},
			{"R", "Reload"},
			{"q", "Quit"},
		}),
		titleSection("Attendance Form"),
		helpSection([]helpItem{
			{"tab / shift+tab", "Next / previous field"},
			{"↑ / ↓, enter", "Move and choose practice, activity or farmer"},
			{"ctrl+f", "Scan the farmer's QR card"},
			{"o / p / x", "Add photo from file / take photo / remove"},
			{"ctrl+o", "Attendance already recorded for the activity"},
			{"ctrl+t", "Retry a failed load"},
			{"ctrl+s", "Record attendance"},
			{"esc", "Stop scanning / close"},
		}),
		titleSection("Roster and History"),
		helpSection([]helpItem{
			{"h / esc", "Back"},
			{"?", "Toggle help"},
		}),
	}

	helpText := content.Render(strings.Join(sections, "\n\n"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		helpText,
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}

type helpItem struct {
	key  string
	desc string
}

func titleSection(title string) string {
	return LabelStyle.Render(title)
}

func helpSection(items []helpItem) string {
	var lines []string
	for _, item := range items {
		lines = append(lines, "  "+HelpKeyStyle.Render(item.key)+" - "+HelpDescStyle.Render(item.desc))
	}
	return strings.Join(lines, "\n")
}
