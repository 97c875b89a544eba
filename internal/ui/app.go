package ui

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agriflow/internal/attendance"
	"agriflow/internal/db"
	"agriflow/internal/model"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model is the root Bubble Tea model.
type Model struct {
	db        *sql.DB
	api       Backend
	submitter Submitter
	scanner   Scanner
	formCfg   FormConfig
	prefsPath string

	screen model.Screen
	mode   model.Mode
	gState GState

	width  int
	height int

	error       string
	info        string
	showingHelp bool
	columnJump  bool

	// Journal search
	searching    bool
	searchInput  textinput.Model
	journalQuery string

	// Screen models
	journal *JournalModel
	form    *AttendanceFormModel
	roster  *RosterModel
	history *HistoryModel

	keys      KeyMap
	prefs     UIPreferences
	undoStack []undoAction
	redoStack []undoAction
}

// New creates a new root model.
func New(database *sql.DB, api Backend, submitter Submitter, scanner Scanner, cfg FormConfig, prefsPath string) Model {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return Model{
		db:        database,
		api:       api,
		submitter: submitter,
		scanner:   scanner,
		formCfg:   cfg,
		prefsPath: prefsPath,
		screen:    model.ScreenJournal,
		mode:      model.ModeNav,
		gState:    GStateIdle,
		keys:      DefaultKeyMap(),
		prefs:     loadUIPreferences(prefsPath),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return loadJournalCmd(m.db, m.journalQuery)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.mode == model.ModeNav && m.columnJump {
			switch msg.String() {
			case "esc":
				m.columnJump = false
				m.info = ""
				return m, nil
			}
			if n, err := strconv.Atoi(msg.String()); err == nil {
				table := m.currentTable()
				if table != nil && table.JumpToColumn(n) {
					m.columnJump = false
					m.info = fmt.Sprintf("Jumped to column %d", n)
					m.persistCurrentTablePrefs()
					return m, nil
				}
				m.info = fmt.Sprintf("Column %d unavailable", n)
				return m, nil
			}
		}

		if msg.String() == "ctrl+c" {
			if m.form != nil {
				m.form.Close()
			}
			return m, tea.Quit
		}

		if m.searching {
			return m.handleJournalSearch(msg)
		}

		if key.Matches(msg, m.keys.Help) && m.mode == model.ModeNav {
			m.showingHelp = !m.showingHelp
			return m, nil
		}

		if m.showingHelp {
			if msg.String() == "esc" || msg.String() == "?" {
				m.showingHelp = false
			}
			return m, nil
		}

		if m.mode == model.ModeNav {
			return m.handleNavMode(msg)
		}
		return m.handleInsertMode(msg)

	case model.ErrorMsg:
		m.error = msg.Err.Error()
		return m, nil

	case model.JournalLoadedMsg:
		m.journal = NewJournalModel(msg.Entries)
		m.journal.ApplyPrefs(m.prefs.Journal)
		m.error = ""
		return m, nil

	case model.AttendanceRecordedMsg:
		m.mode = model.ModeNav
		m.screen = model.ScreenJournal
		m.form = nil
		m.roster = nil
		m.error = ""
		m.info = "Attendance recorded"
		if msg.Record.Farmer != nil && msg.Record.Farmer.Names != "" {
			m.info = "Attendance recorded for " + msg.Record.Farmer.Names
		}
		// Show the new entry even if a search was hiding it.
		m.journalQuery = ""
		return m, loadJournalCmd(m.db, "")

	case model.RosterLoadedMsg:
		m.roster = NewRosterModel(msg.Activity, msg.Records)
		m.roster.ApplyPrefs(m.prefs.Roster)
		m.screen = model.ScreenRoster
		m.mode = model.ModeNav
		m.error = ""
		return m, nil

	case model.HistoryLoadedMsg:
		m.history = NewHistoryModel(msg.History)
		m.screen = model.ScreenHistory
		m.error = ""
		return m, nil

	case model.FormCancelledMsg:
		m.mode = model.ModeNav
		m.screen = model.ScreenJournal
		m.form = nil
		m.roster = nil
		return m, nil

	case model.DeleteEntryMsg:
		m.pushUndoAction(m.buildDeleteEntryAction(msg))
		m.info = "Journal entry deleted (u to undo)"
		return m, loadJournalCmd(m.db, m.journalQuery)

	case undoAppliedMsg:
		return m, m.applyUndoResult(msg)

	default:
		// The form keeps receiving its async results while the roster is shown.
		if m.form != nil {
			newForm, cmd := m.form.Update(msg)
			m.form = &newForm
			return m, cmd
		}
	}

	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if m.showingHelp {
		return RenderFullHelp(m.width, m.height)
	}

	var content string
	var breadcrumbParts []string

	// header + footer + padding
	contentHeight := m.height - 4

	switch m.screen {
	case model.ScreenJournal:
		breadcrumbParts = []string{"Journal"}
		if m.journalQuery != "" {
			breadcrumbParts = append(breadcrumbParts, fmt.Sprintf("matching %q", m.journalQuery))
		}
		tableHeight := contentHeight
		if m.searching {
			tableHeight--
		}
		if m.journal != nil {
			content = m.journal.View(m.width, tableHeight)
		}
		if m.searching {
			content = lipgloss.JoinVertical(lipgloss.Left, m.searchInput.View(), content)
		}
	case model.ScreenAttendanceForm:
		breadcrumbParts = []string{"Journal", "Record attendance"}
		if m.form != nil {
			content = m.form.View(m.width, contentHeight)
		}
	case model.ScreenRoster:
		breadcrumbParts = []string{"Record attendance", "Roster"}
		if m.roster != nil {
			breadcrumbParts = []string{"Record attendance", m.roster.activity.Title}
			content = m.roster.View(m.width, contentHeight)
		}
	case model.ScreenHistory:
		breadcrumbParts = []string{"Journal", "History"}
		if m.history != nil {
			breadcrumbParts = []string{"Journal", m.history.history.Farmer.Names}
			content = m.history.View(m.width, contentHeight)
		}
	}

	header := renderHeader(breadcrumbParts, m.formCfg.ProjectTitle, m.width)
	footer := RenderHelp(m.screen, m.mode, m.width)

	contentStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(contentHeight)
	content = contentStyle.Render(content)

	parts := []string{header}
	if banner := m.banner(); banner != "" {
		parts = append(parts, ErrorStyle.Width(m.width).Render("Error: "+banner))
	}
	if m.info != "" {
		parts = append(parts, SuccessStyle.Width(m.width).Render(m.info))
	}
	parts = append(parts, content, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// banner returns the error line for the current screen.
func (m Model) banner() string {
	if m.screen == model.ScreenAttendanceForm && m.form != nil {
		if b := m.form.Banner(); b != "" {
			return b
		}
	}
	return m.error
}

func renderHeader(breadcrumbParts []string, project string, width int) string {
	title := HeaderStyle.Render("agriflow")

	var breadcrumb string
	if len(breadcrumbParts) > 0 {
		separator := BreadcrumbStyle.Render(" › ")
		parts := make([]string, len(breadcrumbParts))
		for i, part := range breadcrumbParts {
			if i == len(breadcrumbParts)-1 {
				parts[i] = BreadcrumbActiveStyle.Render(part)
			} else {
				parts[i] = BreadcrumbStyle.Render(part)
			}
		}
		breadcrumb = separator + strings.Join(parts, separator)
	}

	left := "  " + title + breadcrumb

	right := time.Now().Format("Mon 02 Jan")
	if project != "" {
		right = project + "  ·  " + right
	}
	right = BreadcrumbStyle.Render(right) + "  "

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}

	headerContent := left + strings.Repeat(" ", padding) + right
	return TitleStyle.Width(width).Render(headerContent)
}

// handleNavMode handles navigation mode input.
func (m Model) handleNavMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if t := m.currentTable(); t != nil {
		switch {
		case key.Matches(msg, m.keys.NextColumn):
			t.NextColumn()
			m.persistCurrentTablePrefs()
			return m, nil
		case key.Matches(msg, m.keys.PrevColumn):
			t.PrevColumn()
			m.persistCurrentTablePrefs()
			return m, nil
		case key.Matches(msg, m.keys.ColumnJump):
			m.columnJump = true
			m.info = "Jump to column: press 1-9 (esc to cancel)"
			return m, nil
		case key.Matches(msg, m.keys.SortAsc):
			t.SortActiveColumn(false)
			m.info = "Sorted ascending"
			m.persistCurrentTablePrefs()
			return m, nil
		case key.Matches(msg, m.keys.SortDesc):
			t.SortActiveColumn(true)
			m.info = "Sorted descending"
			m.persistCurrentTablePrefs()
			return m, nil
		case key.Matches(msg, m.keys.HideColumn):
			if t.HideActiveColumn() {
				m.info = "Column hidden"
				m.persistCurrentTablePrefs()
			} else {
				m.info = "Cannot hide last visible column"
			}
			return m, nil
		case key.Matches(msg, m.keys.ShowColumns):
			t.ShowAllColumns()
			m.info = "All columns shown"
			m.persistCurrentTablePrefs()
			return m, nil
		case key.Matches(msg, m.keys.FilterValue):
			if t.FilterBySelectedValue() {
				m.info = "Filter applied from selected value"
				m.persistCurrentTablePrefs()
			} else {
				m.info = "No filterable value in selected cell"
			}
			return m, nil
		case key.Matches(msg, m.keys.ClearFilter):
			if t.ClearFilter() {
				m.info = "Filter cleared"
				m.persistCurrentTablePrefs()
			}
			return m, nil
		}
	}

	// Handle "gg" state machine
	if msg.String() == "g" {
		if m.gState == GStateIdle {
			m.gState = GStateFirstG
			return m, nil
		}
		m.gState = GStateIdle
		if t := m.currentTable(); t != nil {
			t.JumpToTop()
		}
		return m, nil
	}
	m.gState = GStateIdle

	switch m.screen {
	case model.ScreenJournal:
		return m.handleJournalNav(msg)
	case model.ScreenRoster:
		return m.handleRosterNav(msg)
	case model.ScreenHistory:
		return m.handleHistoryNav(msg)
	}

	return m, nil
}

func (m *Model) currentTable() tableController {
	switch m.screen {
	case model.ScreenJournal:
		if m.journal != nil {
			return m.journal
		}
	case model.ScreenRoster:
		if m.roster != nil {
			return m.roster
		}
	}
	return nil
}

func (m *Model) persistCurrentTablePrefs() {
	switch m.screen {
	case model.ScreenJournal:
		if m.journal != nil {
			m.prefs.Journal = m.journal.Prefs()
		}
	case model.ScreenRoster:
		if m.roster != nil {
			m.prefs.Roster = m.roster.Prefs()
		}
	}
	_ = saveUIPreferences(m.prefsPath, m.prefs)
}

// handleInsertMode hands keys to the open form.
func (m Model) handleInsertMode(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		m.mode = model.ModeNav
		return m, nil
	}
	newForm, cmd := m.form.Update(msg)
	m.form = &newForm
	return m, cmd
}

func (m Model) openForm() (tea.Model, tea.Cmd) {
	m.form = NewAttendanceFormModel(m.api, m.submitter, m.scanner, m.formCfg)
	m.mode = model.ModeInsert
	m.screen = model.ScreenAttendanceForm
	m.error = ""
	m.info = ""
	return m, m.form.Init()
}

func (m Model) handleJournalNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Record):
		return m.openForm()
	case key.Matches(msg, m.keys.Reload):
		m.info = ""
		return m, loadJournalCmd(m.db, m.journalQuery)
	case key.Matches(msg, m.keys.Search):
		input := textinput.New()
		input.Prompt = "search> "
		input.Placeholder = "farmer, activity, practice or notes"
		input.CharLimit = 100
		input.SetValue(m.journalQuery)
		input.CursorEnd()
		input.Focus()
		m.searchInput = input
		m.searching = true
		m.info = ""
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Undo):
		if len(m.undoStack) == 0 {
			m.info = "Nothing to undo"
			return m, nil
		}
		return m, m.undoCmd()
	case key.Matches(msg, m.keys.Redo):
		if len(m.redoStack) == 0 {
			m.info = "Nothing to redo"
			return m, nil
		}
		return m, m.redoCmd()
	}

	if m.journal == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Select):
		if entry, ok := m.journal.Selected(); ok {
			farmer := model.Farmer{ID: entry.FarmerID, Names: entry.FarmerNames}
			return m, loadHistoryCmd(m.api, m.formCfg.RequestTimeout, farmer)
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if entry, ok := m.journal.Selected(); ok {
			return m, deleteEntryCmd(m.db, entry.ID)
		}
		return m, nil
	default:
		return m, m.moveTable(m.journal, msg)
	}
}

// handleJournalSearch edits the journal query. Enter applies it, esc
// clears it.
func (m Model) handleJournalSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.journalQuery = strings.TrimSpace(m.searchInput.Value())
		return m, loadJournalCmd(m.db, m.journalQuery)
	case "esc":
		m.searching = false
		if m.journalQuery == "" {
			return m, nil
		}
		m.journalQuery = ""
		return m, loadJournalCmd(m.db, "")
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleRosterNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.roster = nil
		if m.form != nil {
			m.screen = model.ScreenAttendanceForm
			m.mode = model.ModeInsert
			return m, nil
		}
		m.screen = model.ScreenJournal
		return m, nil
	}
	if m.roster != nil {
		return m, m.moveTable(m.roster, msg)
	}
	return m, nil
}

func (m Model) handleHistoryNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.screen = model.ScreenJournal
		m.history = nil
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.history != nil {
			m.history.ScrollDown()
		}
	case key.Matches(msg, m.keys.Up):
		if m.history != nil {
			m.history.ScrollUp()
		}
	}
	return m, nil
}

func (m Model) moveTable(t tableController, msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Down):
		t.MoveDown()
	case key.Matches(msg, m.keys.Up):
		t.MoveUp()
	case key.Matches(msg, m.keys.Bottom):
		t.JumpToBottom()
	case key.Matches(msg, m.keys.HalfPageDown):
		t.HalfPageDown(m.height / 2)
	case key.Matches(msg, m.keys.HalfPageUp):
		t.HalfPageUp(m.height / 2)
	}
	return nil
}

// Commands

func loadJournalCmd(database *sql.DB, filter string) tea.Cmd {
	return func() tea.Msg {
		entries, err := db.ListEntries(database, filter)
		if err != nil {
			return model.ErrorMsg{Err: err}
		}
		return model.JournalLoadedMsg{Entries: entries}
	}
}

func deleteEntryCmd(database *sql.DB, id int64) tea.Cmd {
	return func() tea.Msg {
		entry, err := db.GetEntry(database, id)
		if err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to load entry before delete: %w", err)}
		}
		if err := db.DeleteEntry(database, id); err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to delete entry: %w", err)}
		}
		return model.DeleteEntryMsg{ID: id, Deleted: entry}
	}
}

func loadHistoryCmd(api Backend, timeout time.Duration, farmer model.Farmer) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		records, err := api.FarmerAttendance(ctx, farmer.ID)
		if err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to load attendance history: %w", err)}
		}
		return model.HistoryLoadedMsg{History: attendance.GroupHistory(farmer, records)}
	}
}
