package ui

import (
	"fmt"
	"sort"
	"strings"

	"agriflow/internal/util"

	"github.com/charmbracelet/lipgloss"
)

type tableColumn struct {
	key    string
	label  string
	width  int
	hidden bool
}

// Table is a sortable, filterable list with an active column.
type Table[T any] struct {
	allRows []T
	rows    []T
	cursor  int
	offset  int

	columns      []tableColumn
	activeColumn int
	sortKey      string
	sortDesc     bool
	filterKey    string
	filterValue  string

	// value is the raw text used to sort and filter a cell.
	value func(row T, key string) string
	// cell renders a cell for display; nil falls back to value.
	cell func(row T, key string, width int) string
	// less breaks ties between equal sort values.
	less func(a, b T) bool

	noun  string
	empty string
}

func newTable[T any](rows []T, columns []tableColumn, value func(T, string) string) *Table[T] {
	return &Table[T]{
		allRows: append([]T(nil), rows...),
		rows:    append([]T(nil), rows...),
		columns: columns,
		value:   value,
		noun:    "rows",
		empty:   "Nothing here yet.",
	}
}

func (t *Table[T]) ApplyPrefs(prefs TablePrefs) {
	if prefs.SortKey != "" {
		t.sortKey = prefs.SortKey
		t.sortDesc = prefs.SortDesc
	}
	hidden := make(map[string]bool, len(prefs.HiddenColumns))
	for _, c := range prefs.HiddenColumns {
		hidden[c] = true
	}
	for i := range t.columns {
		t.columns[i].hidden = hidden[t.columns[i].key]
	}
	if prefs.ActiveColumn != "" {
		for i, c := range t.columns {
			if c.key == prefs.ActiveColumn {
				t.activeColumn = i
				break
			}
		}
	}
	t.ensureVisibleActiveColumn()
	t.rebuild()
}

func (t *Table[T]) Prefs() TablePrefs {
	var hidden []string
	for _, c := range t.columns {
		if c.hidden {
			hidden = append(hidden, c.key)
		}
	}
	return TablePrefs{
		SortKey:       t.sortKey,
		SortDesc:      t.sortDesc,
		HiddenColumns: hidden,
		ActiveColumn:  t.columns[t.activeColumn].key,
	}
}

// Rows returns the rows as currently filtered and sorted.
func (t *Table[T]) Rows() []T {
	return append([]T(nil), t.rows...)
}

// Selected returns the row under the cursor.
func (t *Table[T]) Selected() (T, bool) {
	var zero T
	if len(t.rows) == 0 || t.cursor >= len(t.rows) {
		return zero, false
	}
	return t.rows[t.cursor], true
}

func (t *Table[T]) rebuild() {
	rows := append([]T(nil), t.allRows...)

	if t.filterKey != "" && t.filterValue != "" {
		filtered := make([]T, 0, len(rows))
		target := strings.ToLower(strings.TrimSpace(t.filterValue))
		for _, r := range rows {
			if strings.EqualFold(strings.TrimSpace(t.value(r, t.filterKey)), target) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	if t.sortKey != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			left := strings.ToLower(t.value(rows[i], t.sortKey))
			right := strings.ToLower(t.value(rows[j], t.sortKey))
			if left == right {
				if t.less != nil {
					return t.less(rows[i], rows[j])
				}
				return false
			}
			if t.sortDesc {
				return left > right
			}
			return left < right
		})
	}

	t.rows = rows
	t.clampCursor()
}

func (t *Table[T]) clampCursor() {
	if len(t.rows) == 0 {
		t.cursor = 0
		t.offset = 0
		return
	}
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	if t.offset > t.cursor {
		t.offset = t.cursor
	}
}

func (t *Table[T]) NextColumn() {
	start := t.activeColumn
	for {
		t.activeColumn = (t.activeColumn + 1) % len(t.columns)
		if !t.columns[t.activeColumn].hidden || t.activeColumn == start {
			return
		}
	}
}

func (t *Table[T]) PrevColumn() {
	start := t.activeColumn
	for {
		t.activeColumn--
		if t.activeColumn < 0 {
			t.activeColumn = len(t.columns) - 1
		}
		if !t.columns[t.activeColumn].hidden || t.activeColumn == start {
			return
		}
	}
}

func (t *Table[T]) JumpToColumn(number int) bool {
	if number < 1 || number > len(t.columns) {
		return false
	}
	idx := number - 1
	if t.columns[idx].hidden {
		return false
	}
	t.activeColumn = idx
	return true
}

func (t *Table[T]) SortActiveColumn(desc bool) {
	t.sortKey = t.columns[t.activeColumn].key
	t.sortDesc = desc
	t.rebuild()
}

func (t *Table[T]) HideActiveColumn() bool {
	if len(t.visibleColumnIndexes()) <= 1 {
		return false
	}
	t.columns[t.activeColumn].hidden = true
	t.ensureVisibleActiveColumn()
	return true
}

func (t *Table[T]) ShowAllColumns() {
	for i := range t.columns {
		t.columns[i].hidden = false
	}
}

func (t *Table[T]) FilterBySelectedValue() bool {
	if len(t.rows) == 0 {
		return false
	}
	key := t.columns[t.activeColumn].key
	value := strings.TrimSpace(t.value(t.rows[t.cursor], key))
	if value == "" {
		return false
	}
	t.filterKey = key
	t.filterValue = value
	t.rebuild()
	return true
}

func (t *Table[T]) ClearFilter() bool {
	if t.filterKey == "" {
		return false
	}
	t.filterKey = ""
	t.filterValue = ""
	t.rebuild()
	return true
}

func (t *Table[T]) TableMeta() string {
	col := strings.ToUpper(t.columns[t.activeColumn].label)
	parts := []string{fmt.Sprintf("col %s", col)}
	if t.sortKey != "" {
		order := "asc"
		if t.sortDesc {
			order = "desc"
		}
		parts = append(parts, fmt.Sprintf("sort %s %s", strings.ToUpper(t.sortKey), order))
	}
	if t.filterKey != "" {
		parts = append(parts, fmt.Sprintf("filter %s=%q", strings.ToUpper(t.filterKey), t.filterValue))
	}
	return strings.Join(parts, "  ·  ")
}

func (t *Table[T]) visibleColumnIndexes() []int {
	var idxs []int
	for i, c := range t.columns {
		if !c.hidden {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func (t *Table[T]) ensureVisibleActiveColumn() {
	if !t.columns[t.activeColumn].hidden {
		return
	}
	for i := range t.columns {
		if !t.columns[i].hidden {
			t.activeColumn = i
			return
		}
	}
	t.columns[0].hidden = false
	t.activeColumn = 0
}

// View renders the table.
func (t *Table[T]) View(width, height int) string {
	if len(t.rows) == 0 && t.filterKey == "" {
		return EmptyStateStyle.
			Width(width).
			Height(height).
			Render(t.empty)
	}

	visible := t.visibleColumnIndexes()
	if len(visible) == 0 {
		return EmptyStateStyle.Width(width).Height(height).Render("No visible columns. Press C to show all columns.")
	}

	widths := make([]int, 0, len(visible))
	headers := make([]string, 0, len(visible))
	totalFixed := 0
	for _, idx := range visible {
		col := t.columns[idx]
		label := strings.ToUpper(col.label)
		if idx == t.activeColumn {
			label = "❋ " + label
		}
		if t.sortKey == col.key {
			if t.sortDesc {
				label += " ↓"
			} else {
				label += " ↑"
			}
		}
		cellWidth := max(col.width, lipgloss.Width(label)+2)
		totalFixed += cellWidth
		widths = append(widths, cellWidth)
		headers = append(headers, label)
	}

	if len(widths) > 0 {
		extra := width - totalFixed - 4
		if extra > 0 {
			widths[len(widths)-1] += extra
		}
	}

	header := renderTableRow(headers, widths, TableHeaderStyle.Bold(true))

	visibleHeight := height - 3
	var rows []string
	for i := t.offset; i < len(t.rows) && i < t.offset+visibleHeight; i++ {
		row := t.rows[i]
		style := NormalRowStyle
		if i%2 == 1 {
			style = style.Background(ColorStripe)
		}
		if i == t.cursor {
			style = SelectedRowStyle
		}

		cells := make([]string, 0, len(visible))
		for j, idx := range visible {
			col := t.columns[idx]
			if t.cell != nil {
				cells = append(cells, t.cell(row, col.key, widths[j]-2))
			} else {
				cells = append(cells, util.TruncateString(t.value(row, col.key), widths[j]-2))
			}
		}
		rows = append(rows, renderTableRow(cells, widths, style))
	}

	filterInfo := ""
	if t.filterKey != "" {
		filterInfo = fmt.Sprintf("  ·  filtered: %d/%d", len(t.rows), len(t.allRows))
	}
	status := StatusBarStyle.Render(fmt.Sprintf("Total %s: %d%s  ·  %s", t.noun, len(t.rows), filterInfo, t.TableMeta()))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		strings.Join(rows, "\n"),
		"",
		status,
	)
}

// MoveDown moves the cursor down.
func (t *Table[T]) MoveDown() {
	if t.cursor < len(t.rows)-1 {
		t.cursor++
		if t.cursor >= t.offset+10 {
			t.offset++
		}
	}
}

// MoveUp moves the cursor up.
func (t *Table[T]) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		if t.cursor < t.offset {
			t.offset--
		}
	}
}

// JumpToTop jumps to the first item.
func (t *Table[T]) JumpToTop() {
	t.cursor = 0
	t.offset = 0
}

// JumpToBottom jumps to the last item.
func (t *Table[T]) JumpToBottom() {
	if len(t.rows) > 0 {
		t.cursor = len(t.rows) - 1
		if t.cursor >= 10 {
			t.offset = t.cursor - 9
		}
	}
}

// HalfPageDown moves down half a page.
func (t *Table[T]) HalfPageDown(pageSize int) {
	if len(t.rows) == 0 {
		return
	}
	t.cursor += pageSize / 2
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor >= t.offset+10 {
		t.offset = t.cursor - 9
	}
}

// HalfPageUp moves up half a page.
func (t *Table[T]) HalfPageUp(pageSize int) {
	t.cursor -= pageSize / 2
	if t.cursor < 0 {
		t.cursor = 0
	}
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
}

func renderTableRow(cells []string, widths []int, style lipgloss.Style) string {
	var parts []string
	for i, cell := range cells {
		if i >= len(widths) {
			continue
		}
		parts = append(parts, style.Width(widths[i]).Render(cell))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}
