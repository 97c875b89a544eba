package ui

import (
	"testing"
	"time"

	"agriflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func journalFixture() []model.JournalEntry {
	at := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	return []model.JournalEntry{
		{ID: 3, FarmerNames: "Peter O.", ActivityTitle: "Workshop", PracticeTitle: "Irrigation", RecordedAt: at},
		{ID: 2, FarmerNames: "Mary K.", ActivityTitle: "Field day", PracticeTitle: "Composting", RecordedAt: at.Add(-time.Hour)},
		{ID: 1, FarmerNames: "Amina W.", ActivityTitle: "Workshop", PracticeTitle: "Irrigation", RecordedAt: at.Add(-2 * time.Hour)},
	}
}

func farmerNames(entries []model.JournalEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.FarmerNames)
	}
	return names
}

func TestTableSortByActiveColumn(t *testing.T) {
	j := NewJournalModel(journalFixture())
	require.True(t, j.JumpToColumn(2))

	j.SortActiveColumn(false)
	assert.Equal(t, []string{"Amina W.", "Mary K.", "Peter O."}, farmerNames(j.Rows()))

	j.SortActiveColumn(true)
	assert.Equal(t, []string{"Peter O.", "Mary K.", "Amina W."}, farmerNames(j.Rows()))
}

func TestTableFilterBySelectedValue(t *testing.T) {
	j := NewJournalModel(journalFixture())
	require.True(t, j.JumpToColumn(3))

	require.True(t, j.FilterBySelectedValue())
	assert.Equal(t, []string{"Peter O.", "Amina W."}, farmerNames(j.Rows()))
	assert.Contains(t, j.TableMeta(), `filter ACTIVITY="Workshop"`)

	require.True(t, j.ClearFilter())
	assert.Len(t, j.Rows(), 3)
	assert.False(t, j.ClearFilter())
}

func TestTableHideColumnsKeepsOneVisible(t *testing.T) {
	j := NewJournalModel(journalFixture())
	hidden := 0
	for j.HideActiveColumn() {
		hidden++
	}
	assert.Equal(t, len(j.columns)-1, hidden)
	assert.Len(t, j.visibleColumnIndexes(), 1)

	j.ShowAllColumns()
	assert.Len(t, j.visibleColumnIndexes(), len(j.columns))
}

func TestTablePrefsRoundTrip(t *testing.T) {
	j := NewJournalModel(journalFixture())
	require.True(t, j.JumpToColumn(2))
	j.SortActiveColumn(false)
	j.NextColumn()
	require.True(t, j.HideActiveColumn())

	prefs := j.Prefs()
	restored := NewJournalModel(journalFixture())
	restored.ApplyPrefs(prefs)

	assert.Equal(t, prefs, restored.Prefs())
	assert.Equal(t, farmerNames(j.Rows()), farmerNames(restored.Rows()))
}

func TestTableCursorMovement(t *testing.T) {
	j := NewJournalModel(journalFixture())
	j.MoveUp()
	entry, ok := j.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(3), entry.ID)

	j.JumpToBottom()
	entry, _ = j.Selected()
	assert.Equal(t, int64(1), entry.ID)
	j.MoveDown()
	entry, _ = j.Selected()
	assert.Equal(t, int64(1), entry.ID)

	j.JumpToTop()
	entry, _ = j.Selected()
	assert.Equal(t, int64(3), entry.ID)

	empty := NewJournalModel(nil)
	_, ok = empty.Selected()
	assert.False(t, ok)
	assert.Contains(t, empty.View(80, 10), "No attendance recorded yet")
}
