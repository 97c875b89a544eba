package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "Unknown"},
		{"2024-03-05", "Mar 05, 2024"},
		{"2024-03-05T10:00:00.000Z", "Mar 05, 2024"},
		{"next week", "next week"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDate(tt.in), tt.in)
	}
}

func TestFormatDateRange(t *testing.T) {
	assert.Equal(t, "—", FormatDateRange("", ""))
	assert.Equal(t, "Mar 05, 2024", FormatDateRange("2024-03-05", ""))
	assert.Equal(t, "Mar 05, 2024 → Mar 06, 2024", FormatDateRange("2024-03-05", "2024-03-06"))
}

func TestFormatTimeHuman(t *testing.T) {
	assert.Equal(t, "Unknown", FormatTimeHuman(time.Time{}))
	now := time.Now()
	assert.Equal(t, "Today "+now.Format("15:04"), FormatTimeHuman(now))
	assert.Equal(t, "Jan 15 '20", FormatTimeHuman(time.Date(2020, 1, 15, 12, 0, 0, 0, time.Local)))
}

func TestFormatCountAndBytes(t *testing.T) {
	assert.Equal(t, "1 photo", FormatCount(1, "photo"))
	assert.Equal(t, "1,200 photos", FormatCount(1200, "photo"))
	assert.Equal(t, "0 photos", FormatCount(0, "photo"))
	assert.Equal(t, "2.0 KiB", FormatBytes(2048))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "Mary Ka...", TruncateString("Mary Kamau Wanjiru", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
}
