package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatDate formats an ISO date or timestamp string for display.
func FormatDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return "Unknown"
	}
	t, ok := parseDate(date)
	if !ok {
		return date
	}
	return t.Format("Jan 02, 2006")
}

// FormatDateRange formats "start → end", collapsing missing ends.
func FormatDateRange(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		return "—"
	case end == "":
		return FormatDate(start)
	case start == "":
		return "until " + FormatDate(end)
	default:
		return FormatDate(start) + " → " + FormatDate(end)
	}
}

// FormatTimeHuman formats a timestamp with humanized relative display.
// "Today 14:05", "Yesterday", "3 days ago", "Jan 15", "Jan 15 '24"
func FormatTimeHuman(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	t = t.Local()
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
	days := int(today.Sub(day).Hours() / 24)

	switch {
	case days == 0:
		return "Today " + t.Format("15:04")
	case days == 1:
		return "Yesterday"
	case days > 1 && days < 7:
		return humanize.Time(t)
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("Jan 02 '06")
	}
}

// FormatBytes formats a byte count, e.g. "1.2 MiB".
func FormatBytes(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// FormatCount formats a count with its noun, pluralized.
func FormatCount(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), noun)
}

// Placeholder returns s, or "—" when s is blank.
func Placeholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

// TruncateString truncates a string to maxLen and adds "..." if needed.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
