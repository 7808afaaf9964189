// Package viewmodel derives display shapes from server entities. Nothing
// here fails: values that cannot be formatted are reported as absent.
package viewmodel

import (
	"fmt"
	"math"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts the date and timestamp shapes the API produces.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders s as "Jan 2, 2006".
func FormatDate(s string) (string, bool) {
	t, ok := ParseTime(s)
	if !ok {
		return "", false
	}
	return t.Format("Jan 2, 2006"), true
}

// FormatDateTime renders s as "Jan 2, 2006 3:04 PM".
func FormatDateTime(s string) (string, bool) {
	t, ok := ParseTime(s)
	if !ok {
		return "", false
	}
	return t.Format("Jan 2, 2006 3:04 PM"), true
}

// FormatPercent renders a 0-100 rate with one decimal.
func FormatPercent(rate float64) string {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = 0
	}
	return fmt.Sprintf("%.1f%%", rate)
}

// ProgressBar draws a fixed-width bar for a 0-100 rate.
func ProgressBar(rate float64, width int) string {
	if width <= 0 {
		return ""
	}
	if math.IsNaN(rate) || rate < 0 {
		rate = 0
	}
	if rate > 100 {
		rate = 100
	}
	filled := int(math.Round(rate / 100 * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
