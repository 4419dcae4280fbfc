package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateTimeLayout is the canonical layout datetimes are stored with.
// SQLite's strftime understands it directly.
const DateTimeLayout = "2006-01-02 15:04:05"

// datetimePattern maps a shape of input to the layouts that may parse it.
type datetimePattern struct {
	pattern *regexp.Regexp
	formats []string
}

// Supported datetime patterns, tried in order.
var datetimePatterns = []datetimePattern{
	// US month/day, as exported by most spreadsheet tools
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}$`),
		[]string{"1/2/2006 15:04", "01/02/2006 15:04"},
	},
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}:\d{2}$`),
		[]string{"1/2/2006 15:04:05", "01/02/2006 15:04:05"},
	},
	// ISO8601 date and time with space
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`),
		[]string{DateTimeLayout},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`),
		[]string{"2006-01-02 15:04"},
	},
	// ISO8601 without timezone
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}$`),
		[]string{"2006-01-02T15:04:05"},
	},
	// ISO8601 with timezone
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`),
		[]string{time.RFC3339, time.RFC3339Nano},
	},
	// ISO8601 date only
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		[]string{"2006-01-02"},
	},
}

// DefaultDateLayouts returns every layout of the built-in pattern table.
func DefaultDateLayouts() []string {
	var layouts []string
	for _, dp := range datetimePatterns {
		layouts = append(layouts, dp.formats...)
	}
	return layouts
}

// IsDatetime checks if a string value matches one of the built-in datetime shapes.
func IsDatetime(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	for _, dp := range datetimePatterns {
		if dp.pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// ParseTimestamp parses value with the built-in pattern table.
// The result is in UTC; values carrying an offset are converted.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, dp := range datetimePatterns {
		if !dp.pattern.MatchString(value) {
			continue
		}
		for _, f := range dp.formats {
			if t, err := time.Parse(f, value); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDatetime, value)
}

// ParseTimestampWithLayouts parses value with the given layouts in order.
// An empty layout list falls back to ParseTimestamp.
func ParseTimestampWithLayouts(value string, layouts []string) (time.Time, error) {
	if len(layouts) == 0 {
		return ParseTimestamp(value)
	}
	value = strings.TrimSpace(value)
	for _, f := range layouts {
		if t, err := time.Parse(f, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDatetime, value)
}

// FormatTimestamp formats t in DateTimeLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}
