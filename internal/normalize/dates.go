// Package normalize turns loosely formatted spreadsheet and form values
// (dates, yes/no answers, training and household lists) into canonical values.
package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ISODate is the canonical stored date layout.
const ISODate = "2006-01-02"

// ErrEmpty is returned when the input carries no value at all.
var ErrEmpty = errors.New("empty value")

// dayLayouts are tried in order. US month-first layouts precede day-first ones,
// so "03/04/2020" is March 4 while "25/12/1990" still parses as December 25.
var dayLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"1/2/06",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-06",
	"Monday, January 2, 2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
}

// monthLayouts only carry month precision and resolve to the first of the month.
var monthLayouts = []string{
	"2006-01",
	"2006-1",
	"2006/01",
	"01/2006",
	"1/2006",
	"January 2006",
	"January, 2006",
	"Jan 2006",
	"Jan-2006",
	"Jan-06",
}

// ParseDate parses a date input string and returns an ISO 8601 date (YYYY-MM-DD).
// Uses the current time as the reference point.
//
// Supported formats:
//   - ISO and slash dates: "2026-03-01", "2026/3/1", "03/01/2026", "25/12/1990"
//   - Written dates: "March 1, 2026", "1 Mar 2026"
//   - Timestamps: "2026-03-01T10:00:00Z" (date part)
//   - Month precision: "2026-03", "March 2026" (first of month)
//   - Excel serial day numbers: "46082"
//   - Bare years: "1990" (January 1)
//   - Keywords: "today", "yesterday", "tomorrow"
func ParseDate(input string) (string, error) {
	return ParseDateFrom(input, time.Now())
}

// ParseDateFrom parses a date input string relative to the given reference time.
// This variant enables deterministic testing with a fixed "now".
func ParseDateFrom(input string, now time.Time) (string, error) {
	t, err := parse(input, now)
	if err != nil {
		return "", err
	}
	return formatDate(t), nil
}

// ParseMonth parses a date at month precision and returns the first of that month.
// Full dates are accepted and truncated ("2024-01-15" -> "2024-01-01").
func ParseMonth(input string) (string, error) {
	return ParseMonthFrom(input, time.Now())
}

// ParseMonthFrom is ParseMonth with an explicit reference time.
func ParseMonthFrom(input string, now time.Time) (string, error) {
	t, err := parse(input, now)
	if err != nil {
		return "", err
	}
	return formatDate(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)), nil
}

// OptionalDate is ParseDate for optional fields: empty input yields "" with no error.
func OptionalDate(input string) (string, error) {
	s, err := ParseDate(input)
	if errors.Is(err, ErrEmpty) {
		return "", nil
	}
	return s, err
}

// OptionalMonth is ParseMonth for optional fields.
func OptionalMonth(input string) (string, error) {
	s, err := ParseMonth(input)
	if errors.Is(err, ErrEmpty) {
		return "", nil
	}
	return s, err
}

func parse(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, ErrEmpty
	}

	switch strings.ToLower(input) {
	case "today":
		return now, nil
	case "yesterday":
		return now.AddDate(0, 0, -1), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1), nil
	}

	if t, ok := parseNumeric(input); ok {
		return t, nil
	}

	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, input); err == nil {
			return t, nil
		}
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, input); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", input)
}

// parseNumeric handles bare years and Excel serial day numbers.
func parseNumeric(input string) (time.Time, bool) {
	f, err := strconv.ParseFloat(input, 64)
	if err != nil || f <= 0 {
		return time.Time{}, false
	}

	if f == float64(int(f)) && f >= 1900 && f <= 2100 {
		return time.Date(int(f), time.January, 1, 0, 0, 0, 0, time.UTC), true
	}

	// Serials below 10000 land before 1928; treat them as noise rather than dates.
	if f < 10000 || f > 2958465 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func formatDate(t time.Time) string {
	return t.Format(ISODate)
}
