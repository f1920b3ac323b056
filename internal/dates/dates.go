// Package dates provides a calendar-date value type and normalization of
// loosely formatted scraped date strings into canonical form.
package dates

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Date represents a calendar date with no time-of-day or timezone component.
// Deadlines are calendar dates, not instants; two Dates are equal iff their
// year, month and day are equal.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New creates a Date from year, month and day
func New(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// FromTime converts a time.Time to a Date using the time's own location
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar date in UTC
func Today() Date {
	return FromTime(time.Now().UTC())
}

// IsZero reports whether the date is the zero value
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns the date at midnight UTC
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Equal reports whether two dates are the same calendar date
func (d Date) Equal(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

// Before reports whether d is earlier than other
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// String returns the canonical YYYY-MM-DD form
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON encodes the date as a "YYYY-MM-DD" string
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = FromTime(t)
	return nil
}

// Value implements driver.Valuer so dates persist as SQL DATE columns
func (d Date) Value() (driver.Value, error) {
	return d.Time(), nil
}

// Scan implements sql.Scanner for reading SQL DATE columns
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = FromTime(v)
		return nil
	case string:
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return fmt.Errorf("cannot scan %q into Date: %w", v, err)
		}
		*d = FromTime(t)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// ordinalSuffix strips "1st", "22nd", "3rd", "15th" down to the bare day number
var ordinalSuffix = regexp.MustCompile(`\b(\d{1,2})(st|nd|rd|th)\b`)

// normalizeLayouts are tried in order. Earlier entries are the formats the
// scraper emits most often; the rest cover natural-language variants seen
// on college deadline pages.
var normalizeLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 06",
	"Jan 2, 06",
	"1/2/06",
}

// Normalize converts a loosely formatted date string into a canonical Date.
// It is deterministic and timezone independent. Unparseable input returns
// ok=false; it never panics.
func Normalize(raw string) (Date, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}, false
	}

	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = strings.Join(strings.Fields(s), " ")
	s = titleCaseWords(s)

	for _, layout := range normalizeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		d := FromTime(t)
		// Reject parses that landed on implausible years (e.g. bare
		// month-day input defaulting to year 0).
		if d.Year < 1900 || d.Year > 2200 {
			return Date{}, false
		}
		return d, true
	}

	return Date{}, false
}

// titleCaseWords uppercases the first letter of each alphabetic token so
// time.Parse month-name layouts match case-insensitively.
func titleCaseWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		r := w[0]
		if r >= 'a' && r <= 'z' {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		} else if r >= 'A' && r <= 'Z' {
			words[i] = w[:1] + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}
