package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

// Date is a calendar day in UTC. The zero value means "absent".
type Date struct {
	time.Time
}

// Month identifies a calendar month of a year.
type Month struct {
	Year  int
	Month time.Month
}

// NewDate creates a Date from year, month, day. Out of range days roll into
// the following month the way time.Date normalizes them (April 31 is May 1).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts "2006-01-02" and RFC 3339 timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is zero (optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(time.RFC3339))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthOf returns the month identity of d.
func MonthOf(d Date) Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

// NewMonth builds a normalized month identity; month 13 is January next year.
func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "2006-01".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// Add shifts the month by n, wrapping the year.
func (m Month) Add(n int) Month {
	return NewMonth(m.Year, m.Month+time.Month(n))
}

// Contains reports whether d falls in this month.
func (m Month) Contains(d Date) bool {
	return !d.IsZero() && d.Year() == m.Year && d.Time.Month() == m.Month
}

// First returns the first day of the month.
func (m Month) First() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// SameMonth reports whether a and b fall in the same calendar month and year.
func SameMonth(a, b Date) bool {
	return MonthOf(a).Contains(b)
}

// AddMonths shifts the month field of d by n keeping the day of month.
// Day overflow is normalized by the calendar: January 31 plus one month is
// March 2 (or 3). This is accepted, not corrected.
func AddMonths(d Date, n int) Date {
	return NewDate(d.Year(), d.Month()+n, d.Day())
}

// Days returns the number of days in m.
func (m Month) Days() int {
	return m.Add(1).First().AddDate(0, 0, -1).Day()
}

// ClampDay limits day to the last day of m.
func (m Month) ClampDay(day int) int {
	return min(day, m.Days())
}

// Transpose moves the day of month of d into month m. A day m does not have
// becomes its last day, so the result always falls inside m.
func Transpose(d Date, m Month) Date {
	return NewDate(m.Year, int(m.Month), m.ClampDay(d.Day()))
}
