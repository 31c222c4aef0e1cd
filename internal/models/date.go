package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used in stored records.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time component.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", raw)
	}
	return Date{t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts YYYY-MM-DD or an RFC3339 timestamp.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*d = Date{}
		return nil
	}
	if parsed, err := ParseDate(raw); err == nil {
		*d = parsed
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q", raw)
	}
	y, m, day := t.Date()
	*d = NewDate(y, m, day)
	return nil
}

// Within reports whether d falls in the closed interval [from, to]. Zero bounds are open.
func (d Date) Within(from, to Date) bool {
	if !from.IsZero() && d.Before(from.Time) {
		return false
	}
	if !to.IsZero() && d.After(to.Time) {
		return false
	}
	return true
}

// MonthRange returns the first and last day of the month containing d.
func MonthRange(d Date) (Date, Date) {
	first := NewDate(d.Year(), d.Month(), 1)
	last := Date{first.AddDate(0, 1, -1)}
	return first, last
}

// ParseMonth parses a YYYY-MM period into its first and last day.
func ParseMonth(raw string) (Date, Date, error) {
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return Date{}, Date{}, fmt.Errorf("invalid month %q", raw)
	}
	first, last := MonthRange(Date{t})
	return first, last, nil
}
