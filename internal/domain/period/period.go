// Package period provides the calendar-month key shared by every data source.
package period

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// KeyLayout is the normalized textual form of a YearMonth ("202201").
const KeyLayout = "200601"

// ErrInvalidPeriod is returned when a year/month pair cannot be normalized.
var ErrInvalidPeriod = errors.New("invalid period")

// YearMonth identifies a calendar month. The zero value is invalid.
type YearMonth struct {
	Year  int
	Month time.Month
}

// New builds a YearMonth, rejecting months outside 1..12.
func New(year int, month time.Month) (YearMonth, error) {
	if month < time.January || month > time.December || year <= 0 {
		return YearMonth{}, fmt.Errorf("%w: %d-%02d", ErrInvalidPeriod, year, int(month))
	}
	return YearMonth{Year: year, Month: month}, nil
}

// FromTime returns the month containing t.
func FromTime(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// FromParts concatenates a year and a zero-padded month and reparses the result
// as a date, so "2022"+"1" and "2022"+"01" both become 202201.
func FromParts(year, month string) (YearMonth, error) {
	year = strings.TrimSpace(year)
	month = strings.TrimSpace(month)
	if len(month) == 1 {
		month = "0" + month
	}
	return Parse(year + month)
}

// Parse reads a key in KeyLayout form.
func Parse(key string) (YearMonth, error) {
	t, err := time.Parse(KeyLayout, strings.TrimSpace(key))
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w %q: %v", ErrInvalidPeriod, key, err)
	}
	return FromTime(t), nil
}

// String returns the normalized key, e.g. "202201".
func (p YearMonth) String() string {
	return fmt.Sprintf("%04d%02d", p.Year, int(p.Month))
}

// YearString returns the four-digit year.
func (p YearMonth) YearString() string {
	return fmt.Sprintf("%04d", p.Year)
}

// MonthString returns the zero-padded month ("01".."12").
func (p YearMonth) MonthString() string {
	return fmt.Sprintf("%02d", int(p.Month))
}

// IsZero reports whether p is the zero value.
func (p YearMonth) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Before reports whether p is an earlier month than o.
func (p YearMonth) Before(o YearMonth) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Start returns the first instant of the month in UTC.
func (p YearMonth) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Sort orders months ascending in place.
func Sort(ps []YearMonth) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Before(ps[j]) })
}
