package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time of day.
type Date struct {
	time.Time
}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate reads YYYY-MM-DD, and HTTP dates as some backends serialize them.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	for _, layout := range []string{time.RFC3339, http.TimeFormat, time.RFC1123Z, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Display formats as dd/mm/yyyy.
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

// AddMonths moves the date n months keeping the day, clamped to the last day
// of the target month.
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := d.Day()
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// WithDay returns the same month on another day, clamped to the month end.
func (d Date) WithDay(day int) Date {
	if last := DaysIn(d.Year(), d.Month()); day > last {
		day = last
	}
	return NewDate(d.Year(), int(d.Month()), day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Timestamp is the moment an item was paid or received.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	http.TimeFormat,
	time.RFC1123Z,
	DateLayout,
}

func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Period is a calendar month.
type Period struct {
	Year  int
	Month int
}

func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// CurrentPeriod returns the current month in loc.
func CurrentPeriod(loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	return PeriodOf(time.Now().In(loc))
}

func (p Period) Validate() error {
	if p.Year < 1900 || p.Year > 9999 {
		return fmt.Errorf("invalid year %d", p.Year)
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("invalid month %d", p.Month)
	}
	return nil
}

// Key identifies the period in caches, e.g. "2025-03".
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// ParsePeriodKey reads keys produced by Key.
func ParsePeriodKey(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q", s)
	}
	return PeriodOf(t), nil
}

// MonthValue is the two-digit month used by the date selector.
func (p Period) MonthValue() string {
	return fmt.Sprintf("%02d", p.Month)
}

func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && int(d.Month()) == p.Month
}

// Start returns the first day of the period.
func (p Period) Start() Date {
	return NewDate(p.Year, p.Month, 1)
}

// YearRange is the span of years that have items.
type YearRange struct {
	Min int `json:"min_year"`
	Max int `json:"max_year"`
}

// Normalize fills an empty range with the current year and orders the bounds.
func (r YearRange) Normalize(now time.Time) YearRange {
	if r.Min == 0 && r.Max == 0 {
		return YearRange{Min: now.Year(), Max: now.Year()}
	}
	if r.Min == 0 {
		r.Min = r.Max
	}
	if r.Max == 0 {
		r.Max = r.Min
	}
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}
