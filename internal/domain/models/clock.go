package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	minutesPerDay = 24 * 60
	layoutDate    = "2006-01-02"
)

// TimeOfDay is a wall-clock time with minute precision, independent of any date.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time of day out of range: %02d:%02d", hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS"; seconds are checked, then dropped.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
	}
	return NewTimeOfDay(hour, minute)
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Before(o TimeOfDay) bool { return t < o }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Scan reads a MySQL TIME column.
func (t *TimeOfDay) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	case time.Time:
		*t = TimeOfDay(v.Hour()*60 + v.Minute())
		return nil
	case nil:
		return fmt.Errorf("time of day is NULL")
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

func (t *TimeOfDay) scanString(s string) error {
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

// CalendarDate is a civil date with no time or zone attached.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseCalendarDate(s string) (CalendarDate, error) {
	t, err := time.Parse(layoutDate, strings.TrimSpace(s))
	if err != nil {
		return CalendarDate{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

func (d CalendarDate) IsZero() bool { return d == CalendarDate{} }

func (d CalendarDate) AddDays(n int) CalendarDate {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// At combines the date with a time of day into an instant in loc.
func (d CalendarDate) At(t TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), 0, 0, loc)
}

func (d CalendarDate) Before(o CalendarDate) bool {
	return d.At(0, time.UTC).Before(o.At(0, time.UTC))
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CalendarDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *CalendarDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseCalendarDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Scan reads a MySQL DATE column; with parseTime=true the driver hands over a time.Time.
func (d *CalendarDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	case nil:
		return fmt.Errorf("calendar date is NULL")
	default:
		return fmt.Errorf("cannot scan %T into CalendarDate", src)
	}
}

func (d *CalendarDate) scanString(s string) error {
	if len(s) > len(layoutDate) {
		s = s[:len(layoutDate)]
	}
	v, err := ParseCalendarDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d CalendarDate) Value() (driver.Value, error) {
	return d.String(), nil
}
