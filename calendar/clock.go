package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage format for session dates
const DateLayout = "2006-01-02"

// Clock is a time of day in whole minutes past midnight
type Clock int

// ParseClock accepts "HH:MM" or "HH:MM:SS"; seconds are dropped
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if len(s) == 5 {
		s += ":00"
	}
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// MustClock is ParseClock for constants
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String formats c as "15:04"
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Minutes returns c as minutes past midnight
func (c Clock) Minutes() int {
	return int(c)
}

// ParseDate parses a "2006-01-02" date as midnight in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// At combines a stored date and clock into an instant in loc
func At(date string, c Clock, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(c) * time.Minute), nil
}

// DaysBetween counts calendar days from a to b in loc. It is negative when b is before a.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
