package lifecycle

import (
	"time"

	"github.com/linesmerrill/dispute-case-api/calendar"
	"github.com/linesmerrill/dispute-case-api/models"
)

// Light is the traffic light shown next to a case's elapsed days
type Light string

// Traffic lights
const (
	Green  Light = "green"
	Yellow Light = "yellow"
	Red    Light = "red"
)

// LightFor buckets elapsed days: up to 6 is green, up to 12 yellow, beyond that red
func LightFor(days int) Light {
	switch {
	case days <= 6:
		return Green
	case days <= 12:
		return Yellow
	default:
		return Red
	}
}

// DaysElapsed counts whole days from the first date a session was ever scheduled for to
// now, clamped to [0, limit]. The first date comes from the reschedule history, deleted
// records included; a session that was never rescheduled or recorded uses its own date.
// It is never stored.
func DaysElapsed(s models.Session, history []models.RescheduleRecord, now time.Time, loc *time.Location, limit int) int {
	first := ""
	for _, r := range history {
		if first == "" || r.Date < first {
			first = r.Date
		}
	}
	if first == "" {
		first = s.ScheduledDate
	}

	start, err := calendar.ParseDate(first, loc)
	if err != nil {
		return 0
	}
	days := calendar.DaysBetween(start, now, loc)
	if days < 0 {
		return 0
	}
	if days > limit {
		return limit
	}
	return days
}
