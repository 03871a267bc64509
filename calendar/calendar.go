// Package calendar computes slot availability for hearing sessions. Mediation,
// conciliation and arbitration share one panel, so they share one daily pool and one
// spacing rule. Nothing here touches storage; callers pass the live bookings for a date.
package calendar

import (
	"sort"

	"github.com/linesmerrill/dispute-case-api/apperr"
	"github.com/linesmerrill/dispute-case-api/models"
)

// Rules configures the daily pool
type Rules struct {
	// Capacity is the number of sessions a single day can hold across all stages
	Capacity int
	// MinSpacing is the minimum gap in minutes between two sessions on the same day
	MinSpacing int
	// Open, Close and Step bound the candidate times offered as free slots
	Open  Clock
	Close Clock
	Step  int
}

// DefaultRules are four sessions a day, an hour apart, offered on the hour 08:00-16:00
func DefaultRules() Rules {
	return Rules{
		Capacity:   4,
		MinSpacing: 60,
		Open:       MustClock("08:00"),
		Close:      MustClock("17:00"),
		Step:       60,
	}
}

// Availability is the state of one day's pool
type Availability struct {
	Date        string   `json:"date"`
	BookedTimes []string `json:"bookedTimes"`
	UsedCount   int      `json:"usedCount"`
	Capacity    int      `json:"capacity"`
	IsFull      bool     `json:"isFull"`
	FreeTimes   []string `json:"freeTimes"`
}

// Compute returns the availability of date given its live bookings. Bookings held by
// the sessions in exclude are left out, so a session being moved does not compete with
// its own current slot.
func (r Rules) Compute(date string, bookings []models.Booking, exclude ...string) Availability {
	live := without(bookings, exclude)
	minutes := make([]int, 0, len(live))
	for _, b := range live {
		minutes = append(minutes, b.Minute)
	}
	sort.Ints(minutes)

	av := Availability{
		Date:        date,
		BookedTimes: make([]string, 0, len(minutes)),
		UsedCount:   len(live),
		Capacity:    r.Capacity,
		IsFull:      len(live) >= r.Capacity,
		FreeTimes:   []string{},
	}
	for _, m := range minutes {
		av.BookedTimes = append(av.BookedTimes, Clock(m).String())
	}
	if av.IsFull || r.Step <= 0 {
		return av
	}
	for c := r.Open; c < r.Close; c += Clock(r.Step) {
		if r.check(date, c, live) == nil {
			av.FreeTimes = append(av.FreeTimes, c.String())
		}
	}
	return av
}

// Check validates a request to hold date at the given time. The incoming request always
// loses: existing bookings are never displaced.
func (r Rules) Check(date string, at Clock, bookings []models.Booking, exclude ...string) error {
	return r.check(date, at, without(bookings, exclude))
}

func (r Rules) check(date string, at Clock, live []models.Booking) error {
	if len(live) >= r.Capacity {
		return apperr.New(apperr.Capacity, "%s is fully booked: %d of %d sessions", date, len(live), r.Capacity)
	}
	for _, b := range live {
		if b.Minute == int(at) {
			return apperr.New(apperr.Conflict, "%s at %s is already booked", date, at)
		}
	}
	for _, b := range live {
		if abs(b.Minute-int(at)) < r.MinSpacing {
			return apperr.New(apperr.Spacing, "%s at %s is within %d minutes of the session at %s",
				date, at, r.MinSpacing, Clock(b.Minute))
		}
	}
	return nil
}

func without(bookings []models.Booking, exclude []string) []models.Booking {
	if len(exclude) == 0 {
		return bookings
	}
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	out := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if !skip[b.SessionID] {
			out = append(out, b)
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
