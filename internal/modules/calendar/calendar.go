// README: Pure calendar value: service-day classification and date arithmetic over loaded events.
package calendar

import (
	"time"

	"shuttle/internal/types"
)

// Calendar answers service-day questions for a fixed set of events. It never fails:
// dates without a blocking event are service days.
type Calendar struct {
	byDate map[time.Time]Event
}

func New(events ...Event) *Calendar {
	c := &Calendar{byDate: make(map[time.Time]Event, len(events))}
	for _, e := range events {
		if !e.Blocks() {
			continue
		}
		d := types.Day(e.Date)
		if _, dup := c.byDate[d]; dup {
			continue
		}
		e.Date = d
		c.byDate[d] = e
	}
	return c
}

func (c *Calendar) IsServiceDay(date time.Time) bool {
	_, blocked := c.byDate[types.Day(date)]
	return !blocked
}

// EventOn returns the event that blocks date, if any.
func (c *Calendar) EventOn(date time.Time) (Event, bool) {
	e, ok := c.byDate[types.Day(date)]
	return e, ok
}

// NextServiceDay returns date itself when it is a service day, otherwise the first service
// day within the following 30 days. If none is found the original date is returned.
func (c *Calendar) NextServiceDay(date time.Time) time.Time {
	d := types.Day(date)
	for i := 0; i <= nextServiceDayScan; i++ {
		candidate := d.AddDate(0, 0, i)
		if c.IsServiceDay(candidate) {
			return candidate
		}
	}
	return d
}

// CountServiceDays counts service days in [start, end], inclusive.
func (c *Calendar) CountServiceDays(start, end time.Time) int {
	s, e := types.Day(start), types.Day(end)
	if e.Before(s) {
		return 0
	}
	n := 0
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		if c.IsServiceDay(d) {
			n++
		}
	}
	return n
}

// ExtendEndDate adds the plan duration to start, then pushes the end out by the number of
// non-service days in [start, naiveEnd]. The added tail is not re-scanned, so the result can
// itself fall on a non-service day.
func (c *Calendar) ExtendEndDate(start time.Time, plan types.PlanType) time.Time {
	s := types.Day(start)
	naive := NaiveEndDate(s, plan)
	total := types.DaysBetween(s, naive) + 1
	skipped := total - c.CountServiceDays(s, naive)
	return naive.AddDate(0, 0, skipped)
}

// NaiveEndDate is start plus the fixed plan duration. Unknown plans last a week.
func NaiveEndDate(start time.Time, plan types.PlanType) time.Time {
	s := types.Day(start)
	switch plan {
	case types.PlanMonthly:
		return s.AddDate(0, 1, 0)
	case types.PlanAcademicTerm:
		return s.AddDate(0, 6, 0)
	case types.PlanAnnual:
		return s.AddDate(1, 0, 0)
	default:
		return s.AddDate(0, 0, 7)
	}
}
