// README: Route completion and daily pickup telemetry consumed by analytics.
package completion

import (
	"errors"
	"time"

	"shuttle/internal/types"
)

type Period string

const (
	PeriodAM Period = "am"
	PeriodPM Period = "pm"
)

func (p Period) Valid() bool { return p == PeriodAM || p == PeriodPM }

var ErrNotFound = errors.New("completion record not found")

// Kind selects which telemetry table Annotate writes to.
type Kind string

const (
	KindRouteCompletion Kind = "route_completion"
	KindDailyPickup     Kind = "daily_pickup"
)

func (k Kind) Valid() bool { return k == KindRouteCompletion || k == KindDailyPickup }

type RouteCompletion struct {
	ID          int64
	RouteID     types.ID
	DriverID    types.ID
	Date        time.Time
	Period      Period
	CompletedAt *time.Time
	Notes       string
}

type DailyPickup struct {
	ID          int64
	BookingID   types.ID
	RouteID     types.ID
	DriverID    types.ID
	Date        time.Time
	Period      Period
	CompletedAt *time.Time
	Notes       string
}

// Filter narrows telemetry reads. Zero values mean no constraint; From and To are inclusive civil dates.
type Filter struct {
	DriverID types.ID
	RouteID  types.ID
	From     time.Time
	To       time.Time
}

// Match reports whether a record with the given keys falls inside the filter.
func (f Filter) Match(driverID, routeID types.ID, date time.Time) bool {
	if f.DriverID != "" && f.DriverID != driverID {
		return false
	}
	if f.RouteID != "" && f.RouteID != routeID {
		return false
	}
	d := types.Day(date)
	if !f.From.IsZero() && d.Before(types.Day(f.From)) {
		return false
	}
	if !f.To.IsZero() && d.After(types.Day(f.To)) {
		return false
	}
	return true
}
