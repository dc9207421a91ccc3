// README: Route, pickup point and driver records read by the booking engine.
package fleet

import (
	"errors"
	"sort"
	"time"

	"shuttle/internal/types"
)

var (
	ErrRouteNotFound  = errors.New("route not found")
	ErrDriverNotFound = errors.New("driver not found")
)

const clockLayout = "15:04"

type Route struct {
	ID           types.ID
	Name         string
	Capacity     int
	Active       bool
	VehicleID    types.ID
	VehicleType  string
	DriverID     *types.ID
	PickupPoints []PickupPoint
}

// PickupPoint times are time-of-day strings ("15:04"), empty when not scheduled.
type PickupPoint struct {
	ID          types.ID
	Name        string
	Sequence    int
	PickupTime  string
	DropoffTime string
}

type Driver struct {
	ID   types.ID
	Name string
}

// Point returns the pickup point with id, if it belongs to the route.
func (r Route) Point(id types.ID) (PickupPoint, bool) {
	for _, p := range r.PickupPoints {
		if p.ID == id {
			return p, true
		}
	}
	return PickupPoint{}, false
}

// FirstPoint is the pickup point with the lowest sequence.
func (r Route) FirstPoint() (PickupPoint, bool) {
	if len(r.PickupPoints) == 0 {
		return PickupPoint{}, false
	}
	points := append([]PickupPoint(nil), r.PickupPoints...)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Sequence < points[j].Sequence })
	return points[0], true
}

// ScheduledAt places a "15:04" clock value on the civil date of day in loc (UTC when nil).
// ok is false when clock is empty or malformed.
func ScheduledAt(day time.Time, clock string, loc *time.Location) (time.Time, bool) {
	if clock == "" {
		return time.Time{}, false
	}
	c, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, loc), true
}
