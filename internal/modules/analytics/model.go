// README: Report shapes produced by the operations analytics engine.
package analytics

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"shuttle/internal/types"
)

var ErrInvalidFilter = errors.New("invalid report filter")

type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

func (b Bucket) Valid() bool {
	return b == BucketDay || b == BucketWeek || b == BucketMonth
}

type RevenueFilter struct {
	From   time.Time
	To     time.Time
	Bucket Bucket
}

type RevenuePoint struct {
	Key      string          `json:"key"`
	Start    time.Time       `json:"start"`
	Bookings int             `json:"bookings"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type RevenueReport struct {
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Bucket  Bucket          `json:"bucket"`
	Points  []RevenuePoint  `json:"points"`
	Total   decimal.Decimal `json:"total"`
	Skipped int             `json:"skipped"`
}

type Band string

const (
	BandFull   Band = "full"
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// BandFor classifies a utilization percentage.
func BandFor(percent float64) Band {
	switch {
	case percent >= 100:
		return BandFull
	case percent >= 80:
		return BandHigh
	case percent >= 50:
		return BandMedium
	default:
		return BandLow
	}
}

type RouteUtilization struct {
	RouteID     types.ID `json:"route_id"`
	RouteName   string   `json:"route_name"`
	Capacity    int      `json:"capacity"`
	Booked      int      `json:"booked"`
	Available   int      `json:"available"`
	Utilization float64  `json:"utilization"`
	Band        Band     `json:"band"`
}

type UtilizationReport struct {
	Routes []RouteUtilization `json:"routes"`
}

type DriverFilter struct {
	From     time.Time
	To       time.Time
	DriverID types.ID
}

// DriverMetric summarises one driver's telemetry. DailyPickups counts every
// recorded pickup in the window; OnTimeRate is taken over ScheduledPickups, the
// ones that resolved to a scheduled time. The difference is reported in Skipped.
type DriverMetric struct {
	DriverID             types.ID `json:"driver_id"`
	DriverName           string   `json:"driver_name"`
	AssignedRoutes       int      `json:"assigned_routes"`
	Bookings             int      `json:"bookings"`
	RouteCompletions     int      `json:"route_completions"`
	DailyPickups         int      `json:"daily_pickups"`
	ScheduledPickups     int      `json:"scheduled_pickups"`
	OnTimeRate           float64  `json:"on_time_rate"`
	AvgCompletionMinutes float64  `json:"avg_completion_minutes"`
	Skipped              int      `json:"skipped"`
}

type DriverReport struct {
	From    time.Time      `json:"from"`
	To      time.Time      `json:"to"`
	Drivers []DriverMetric `json:"drivers"`
	Skipped int            `json:"skipped"`
}

type RouteMetric struct {
	RouteID        types.ID `json:"route_id"`
	RouteName      string   `json:"route_name"`
	Utilization    float64  `json:"utilization"`
	PickupPoints   int      `json:"pickup_points"`
	BookingsPerDay float64  `json:"bookings_per_day"`
	PickupsPerDay  float64  `json:"pickups_per_day"`
}

type RouteReport struct {
	From   time.Time     `json:"from"`
	To     time.Time     `json:"to"`
	Routes []RouteMetric `json:"routes"`
}

// Snapshot bundles the reports summarized by the operations digest.
type Snapshot struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Revenue     *RevenueReport     `json:"revenue"`
	Utilization *UtilizationReport `json:"utilization"`
	Routes      *RouteReport       `json:"routes"`
}
