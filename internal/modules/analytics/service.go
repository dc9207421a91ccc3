// README: Analytics service folds booking, route and telemetry history into operational reports.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"shuttle/internal/modules/booking"
	"shuttle/internal/modules/completion"
	"shuttle/internal/modules/fleet"
	"shuttle/internal/modules/pricing"
	"shuttle/internal/types"
)

const (
	onTimeTolerance = 15 * time.Minute
	routeWindowDays = 30
	fanOutLimit     = 8
)

var errRouteMissing = errors.New("route not found")

type BookingReader interface {
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]booking.Booking, error)
	ListByIDs(ctx context.Context, ids []types.ID) ([]booking.Booking, error)
	SeatHoldersByRoute(ctx context.Context) (map[types.ID]int, error)
}

type RouteReader interface {
	ListAll(ctx context.Context) ([]fleet.Route, error)
	ListActive(ctx context.Context) ([]fleet.Route, error)
	ListDrivers(ctx context.Context) ([]fleet.Driver, error)
	GetDriver(ctx context.Context, id types.ID) (*fleet.Driver, error)
}

type CompletionReader interface {
	RouteCompletions(ctx context.Context, f completion.Filter) ([]completion.RouteCompletion, error)
	DailyPickups(ctx context.Context, f completion.Filter) ([]completion.DailyPickup, error)
}

type Pricer interface {
	Resolve(ctx context.Context, plan types.PlanType, target pricing.Target) (decimal.Decimal, error)
}

type Service struct {
	bookings    BookingReader
	routes      RouteReader
	completions CompletionReader
	pricer      Pricer
	logger      *slog.Logger
	loc         *time.Location
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithLocation sets the zone that route schedule clocks are expressed in.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

func NewService(bookings BookingReader, routes RouteReader, completions CompletionReader, pricer Pricer, opts ...Option) *Service {
	s := &Service{
		bookings:    bookings,
		routes:      routes,
		completions: completions,
		pricer:      pricer,
		logger:      slog.New(slog.DiscardHandler),
		loc:         time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var revenueStatuses = map[booking.Status]bool{
	booking.StatusActive:           true,
	booking.StatusPending:          true,
	booking.StatusAwaitingApproval: true,
}

func (s *Service) RevenueTrend(ctx context.Context, f RevenueFilter) (*RevenueReport, error) {
	if f.Bucket == "" {
		f.Bucket = BucketDay
	}
	from, to := types.Day(f.From), types.Day(f.To)
	if !f.Bucket.Valid() || f.From.IsZero() || f.To.IsZero() || to.Before(from) {
		return nil, fmt.Errorf("%w: need from <= to and bucket day, week or month", ErrInvalidFilter)
	}

	var (
		bookings []booking.Booking
		routes   map[types.ID]fleet.Route
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		bookings, err = s.bookings.ListCreatedBetween(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		routes, err = s.routeIndex(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &RevenueReport{From: from, To: to, Bucket: f.Bucket, Total: decimal.Zero}
	index := map[string]int{}
	for _, start := range bucketStarts(from, to, f.Bucket) {
		key := bucketKey(start, f.Bucket)
		index[key] = len(report.Points)
		report.Points = append(report.Points, RevenuePoint{Key: key, Start: start, Revenue: decimal.Zero})
	}

	type priced struct {
		bucket int
		amount decimal.Decimal
	}
	prices := newPriceMemo(s.pricer)
	var results []Result[priced]
	for _, b := range bookings {
		if !revenueStatuses[b.Status] {
			continue
		}
		i, inRange := index[bucketKey(bucketStart(b.CreatedAt.In(time.UTC), f.Bucket), f.Bucket)]
		if !inRange {
			continue
		}
		report.Points[i].Bookings++
		route, found := routes[b.RouteID]
		if !found {
			results = append(results, failed[priced](string(b.ID), errRouteMissing))
			continue
		}
		amount, err := prices.resolve(ctx, b.PlanType, route)
		if err != nil {
			results = append(results, failed[priced](string(b.ID), err))
			continue
		}
		results = append(results, ok(string(b.ID), priced{bucket: i, amount: amount}))
	}
	report.Skipped = fold(ctx, s.logger, "revenue_trend", results, func(p priced) {
		report.Points[p.bucket].Revenue = report.Points[p.bucket].Revenue.Add(p.amount)
		report.Total = report.Total.Add(p.amount)
	})
	return report, nil
}

func (s *Service) CapacityUtilization(ctx context.Context) (*UtilizationReport, error) {
	var (
		routes  []fleet.Route
		holders map[types.ID]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		routes, err = s.routes.ListActive(gctx)
		return err
	})
	g.Go(func() (err error) {
		holders, err = s.bookings.SeatHoldersByRoute(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &UtilizationReport{Routes: make([]RouteUtilization, 0, len(routes))}
	for _, r := range routes {
		booked := holders[r.ID]
		pct := percent(booked, r.Capacity)
		report.Routes = append(report.Routes, RouteUtilization{
			RouteID:     r.ID,
			RouteName:   r.Name,
			Capacity:    r.Capacity,
			Booked:      booked,
			Available:   max(0, r.Capacity-booked),
			Utilization: pct,
			Band:        BandFor(pct),
		})
	}
	return report, nil
}

func (s *Service) DriverMetrics(ctx context.Context, f DriverFilter) (*DriverReport, error) {
	from, to := types.Day(f.From), types.Day(f.To)
	if f.From.IsZero() || f.To.IsZero() || to.Before(from) {
		return nil, fmt.Errorf("%w: need from <= to", ErrInvalidFilter)
	}

	var (
		drivers  []fleet.Driver
		routes   map[types.ID]fleet.Route
		bookings []booking.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if f.DriverID == "" {
			var err error
			drivers, err = s.routes.ListDrivers(gctx)
			return err
		}
		d, err := s.routes.GetDriver(gctx, f.DriverID)
		if err != nil {
			return err
		}
		drivers = []fleet.Driver{*d}
		return nil
	})
	g.Go(func() (err error) {
		routes, err = s.routeIndex(gctx)
		return err
	})
	g.Go(func() (err error) {
		bookings, err = s.bookings.ListCreatedBetween(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bookingsByRoute := map[types.ID]int{}
	for _, b := range bookings {
		bookingsByRoute[b.RouteID]++
	}

	report := &DriverReport{From: from, To: to, Drivers: make([]DriverMetric, len(drivers))}
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, d := range drivers {
		g.Go(func() error {
			m, err := s.driverMetric(gctx, d, from, to, routes, bookingsByRoute)
			if err != nil {
				return fmt.Errorf("driver %s: %w", d.ID, err)
			}
			report.Drivers[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, m := range report.Drivers {
		report.Skipped += m.Skipped
	}
	return report, nil
}

func (s *Service) driverMetric(ctx context.Context, d fleet.Driver, from, to time.Time,
	routes map[types.ID]fleet.Route, bookingsByRoute map[types.ID]int) (DriverMetric, error) {
	m := DriverMetric{DriverID: d.ID, DriverName: d.Name}
	for _, r := range routes {
		if r.DriverID != nil && *r.DriverID == d.ID {
			m.AssignedRoutes++
			m.Bookings += bookingsByRoute[r.ID]
		}
	}

	filter := completion.Filter{DriverID: d.ID, From: from, To: to}
	completions, err := s.completions.RouteCompletions(ctx, filter)
	if err != nil {
		return m, err
	}
	pickups, err := s.completions.DailyPickups(ctx, filter)
	if err != nil {
		return m, err
	}
	m.RouteCompletions = len(completions)
	m.DailyPickups = len(pickups)

	riders, err := s.ridersFor(ctx, pickups)
	if err != nil {
		return m, err
	}

	var pickupResults []Result[bool]
	for _, p := range pickups {
		route, found := routes[p.RouteID]
		if !found {
			pickupResults = append(pickupResults, failed[bool](fmt.Sprintf("pickup %d", p.ID), errRouteMissing))
			continue
		}
		var point *types.ID
		if b, found := riders[p.BookingID]; found {
			point = b.Pickup.PointID
		}
		sched, hasSchedule := s.scheduled(route, point, p.Date, p.Period)
		if !hasSchedule {
			pickupResults = append(pickupResults, failed[bool](fmt.Sprintf("pickup %d", p.ID), errors.New("no scheduled time")))
			continue
		}
		onTime := p.CompletedAt != nil && absDuration(p.CompletedAt.Sub(sched)) <= onTimeTolerance
		pickupResults = append(pickupResults, ok(fmt.Sprintf("pickup %d", p.ID), onTime))
	}
	onTime := 0
	m.Skipped += fold(ctx, s.logger, "driver_metrics", pickupResults, func(v bool) {
		m.ScheduledPickups++
		if v {
			onTime++
		}
	})
	m.OnTimeRate = percent(onTime, m.ScheduledPickups)

	var totalMinutes float64
	timed := 0
	for _, c := range completions {
		route, found := routes[c.RouteID]
		if !found || c.CompletedAt == nil {
			continue
		}
		sched, hasSchedule := s.scheduled(route, nil, c.Date, c.Period)
		if !hasSchedule {
			continue
		}
		totalMinutes += c.CompletedAt.Sub(sched).Minutes()
		timed++
	}
	if timed > 0 {
		m.AvgCompletionMinutes = round2(totalMinutes / float64(timed))
	}
	return m, nil
}

// RouteMetrics reports per-route utilization and fixed 30-day averages ending on now's civil date.
func (s *Service) RouteMetrics(ctx context.Context, now time.Time) (*RouteReport, error) {
	to := types.Day(now)
	from := to.AddDate(0, 0, -(routeWindowDays - 1))

	var (
		routes   []fleet.Route
		holders  map[types.ID]int
		bookings []booking.Booking
		pickups  []completion.DailyPickup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		routes, err = s.routes.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		holders, err = s.bookings.SeatHoldersByRoute(gctx)
		return err
	})
	g.Go(func() (err error) {
		bookings, err = s.bookings.ListCreatedBetween(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		pickups, err = s.completions.DailyPickups(gctx, completion.Filter{From: from, To: to})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	booked := map[types.ID]int{}
	for _, b := range bookings {
		booked[b.RouteID]++
	}
	picked := map[types.ID]int{}
	for _, p := range pickups {
		picked[p.RouteID]++
	}

	report := &RouteReport{From: from, To: to, Routes: make([]RouteMetric, 0, len(routes))}
	for _, r := range routes {
		report.Routes = append(report.Routes, RouteMetric{
			RouteID:        r.ID,
			RouteName:      r.Name,
			Utilization:    percent(holders[r.ID], r.Capacity),
			PickupPoints:   len(r.PickupPoints),
			BookingsPerDay: round2(float64(booked[r.ID]) / routeWindowDays),
			PickupsPerDay:  round2(float64(picked[r.ID]) / routeWindowDays),
		})
	}
	return report, nil
}

// Snapshot collects the current utilization, route metrics and weekly revenue for the last 30 days.
func (s *Service) Snapshot(ctx context.Context, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{GeneratedAt: now}
	today := types.Day(now)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Revenue, err = s.RevenueTrend(gctx, RevenueFilter{
			From: today.AddDate(0, 0, -(routeWindowDays - 1)), To: today, Bucket: BucketWeek,
		})
		return err
	})
	g.Go(func() (err error) {
		snap.Utilization, err = s.CapacityUtilization(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Routes, err = s.RouteMetrics(gctx, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Service) routeIndex(ctx context.Context) (map[types.ID]fleet.Route, error) {
	routes, err := s.routes.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[types.ID]fleet.Route, len(routes))
	for _, r := range routes {
		out[r.ID] = r
	}
	return out, nil
}

func (s *Service) ridersFor(ctx context.Context, pickups []completion.DailyPickup) (map[types.ID]booking.Booking, error) {
	seen := map[types.ID]bool{}
	var ids []types.ID
	for _, p := range pickups {
		if !seen[p.BookingID] {
			seen[p.BookingID] = true
			ids = append(ids, p.BookingID)
		}
	}
	list, err := s.bookings.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[types.ID]booking.Booking, len(list))
	for _, b := range list {
		out[b.ID] = b
	}
	return out, nil
}

// scheduled returns when a run was due: the rider's pickup point when known, else the route's first
// point. Morning runs use the pickup clock and afternoon runs the dropoff clock.
func (s *Service) scheduled(route fleet.Route, pointID *types.ID, date time.Time, period completion.Period) (time.Time, bool) {
	var point fleet.PickupPoint
	found := false
	if pointID != nil {
		point, found = route.Point(*pointID)
	}
	if !found {
		if point, found = route.FirstPoint(); !found {
			return time.Time{}, false
		}
	}
	clock := point.PickupTime
	if period == completion.PeriodPM {
		clock = point.DropoffTime
	}
	return fleet.ScheduledAt(date, clock, s.loc)
}

// priceMemo caches Resolve results per plan and route for one report run.
type priceMemo struct {
	pricer Pricer
	mu     sync.Mutex
	cache  map[priceKey]priceEntry
}

type priceKey struct {
	plan  types.PlanType
	route types.ID
}

type priceEntry struct {
	amount decimal.Decimal
	err    error
}

func newPriceMemo(p Pricer) *priceMemo {
	return &priceMemo{pricer: p, cache: map[priceKey]priceEntry{}}
}

func (m *priceMemo) resolve(ctx context.Context, plan types.PlanType, route fleet.Route) (decimal.Decimal, error) {
	key := priceKey{plan: plan, route: route.ID}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, found := m.cache[key]; found {
		return e.amount, e.err
	}
	amount, err := m.pricer.Resolve(ctx, plan, pricing.Target{RouteID: route.ID, VehicleType: route.VehicleType})
	m.cache[key] = priceEntry{amount: amount, err: err}
	return amount, err
}

func bucketStart(t time.Time, b Bucket) time.Time {
	d := types.Day(t)
	switch b {
	case BucketWeek:
		return d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
	case BucketMonth:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

func bucketKey(start time.Time, b Bucket) string {
	if b == BucketMonth {
		return start.Format("2006-01")
	}
	return types.FormatDay(start)
}

func bucketStarts(from, to time.Time, b Bucket) []time.Time {
	var out []time.Time
	for cur := bucketStart(from, b); !cur.After(to); {
		out = append(out, cur)
		switch b {
		case BucketWeek:
			cur = cur.AddDate(0, 0, 7)
		case BucketMonth:
			cur = cur.AddDate(0, 1, 0)
		default:
			cur = cur.AddDate(0, 0, 1)
		}
	}
	return out
}

// percent is part/whole*100 rounded to two decimals; zero when whole is not positive.
func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Div(decimal.NewFromInt(int64(whole))).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func absDuration(d time.Duration) time.Duration {
	return time.Duration(math.Abs(float64(d)))
}
