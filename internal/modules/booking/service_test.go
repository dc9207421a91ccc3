package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shuttle/internal/memstore"
	"shuttle/internal/modules/booking"
	"shuttle/internal/modules/calendar"
	"shuttle/internal/modules/capacity"
	"shuttle/internal/modules/fleet"
	"shuttle/internal/modules/pricing"
	"shuttle/internal/types"
)

func day(s string) time.Time {
	t, err := types.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

type recorder struct {
	mu   sync.Mutex
	sent []booking.Notification
}

func (r *recorder) Publish(_ context.Context, n booking.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

type fixture struct {
	svc      *booking.Service
	bookings *memstore.Bookings
	routes   *memstore.Routes
	pub      *recorder
}

func newFixture(t *testing.T, events []calendar.Event, opts ...booking.Option) *fixture {
	t.Helper()
	routes := memstore.NewRoutes(
		fleet.Route{ID: "R", Name: "North", Capacity: 2, Active: true, VehicleType: "van",
			PickupPoints: []fleet.PickupPoint{{ID: "P1", Sequence: 1, PickupTime: "07:30"}}},
		fleet.Route{ID: "closed", Capacity: 10, Active: false},
		fleet.Route{ID: "unpriced", Capacity: 10, Active: true, VehicleType: "bus"},
	)
	r := types.ID("R")
	van := "van"
	rules := memstore.NewRules(
		pricing.Rule{ID: 1, PlanType: types.PlanWeekly, RouteID: &r, Amount: decimal.NewFromInt(50), Currency: "USD", Active: true},
		pricing.Rule{ID: 2, PlanType: types.PlanMonthly, VehicleType: &van, Amount: decimal.NewFromInt(220), Currency: "USD", Active: true},
		pricing.Rule{ID: 3, PlanType: types.PlanAnnual, RouteID: &r, Amount: decimal.NewFromInt(1500), Currency: "USD", Active: true},
	)
	bookings := memstore.NewBookings(routes)
	pub := &recorder{}
	base := []booking.Option{
		booking.WithPublisher(pub),
		booking.WithClock(func() time.Time { return day("2025-01-02").Add(9 * time.Hour) }),
		booking.WithNotifyEmail("admin@example.com"),
	}
	svc := booking.NewService(bookings, routes,
		calendar.NewService(memstore.NewCalendar(events...)),
		pricing.NewService(rules),
		append(base, opts...)...)
	return &fixture{svc: svc, bookings: bookings, routes: routes, pub: pub}
}

func point(id string) booking.Pickup {
	p := types.ID(id)
	return booking.Pickup{PointID: &p}
}

func weekly(student, start string) booking.CreateCommand {
	return booking.CreateCommand{
		StudentID: types.ID(student),
		RouteID:   "R",
		Pickup:    point("P1"),
		PlanType:  types.PlanWeekly,
		TripType:  booking.TripTwoWay,
		StartDate: day(start),
	}
}

func TestCreateWeeklyEndDate(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.svc.Create(context.Background(), weekly("s1", "2025-03-03"))
	require.NoError(t, err)
	require.NotNil(t, res.Booking.EndDate)
	assert.Equal(t, day("2025-03-10"), *res.Booking.EndDate)
	assert.Equal(t, booking.StatusPending, res.Booking.Status)
	assert.Equal(t, "50", res.Quote.Price.Amount.String())
	assert.Equal(t, pricing.TierRoute, res.Quote.Tier)
}

func TestCreateWeeklyEndDateSkipsHoliday(t *testing.T) {
	f := newFixture(t, []calendar.Event{{Date: day("2025-03-05"), Kind: calendar.KindHoliday, Description: "Founders Day"}})
	res, err := f.svc.Create(context.Background(), weekly("s1", "2025-03-03"))
	require.NoError(t, err)
	assert.Equal(t, day("2025-03-11"), *res.Booking.EndDate)
}

func TestCreateKeepsRequestedEndDate(t *testing.T) {
	f := newFixture(t, nil)
	cmd := weekly("s1", "2025-03-03")
	cmd.EndDate = dayPtr("2025-03-20")
	res, err := f.svc.Create(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, day("2025-03-20"), *res.Booking.EndDate)
}

func TestCreateCapacityScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, weekly("s1", "2025-03-03"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, weekly("s2", "2025-03-03"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, weekly("s3", "2025-03-03"))
	require.Error(t, err)
	assert.ErrorIs(t, err, capacity.ErrCapacityExceeded)

	_, err = f.svc.Cancel(ctx, booking.TransitionCommand{BookingID: first.Booking.ID})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, weekly("s3", "2025-03-03"))
	require.NoError(t, err)
}

func TestCreateOverlapScenario(t *testing.T) {
	f := newFixture(t, nil)
	f.bookings.Put(booking.Booking{
		ID: "existing", StudentID: "S", RouteID: "other", Status: booking.StatusActive,
		StartDate: day("2025-01-01"), EndDate: dayPtr("2025-01-31"),
	})
	ctx := context.Background()

	cmd := weekly("S", "2025-01-15")
	cmd.EndDate = dayPtr("2025-02-15")
	_, err := f.svc.Create(ctx, cmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrOverlap)
	var oe *booking.OverlapError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, types.ID("existing"), oe.Existing.ID)

	cmd = weekly("S", "2025-02-01")
	cmd.EndDate = dayPtr("2025-02-28")
	_, err = f.svc.Create(ctx, cmd)
	require.NoError(t, err)
}

func TestCreateOpenEndedUsesOneYearHorizon(t *testing.T) {
	f := newFixture(t, nil)
	f.bookings.Put(booking.Booking{
		ID: "later", StudentID: "S", RouteID: "other", Status: booking.StatusPending,
		StartDate: day("2025-11-01"), EndDate: dayPtr("2025-11-30"),
	})
	_, err := f.svc.Create(context.Background(), weekly("S", "2025-03-03"))
	assert.ErrorIs(t, err, booking.ErrOverlap)
}

func TestCreateIgnoresNonHoldingBookingsForOverlap(t *testing.T) {
	f := newFixture(t, nil)
	f.bookings.Put(booking.Booking{
		ID: "old", StudentID: "S", RouteID: "other", Status: booking.StatusCancelled,
		StartDate: day("2025-03-01"), EndDate: dayPtr("2025-03-31"),
	})
	_, err := f.svc.Create(context.Background(), weekly("S", "2025-03-03"))
	require.NoError(t, err)
}

func TestCreateRejectsNonServiceStart(t *testing.T) {
	f := newFixture(t, []calendar.Event{
		{Date: day("2025-03-03"), Kind: calendar.KindClosure, Description: "Snow day"},
		{Date: day("2025-03-04"), Kind: calendar.KindHoliday},
	})
	_, err := f.svc.Create(context.Background(), weekly("s1", "2025-03-03"))
	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrInvalidServiceDate)

	var ie *booking.InvalidServiceDateError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "Snow day", ie.Event.Description)
	assert.Equal(t, day("2025-03-05"), ie.Suggested)
	assert.Contains(t, err.Error(), "Snow day")
}

func TestCreateRequiresPricingRule(t *testing.T) {
	f := newFixture(t, nil)
	cmd := weekly("s1", "2025-03-03")
	cmd.RouteID = "unpriced"
	cmd.Pickup = booking.Pickup{Address: "1 Main St"}
	_, err := f.svc.Create(context.Background(), cmd)
	assert.ErrorIs(t, err, pricing.ErrRuleNotFound)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	mutate := map[string]func(*booking.CreateCommand){
		"missing student":  func(c *booking.CreateCommand) { c.StudentID = "" },
		"unknown plan":     func(c *booking.CreateCommand) { c.PlanType = "daily" },
		"unknown trip":     func(c *booking.CreateCommand) { c.TripType = "loop" },
		"no start":         func(c *booking.CreateCommand) { c.StartDate = time.Time{} },
		"end before start": func(c *booking.CreateCommand) { c.EndDate = dayPtr("2025-03-01") },
		"no pickup":        func(c *booking.CreateCommand) { c.Pickup = booking.Pickup{} },
		"foreign point":    func(c *booking.CreateCommand) { c.Pickup = point("elsewhere") },
		"inactive route":   func(c *booking.CreateCommand) { c.RouteID = "closed" },
	}
	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			cmd := weekly("s1", "2025-03-03")
			fn(&cmd)
			_, err := f.svc.Create(ctx, cmd)
			assert.ErrorIs(t, err, booking.ErrBadRequest)
		})
	}

	cmd := weekly("s1", "2025-03-03")
	cmd.RouteID = "ghost"
	_, err := f.svc.Create(ctx, cmd)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestCreateDryRunDoesNotPersist(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	cmd := weekly("s1", "2025-03-03")
	cmd.DryRun = true
	res, err := f.svc.Create(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, res.DryRun)

	_, err = f.svc.Get(ctx, res.Booking.ID)
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.Empty(t, f.pub.sent)
}

func TestCreateAwaitingApprovalNotifiesAdmin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	cmd := weekly("s1", "2025-03-03")
	cmd.RequiresApproval = true
	res, err := f.svc.Create(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusAwaitingApproval, res.Booking.Status)

	require.Len(t, f.pub.sent, 1)
	n := f.pub.sent[0]
	assert.Equal(t, booking.NotificationCreated, n.Type)
	assert.Equal(t, "admin@example.com", n.NotifyEmail)

	b, err := f.svc.Approve(ctx, booking.TransitionCommand{BookingID: res.Booking.ID})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusActive, b.Status)
	assert.Empty(t, f.pub.sent[1].NotifyEmail)

	events, err := f.bookings.ListEvents(ctx, res.Booking.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, booking.StatusNone, events[0].FromStatus)
	assert.Equal(t, "admin", events[1].ActorType)
}

func TestManualTransitions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	res, err := f.svc.Create(ctx, weekly("s1", "2025-03-03"))
	require.NoError(t, err)
	id := res.Booking.ID

	_, err = f.svc.Refund(ctx, booking.TransitionCommand{BookingID: id})
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	b, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, b.Status, "rejected transition leaves state unchanged")

	_, err = f.svc.Approve(ctx, booking.TransitionCommand{BookingID: id})
	require.NoError(t, err)
	b, err = f.svc.Refund(ctx, booking.TransitionCommand{BookingID: id})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusRefunded, b.Status)
	assert.Equal(t, 2, b.StatusVersion)

	_, err = f.svc.Cancel(ctx, booking.TransitionCommand{BookingID: id})
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	_, err = f.svc.Cancel(ctx, booking.TransitionCommand{BookingID: "missing"})
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestHistoryRecordsActors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	res, err := f.svc.Create(ctx, weekly("s1", "2025-03-03"))
	require.NoError(t, err)
	id := res.Booking.ID

	_, err = f.svc.Approve(ctx, booking.TransitionCommand{BookingID: id})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, booking.TransitionCommand{BookingID: id, ActorType: "school"})
	require.NoError(t, err)

	events, err := f.svc.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, booking.StatusNone, events[0].FromStatus)
	assert.Equal(t, "parent", events[0].ActorType)
	assert.Equal(t, booking.StatusActive, events[1].ToStatus)
	assert.Equal(t, "admin", events[1].ActorType)
	assert.Equal(t, booking.StatusCancelled, events[2].ToStatus)
	assert.Equal(t, "school", events[2].ActorType)

	_, err = f.svc.History(ctx, "missing")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestTransitionStampsInjectedClock(t *testing.T) {
	now := day("2025-01-02").Add(9 * time.Hour)
	f := newFixture(t, nil, booking.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	res, err := f.svc.Create(ctx, weekly("s1", "2025-03-03"))
	require.NoError(t, err)

	now = now.Add(26 * time.Hour)
	approved, err := f.svc.Approve(ctx, booking.TransitionCommand{BookingID: res.Booking.ID})
	require.NoError(t, err)
	assert.True(t, approved.UpdatedAt.Equal(now))

	stored, err := f.svc.Get(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(now), "stored row matches the returned booking")
	assert.True(t, stored.CreatedAt.Equal(day("2025-01-02").Add(9*time.Hour)))
}

type staleStore struct{ *memstore.Bookings }

func (staleStore) UpdateStatus(context.Context, types.ID, booking.Status, booking.Status, int, time.Time) (bool, error) {
	return false, nil
}

func TestTransitionConflict(t *testing.T) {
	f := newFixture(t, nil)
	f.bookings.Put(booking.Booking{ID: "b1", StudentID: "s1", RouteID: "R", Status: booking.StatusPending, StartDate: day("2025-03-03")})
	svc := booking.NewService(staleStore{f.bookings}, f.routes,
		calendar.NewService(memstore.NewCalendar()), pricing.NewService(memstore.NewRules()))

	_, err := svc.Approve(context.Background(), booking.TransitionCommand{BookingID: "b1"})
	assert.ErrorIs(t, err, booking.ErrConflict)
}

func TestTransitionDueIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	now := day("2025-03-10").Add(6 * time.Hour)
	seed := []booking.Booking{
		{ID: "starts-today", StudentID: "a", RouteID: "R", Status: booking.StatusPending, StartDate: day("2025-03-10"), EndDate: dayPtr("2025-03-17")},
		{ID: "future", StudentID: "b", RouteID: "R", Status: booking.StatusPending, StartDate: day("2025-03-11")},
		{ID: "ended", StudentID: "c", RouteID: "R", Status: booking.StatusActive, StartDate: day("2025-03-01"), EndDate: dayPtr("2025-03-09")},
		{ID: "ends-today", StudentID: "d", RouteID: "R", Status: booking.StatusActive, StartDate: day("2025-03-01"), EndDate: dayPtr("2025-03-10")},
		{ID: "stale-pending", StudentID: "e", RouteID: "R", Status: booking.StatusPending, StartDate: day("2025-02-01"), EndDate: dayPtr("2025-02-08")},
		{ID: "awaiting", StudentID: "f", RouteID: "R", Status: booking.StatusAwaitingApproval, StartDate: day("2025-02-01")},
	}
	for _, b := range seed {
		f.bookings.Put(b)
	}

	applied, err := f.svc.TransitionDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 4, applied)

	want := map[types.ID]booking.Status{
		"starts-today":  booking.StatusActive,
		"future":        booking.StatusPending,
		"ended":         booking.StatusExpired,
		"ends-today":    booking.StatusActive,
		"stale-pending": booking.StatusExpired,
		"awaiting":      booking.StatusAwaitingApproval,
	}
	assertStatuses(t, f, want)

	applied, err = f.svc.TransitionDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, applied)
	assertStatuses(t, f, want)
}

func assertStatuses(t *testing.T, f *fixture, want map[types.ID]booking.Status) {
	t.Helper()
	for id, status := range want {
		b, err := f.svc.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, status, b.Status, string(id))
	}
}

func TestUpdateExcludesItselfFromCapacityAndOverlap(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a, err := f.svc.Create(ctx, weekly("s1", "2025-03-03"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, weekly("s2", "2025-03-03"))
	require.NoError(t, err)

	res, err := f.svc.Update(ctx, booking.UpdateCommand{
		BookingID: a.Booking.ID,
		RouteID:   "R",
		Pickup:    point("P1"),
		PlanType:  types.PlanMonthly,
		TripType:  booking.TripOneWay,
		StartDate: day("2025-03-05"),
	})
	require.NoError(t, err)
	assert.Equal(t, day("2025-04-05"), *res.Booking.EndDate)
	assert.Equal(t, "220", res.Quote.Price.Amount.String())
	assert.Equal(t, 1, res.Booking.StatusVersion)

	stored, err := f.svc.Get(ctx, a.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PlanMonthly, stored.PlanType)
	assert.Equal(t, booking.StatusPending, stored.Status)
}

func TestUpdateRejectsTerminalBooking(t *testing.T) {
	f := newFixture(t, nil)
	f.bookings.Put(booking.Booking{ID: "done", StudentID: "s1", RouteID: "R", Status: booking.StatusExpired, StartDate: day("2025-01-01")})
	_, err := f.svc.Update(context.Background(), booking.UpdateCommand{
		BookingID: "done", RouteID: "R", Pickup: point("P1"),
		PlanType: types.PlanWeekly, TripType: booking.TripOneWay, StartDate: day("2025-03-03"),
	})
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
}

type fakeGeocoder struct{ err error }

func (g fakeGeocoder) Geocode(context.Context, string) (types.Point, error) {
	return types.Point{Lat: 25.03, Lng: 121.56}, g.err
}

func TestCreateGeocodesFreeFormAddress(t *testing.T) {
	f := newFixture(t, nil, booking.WithGeocoder(fakeGeocoder{}))
	cmd := weekly("s1", "2025-03-03")
	cmd.Pickup = booking.Pickup{Address: "1 Main St"}
	res, err := f.svc.Create(context.Background(), cmd)
	require.NoError(t, err)
	require.True(t, res.Booking.Pickup.HasCoordinates())
	assert.InDelta(t, 25.03, *res.Booking.Pickup.Lat, 1e-9)

	f = newFixture(t, nil, booking.WithGeocoder(fakeGeocoder{err: errors.New("quota")}))
	res, err = f.svc.Create(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, res.Booking.Pickup.HasCoordinates())
}

type busyLocker struct{}

func (busyLocker) TryLock(context.Context, string) (bool, func(), error) {
	return false, func() {}, nil
}

func TestSweepOnceSkipsWhenLocked(t *testing.T) {
	f := newFixture(t, nil, booking.WithLocker(busyLocker{}))
	f.bookings.Put(booking.Booking{ID: "b", StudentID: "s", RouteID: "R", Status: booking.StatusPending, StartDate: day("2025-01-01")})

	applied, ran, err := f.svc.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, applied)

	f = newFixture(t, nil)
	f.bookings.Put(booking.Booking{ID: "b", StudentID: "s", RouteID: "R", Status: booking.StatusPending, StartDate: day("2025-01-01")})
	applied, ran, err = f.svc.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, applied)
}
