// README: Booking service implements admission checks, lifecycle transitions and the due sweep.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shuttle/internal/modules/calendar"
	"shuttle/internal/modules/capacity"
	"shuttle/internal/modules/fleet"
	"shuttle/internal/modules/pricing"
	"shuttle/internal/types"
)

// Store is the booking repository surface used by the service.
type Store interface {
	capacity.Counter
	Get(ctx context.Context, id types.ID) (*Booking, error)
	// InsertGuarded persists b only if its route still has a free seat, atomically with the count.
	InsertGuarded(ctx context.Context, b *Booking) error
	// UpdateGuarded replaces b when its version matches, re-checking the route's seats with b excluded.
	UpdateGuarded(ctx context.Context, b *Booking, expectedVersion int) (bool, error)
	// UpdateStatus moves id from from to to when its version matches, stamping updated_at with at.
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, expectedVersion int, at time.Time) (bool, error)
	AppendEvent(ctx context.Context, e *StateEvent) error
	ListEvents(ctx context.Context, id types.ID) ([]StateEvent, error)
	// ListOverlapping returns the student's seat-holding bookings overlapping [from, to].
	ListOverlapping(ctx context.Context, studentID types.ID, from, to time.Time, exclude *types.ID) ([]Booking, error)
	// ListDue returns pending bookings starting on or before today and active ones ending before it.
	ListDue(ctx context.Context, today time.Time) ([]Booking, error)
}

type RouteReader interface {
	Get(ctx context.Context, id types.ID) (*fleet.Route, error)
}

type CalendarLoader interface {
	BookingWindow(ctx context.Context, start time.Time) (*calendar.Calendar, error)
}

type Pricer interface {
	Quote(ctx context.Context, plan types.PlanType, target pricing.Target) (pricing.Quote, error)
}

type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

// Locker guards the sweep so that one replica runs it per tick.
type Locker interface {
	TryLock(ctx context.Context, key string) (bool, func(), error)
}

type Service struct {
	store     Store
	routes    RouteReader
	calendars CalendarLoader
	pricer    Pricer
	guard     *capacity.Guard

	publisher   Publisher
	geocoder    Geocoder
	locker      Locker
	logger      *slog.Logger
	now         func() time.Time
	notifyEmail string
}

type Option func(*Service)

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }
func WithGeocoder(g Geocoder) Option   { return func(s *Service) { s.geocoder = g } }
func WithLocker(l Locker) Option       { return func(s *Service) { s.locker = l } }
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifyEmail sets the administrator address attached to bookings awaiting approval.
func WithNotifyEmail(email string) Option { return func(s *Service) { s.notifyEmail = email } }

func NewService(store Store, routes RouteReader, calendars CalendarLoader, pricer Pricer, opts ...Option) *Service {
	s := &Service{
		store:     store,
		routes:    routes,
		calendars: calendars,
		pricer:    pricer,
		guard:     capacity.NewGuard(store),
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateCommand struct {
	StudentID        types.ID
	RouteID          types.ID
	Pickup           Pickup
	DropoffPointID   *types.ID
	PlanType         types.PlanType
	TripType         TripType
	StartDate        time.Time
	EndDate          *time.Time
	PaymentRef       *string
	RequiresApproval bool
	DryRun           bool
}

type UpdateCommand struct {
	BookingID      types.ID
	RouteID        types.ID
	Pickup         Pickup
	DropoffPointID *types.ID
	PlanType       types.PlanType
	TripType       TripType
	StartDate      time.Time
	EndDate        *time.Time
	PaymentRef     *string
}

type TransitionCommand struct {
	BookingID types.ID
	ActorType string
}

// Result is the admitted booking with the price it was quoted at.
type Result struct {
	Booking *Booking
	Quote   pricing.Quote
	DryRun  bool
}

// admission is the outcome of the checks shared by Create and Update.
type admission struct {
	route   *fleet.Route
	quote   pricing.Quote
	endDate time.Time
	pickup  Pickup
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return s.store.Get(ctx, id)
}

// History returns the booking's status audit trail, oldest first.
func (s *Service) History(ctx context.Context, id types.ID) ([]StateEvent, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, id)
}

// Create validates a booking request and, unless DryRun is set, persists it.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Result, error) {
	if cmd.StudentID == "" {
		return nil, badRequest("student_id is required")
	}
	if err := validateTerms(cmd.RouteID, cmd.PlanType, cmd.TripType, cmd.StartDate, cmd.EndDate, cmd.Pickup); err != nil {
		return nil, err
	}

	adm, err := s.admit(ctx, cmd.StudentID, cmd.RouteID, cmd.PlanType, cmd.StartDate, cmd.EndDate, cmd.Pickup, nil)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := StatusPending
	if cmd.RequiresApproval {
		status = StatusAwaitingApproval
	}
	end := adm.endDate
	b := &Booking{
		ID:             types.ID(uuid.NewString()),
		StudentID:      cmd.StudentID,
		RouteID:        cmd.RouteID,
		Pickup:         adm.pickup,
		DropoffPointID: cmd.DropoffPointID,
		PlanType:       cmd.PlanType,
		TripType:       cmd.TripType,
		Status:         status,
		StartDate:      types.Day(cmd.StartDate),
		EndDate:        &end,
		PaymentRef:     cmd.PaymentRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if cmd.DryRun {
		return &Result{Booking: b, Quote: adm.quote, DryRun: true}, nil
	}

	if err := s.store.InsertGuarded(ctx, b); err != nil {
		return nil, err
	}
	_ = s.store.AppendEvent(ctx, &StateEvent{
		BookingID:  b.ID,
		FromStatus: StatusNone,
		ToStatus:   status,
		ActorType:  "parent",
		CreatedAt:  now,
	})
	s.publish(ctx, NotificationCreated, b, StatusNone, status, now)
	s.logger.InfoContext(ctx, "booking created",
		"booking_id", b.ID, "student_id", b.StudentID, "route_id", b.RouteID,
		"status", b.Status, "price", adm.quote.Price.Amount.StringFixed(2))
	return &Result{Booking: b, Quote: adm.quote}, nil
}

// Update replaces the terms of an open booking, re-running admission with the booking excluded.
func (s *Service) Update(ctx context.Context, cmd UpdateCommand) (*Result, error) {
	if err := validateTerms(cmd.RouteID, cmd.PlanType, cmd.TripType, cmd.StartDate, cmd.EndDate, cmd.Pickup); err != nil {
		return nil, err
	}
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status.Terminal() {
		return nil, fmt.Errorf("%w: booking is %s", ErrInvalidTransition, b.Status)
	}

	adm, err := s.admit(ctx, b.StudentID, cmd.RouteID, cmd.PlanType, cmd.StartDate, cmd.EndDate, cmd.Pickup, &b.ID)
	if err != nil {
		return nil, err
	}

	version := b.StatusVersion
	end := adm.endDate
	b.RouteID = cmd.RouteID
	b.Pickup = adm.pickup
	b.DropoffPointID = cmd.DropoffPointID
	b.PlanType = cmd.PlanType
	b.TripType = cmd.TripType
	b.StartDate = types.Day(cmd.StartDate)
	b.EndDate = &end
	b.PaymentRef = cmd.PaymentRef
	b.UpdatedAt = s.now()

	ok, err := s.store.UpdateGuarded(ctx, b, version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	b.StatusVersion = version + 1
	return &Result{Booking: b, Quote: adm.quote}, nil
}

func (s *Service) Approve(ctx context.Context, cmd TransitionCommand) (*Booking, error) {
	return s.apply(ctx, cmd.BookingID, EventApprove, actorOr(cmd.ActorType, "admin"))
}

func (s *Service) Cancel(ctx context.Context, cmd TransitionCommand) (*Booking, error) {
	return s.apply(ctx, cmd.BookingID, EventCancel, actorOr(cmd.ActorType, "parent"))
}

// Refund records a completed refund. Payment processing happens outside this service.
func (s *Service) Refund(ctx context.Context, cmd TransitionCommand) (*Booking, error) {
	return s.apply(ctx, cmd.BookingID, EventRefund, actorOr(cmd.ActorType, "admin"))
}

func (s *Service) apply(ctx context.Context, id types.ID, ev Event, actor string) (*Booking, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.step(ctx, b, ev, actor, s.now()); err != nil {
		return nil, err
	}
	return b, nil
}

// step applies one transition to b in place using the optimistic status version.
func (s *Service) step(ctx context.Context, b *Booking, ev Event, actor string, at time.Time) error {
	from := b.Status
	to, err := Next(from, ev)
	if err != nil {
		return err
	}
	ok, err := s.store.UpdateStatus(ctx, b.ID, from, to, b.StatusVersion, at)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	b.Status = to
	b.StatusVersion++
	b.UpdatedAt = at
	_ = s.store.AppendEvent(ctx, &StateEvent{
		BookingID:  b.ID,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actor,
		CreatedAt:  at,
	})
	s.publish(ctx, NotificationTransitioned, b, from, to, at)
	return nil
}

// TransitionDue applies owed automatic transitions as of now and returns how many were applied.
// Each booking is stepped until nothing more is owed, so a second call at the same instant is a no-op.
func (s *Service) TransitionDue(ctx context.Context, now time.Time) (int, error) {
	today := types.Day(now)
	due, err := s.store.ListDue(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list due bookings: %w", err)
	}

	applied := 0
	var errs []error
	for i := range due {
		b := &due[i]
		for {
			ev, ok := DueEvent(*b, today)
			if !ok {
				break
			}
			if err := s.step(ctx, b, ev, "system", now); err != nil {
				if !errors.Is(err, ErrConflict) {
					errs = append(errs, fmt.Errorf("booking %s: %w", b.ID, err))
				}
				s.logger.WarnContext(ctx, "sweep transition skipped", "booking_id", b.ID, "event", ev, "error", err)
				break
			}
			applied++
		}
	}
	return applied, errors.Join(errs...)
}

const sweepLockKey = "shuttle:sweep:lock"

// SweepOnce runs TransitionDue under the sweep lock when one is configured.
// ran is false when another holder owns the lock.
func (s *Service) SweepOnce(ctx context.Context) (applied int, ran bool, err error) {
	if s.locker != nil {
		got, release, err := s.locker.TryLock(ctx, sweepLockKey)
		if err != nil {
			return 0, false, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !got {
			return 0, false, nil
		}
		defer release()
	}
	applied, err = s.TransitionDue(ctx, s.now())
	return applied, true, err
}

func (s *Service) RunSweepTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			applied, ran, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "booking sweep failed", "error", err, "applied", applied)
				continue
			}
			if ran {
				s.logger.InfoContext(ctx, "booking sweep done", "applied", applied)
			}
		}
	}
}

func (s *Service) admit(ctx context.Context, studentID, routeID types.ID, plan types.PlanType,
	start time.Time, end *time.Time, pickup Pickup, self *types.ID) (*admission, error) {
	route, err := s.routes.Get(ctx, routeID)
	if errors.Is(err, fleet.ErrRouteNotFound) {
		return nil, fmt.Errorf("route %s: %w", routeID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !route.Active {
		return nil, badRequest("route %s is not active", routeID)
	}
	if pickup.PointID != nil {
		if _, ok := route.Point(*pickup.PointID); !ok {
			return nil, badRequest("pickup point %s is not on route %s", *pickup.PointID, routeID)
		}
	}

	start = types.Day(start)
	cal, err := s.calendars.BookingWindow(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("load calendar: %w", err)
	}
	if !cal.IsServiceDay(start) {
		ev, _ := cal.EventOn(start)
		return nil, &InvalidServiceDateError{Date: start, Event: ev, Suggested: cal.NextServiceDay(start)}
	}

	from, to := OverlapWindow(start, end)
	existing, err := s.store.ListOverlapping(ctx, studentID, from, to, self)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if len(existing) > 0 {
		return nil, &OverlapError{Existing: existing[0]}
	}

	if err := s.guard.ValidateCapacity(ctx, *route, self); err != nil {
		return nil, err
	}

	quote, err := s.pricer.Quote(ctx, plan, pricing.Target{RouteID: route.ID, VehicleType: route.VehicleType})
	if err != nil {
		return nil, err
	}

	adm := &admission{route: route, quote: quote, pickup: s.locate(ctx, pickup)}
	if end != nil {
		adm.endDate = types.Day(*end)
	} else {
		adm.endDate = cal.ExtendEndDate(start, plan)
	}
	return adm, nil
}

// locate fills coordinates for a free-form address. Geocoding failures leave the pickup as given.
func (s *Service) locate(ctx context.Context, p Pickup) Pickup {
	if s.geocoder == nil || p.PointID != nil || p.Address == "" || p.HasCoordinates() {
		return p
	}
	pt, err := s.geocoder.Geocode(ctx, p.Address)
	if err != nil {
		s.logger.WarnContext(ctx, "geocode pickup address failed", "address", p.Address, "error", err)
		return p
	}
	p.Lat, p.Lng = &pt.Lat, &pt.Lng
	return p
}

func (s *Service) publish(ctx context.Context, kind string, b *Booking, from, to Status, at time.Time) {
	if s.publisher == nil {
		return
	}
	n := Notification{
		Type:      kind,
		BookingID: b.ID,
		StudentID: b.StudentID,
		RouteID:   b.RouteID,
		From:      from,
		To:        to,
		At:        at,
	}
	if to == StatusAwaitingApproval {
		n.NotifyEmail = s.notifyEmail
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "publish booking notification failed", "booking_id", b.ID, "type", kind, "error", err)
	}
}

func validateTerms(routeID types.ID, plan types.PlanType, trip TripType, start time.Time, end *time.Time, pickup Pickup) error {
	switch {
	case routeID == "":
		return badRequest("route_id is required")
	case !plan.Valid():
		return badRequest("unknown plan_type %q", plan)
	case !trip.Valid():
		return badRequest("unknown trip_type %q", trip)
	case start.IsZero():
		return badRequest("start_date is required")
	case end != nil && types.Day(*end).Before(types.Day(start)):
		return badRequest("end_date is before start_date")
	case pickup.PointID == nil && pickup.Address == "":
		return badRequest("pickup point or address is required")
	case (pickup.Lat == nil) != (pickup.Lng == nil):
		return badRequest("pickup lat and lng must be given together")
	}
	return nil
}

func actorOr(actor, def string) string {
	if actor == "" {
		return def
	}
	return actor
}
