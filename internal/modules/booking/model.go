// README: Booking aggregate, lifecycle states and the transition function.
package booking

import (
	"time"

	"shuttle/internal/types"
)

type Status string

const (
	StatusNone             Status = "none"
	StatusPending          Status = "pending"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusActive           Status = "active"
	StatusCancelled        Status = "cancelled"
	StatusExpired          Status = "expired"
	StatusCompleted        Status = "completed"
	StatusRefunded         Status = "refunded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAwaitingApproval, StatusActive, StatusCancelled,
		StatusExpired, StatusCompleted, StatusRefunded:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusExpired, StatusCompleted, StatusRefunded:
		return true
	}
	return false
}

// HoldsSeat reports whether the status counts against route capacity and student overlap.
func (s Status) HoldsSeat() bool {
	return s == StatusPending || s == StatusActive
}

type TripType string

const (
	TripOneWay TripType = "one_way"
	TripTwoWay TripType = "two_way"
)

func (t TripType) Valid() bool { return t == TripOneWay || t == TripTwoWay }

// Event drives a status change. Activate and Expire are raised by the sweep; the rest by callers.
type Event string

const (
	EventActivate Event = "activate"
	EventExpire   Event = "expire"
	EventApprove  Event = "approve"
	EventCancel   Event = "cancel"
	EventRefund   Event = "refund"
)

var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventActivate: StatusActive,
		EventApprove:  StatusActive,
		EventCancel:   StatusCancelled,
	},
	StatusAwaitingApproval: {
		EventApprove: StatusActive,
		EventCancel:  StatusCancelled,
	},
	StatusActive: {
		EventExpire: StatusExpired,
		EventCancel: StatusCancelled,
		EventRefund: StatusRefunded,
	},
}

// Next is the lifecycle transition function. Any pair not in the table is rejected.
func Next(from Status, ev Event) (Status, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return from, &TransitionError{From: from, Event: ev}
}

func CanTransition(from Status, ev Event) bool {
	_, err := Next(from, ev)
	return err == nil
}

// Pickup is either a route pickup point or a free-form address with optional coordinates.
type Pickup struct {
	PointID *types.ID
	Address string
	Lat     *float64
	Lng     *float64
}

func (p Pickup) HasCoordinates() bool { return p.Lat != nil && p.Lng != nil }

type Booking struct {
	ID             types.ID
	StudentID      types.ID
	RouteID        types.ID
	Pickup         Pickup
	DropoffPointID *types.ID
	PlanType       types.PlanType
	TripType       TripType
	Status         Status
	StatusVersion  int
	StartDate      time.Time
	EndDate        *time.Time
	PaymentRef     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StateEvent is one row of the status audit trail.
type StateEvent struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	CreatedAt  time.Time
}

// overlapHorizonYears bounds open-ended bookings when checking for overlap only.
const overlapHorizonYears = 1

// OverlapWindow returns the inclusive range used to compare a booking against a student's others.
func OverlapWindow(start time.Time, end *time.Time) (time.Time, time.Time) {
	start = types.Day(start)
	if end != nil {
		return start, types.Day(*end)
	}
	return start, start.AddDate(overlapHorizonYears, 0, 0)
}

// Overlaps applies inclusive interval overlap against [from, to]; a nil end on b is open-ended.
func (b Booking) Overlaps(from, to time.Time) bool {
	if types.Day(b.StartDate).After(types.Day(to)) {
		return false
	}
	return b.EndDate == nil || !types.Day(*b.EndDate).Before(types.Day(from))
}

// DueEvent returns the automatic transition owed by b on civil date today. Expiry is checked first.
func DueEvent(b Booking, today time.Time) (Event, bool) {
	today = types.Day(today)
	if b.Status == StatusActive && b.EndDate != nil && types.Day(*b.EndDate).Before(today) {
		return EventExpire, true
	}
	if b.Status == StatusPending && !types.Day(b.StartDate).After(today) {
		return EventActivate, true
	}
	return "", false
}

// Notification is published on lifecycle changes for downstream notifiers.
type Notification struct {
	Type        string
	BookingID   types.ID
	StudentID   types.ID
	RouteID     types.ID
	From        Status
	To          Status
	At          time.Time
	NotifyEmail string
}

const (
	NotificationCreated      = "booking.created"
	NotificationTransitioned = "booking.transitioned"
)
