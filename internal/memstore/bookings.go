// README: In-memory booking store with the same seat guard semantics as the PostgreSQL store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"shuttle/internal/modules/booking"
	"shuttle/internal/modules/capacity"
	"shuttle/internal/types"
)

type Bookings struct {
	mu       sync.Mutex
	bookings map[types.ID]booking.Booking
	events   []booking.StateEvent
	routes   *Routes
}

// NewBookings stores bookings; routes supplies capacities for the guarded writes.
func NewBookings(routes *Routes) *Bookings {
	return &Bookings{bookings: map[types.ID]booking.Booking{}, routes: routes}
}

// Put inserts or replaces b without any checks.
func (s *Bookings) Put(b booking.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
}

func (s *Bookings) Get(_ context.Context, id types.ID) (*booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return &b, nil
}

func (s *Bookings) InsertGuarded(_ context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSeats(b.RouteID, nil); err != nil {
		return err
	}
	s.bookings[b.ID] = *b
	return nil
}

func (s *Bookings) UpdateGuarded(_ context.Context, b *booking.Booking, expectedVersion int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bookings[b.ID]
	if !ok || cur.StatusVersion != expectedVersion {
		return false, nil
	}
	if err := s.checkSeats(b.RouteID, &b.ID); err != nil {
		return false, err
	}
	next := *b
	next.Status = cur.Status
	next.StatusVersion = expectedVersion + 1
	s.bookings[b.ID] = next
	return true, nil
}

func (s *Bookings) UpdateStatus(_ context.Context, id types.ID, from, to booking.Status, expectedVersion int, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != from || b.StatusVersion != expectedVersion {
		return false, nil
	}
	b.Status = to
	b.StatusVersion++
	b.UpdatedAt = at
	s.bookings[id] = b
	return true, nil
}

func (s *Bookings) AppendEvent(_ context.Context, e *booking.StateEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = int64(len(s.events) + 1)
	s.events = append(s.events, *e)
	return nil
}

func (s *Bookings) ListEvents(_ context.Context, id types.ID) ([]booking.StateEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []booking.StateEvent
	for _, e := range s.events {
		if e.BookingID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Bookings) ListOverlapping(_ context.Context, studentID types.ID, from, to time.Time, exclude *types.ID) ([]booking.Booking, error) {
	return s.filter(func(b booking.Booking) bool {
		return b.StudentID == studentID && b.Status.HoldsSeat() && !excluded(b.ID, exclude) && b.Overlaps(from, to)
	}), nil
}

func (s *Bookings) ListDue(_ context.Context, today time.Time) ([]booking.Booking, error) {
	return s.filter(func(b booking.Booking) bool {
		_, due := booking.DueEvent(b, today)
		return due
	}), nil
}

func (s *Bookings) CountSeatHolders(_ context.Context, routeID types.ID, exclude *types.ID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holders(routeID, exclude), nil
}

func (s *Bookings) SeatHoldersByRoute(_ context.Context) (map[types.ID]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[types.ID]int{}
	for _, b := range s.bookings {
		if b.Status.HoldsSeat() {
			out[b.RouteID]++
		}
	}
	return out, nil
}

func (s *Bookings) ListCreatedBetween(_ context.Context, from, to time.Time) ([]booking.Booking, error) {
	lo, hi := types.Day(from), types.Day(to).AddDate(0, 0, 1)
	return s.filter(func(b booking.Booking) bool {
		return !b.CreatedAt.Before(lo) && b.CreatedAt.Before(hi)
	}), nil
}

func (s *Bookings) ListByIDs(_ context.Context, ids []types.ID) ([]booking.Booking, error) {
	want := make(map[types.ID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return s.filter(func(b booking.Booking) bool { return want[b.ID] }), nil
}

func (s *Bookings) filter(keep func(booking.Booking) bool) []booking.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []booking.Booking
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Bookings) checkSeats(routeID types.ID, exclude *types.ID) error {
	seats := 0
	if s.routes != nil {
		r, ok := s.routes.lookup(routeID)
		if !ok {
			return booking.ErrNotFound
		}
		seats = r.Capacity
	}
	if capacity.Remaining(seats, s.holders(routeID, exclude)) == 0 {
		return &capacity.ExceededError{RouteID: routeID, Capacity: seats}
	}
	return nil
}

func (s *Bookings) holders(routeID types.ID, exclude *types.ID) int {
	n := 0
	for _, b := range s.bookings {
		if b.RouteID == routeID && b.Status.HoldsSeat() && !excluded(b.ID, exclude) {
			n++
		}
	}
	return n
}

func excluded(id types.ID, exclude *types.ID) bool {
	return exclude != nil && *exclude == id
}
