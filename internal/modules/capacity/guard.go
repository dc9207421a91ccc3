// README: Capacity guard computes remaining seats on a route and rejects full routes.
package capacity

import (
	"context"
	"errors"
	"fmt"

	"shuttle/internal/modules/fleet"
	"shuttle/internal/types"
)

var ErrCapacityExceeded = errors.New("route capacity exceeded")

type ExceededError struct {
	RouteID  types.ID
	Capacity int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("route %s is full (capacity %d)", e.RouteID, e.Capacity)
}

func (e *ExceededError) Unwrap() error { return ErrCapacityExceeded }

// Counter counts bookings holding a seat (pending or active) on a route, skipping exclude when set.
type Counter interface {
	CountSeatHolders(ctx context.Context, routeID types.ID, exclude *types.ID) (int, error)
}

type Guard struct {
	counter Counter
}

func NewGuard(counter Counter) *Guard {
	return &Guard{counter: counter}
}

// AvailableSeats is max(0, capacity - holders). exclude keeps an updated booking from counting itself.
func (g *Guard) AvailableSeats(ctx context.Context, route fleet.Route, exclude *types.ID) (int, error) {
	n, err := g.counter.CountSeatHolders(ctx, route.ID, exclude)
	if err != nil {
		return 0, fmt.Errorf("count seat holders: %w", err)
	}
	return Remaining(route.Capacity, n), nil
}

func (g *Guard) HasCapacity(ctx context.Context, route fleet.Route, exclude *types.ID) (bool, error) {
	seats, err := g.AvailableSeats(ctx, route, exclude)
	if err != nil {
		return false, err
	}
	return seats > 0, nil
}

func (g *Guard) ValidateCapacity(ctx context.Context, route fleet.Route, exclude *types.ID) error {
	ok, err := g.HasCapacity(ctx, route, exclude)
	if err != nil {
		return err
	}
	if !ok {
		return &ExceededError{RouteID: route.ID, Capacity: route.Capacity}
	}
	return nil
}

// Remaining clamps capacity minus holders at zero.
func Remaining(capacity, holders int) int {
	if left := capacity - holders; left > 0 {
		return left
	}
	return 0
}
