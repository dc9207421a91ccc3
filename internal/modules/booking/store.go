// README: Booking store backed by PostgreSQL, including the capacity-guarded insert.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shuttle/internal/modules/capacity"
	"shuttle/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const bookingColumns = `
	id, student_id, route_id, pickup_point_id, COALESCE(pickup_address, ''), pickup_lat, pickup_lng,
	dropoff_point_id, plan_type, trip_type, status, status_version, start_date, end_date,
	payment_ref, created_at, updated_at`

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *PGStore) InsertGuarded(ctx context.Context, b *Booking) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockSeats(ctx, tx, b.RouteID, nil); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (
			id, student_id, route_id, pickup_point_id, pickup_address, pickup_lat, pickup_lng,
			dropoff_point_id, plan_type, trip_type, status, status_version, start_date, end_date,
			payment_ref, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		string(b.ID), string(b.StudentID), string(b.RouteID),
		idPtr(b.Pickup.PointID), nullString(b.Pickup.Address), b.Pickup.Lat, b.Pickup.Lng,
		idPtr(b.DropoffPointID), string(b.PlanType), string(b.TripType), string(b.Status), b.StatusVersion,
		b.StartDate, b.EndDate, b.PaymentRef, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) UpdateGuarded(ctx context.Context, b *Booking, expectedVersion int) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockSeats(ctx, tx, b.RouteID, &b.ID); err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET route_id = $1, pickup_point_id = $2, pickup_address = $3, pickup_lat = $4, pickup_lng = $5,
		    dropoff_point_id = $6, plan_type = $7, trip_type = $8, start_date = $9, end_date = $10,
		    payment_ref = $11, updated_at = $12, status_version = status_version + 1
		WHERE id = $13 AND status_version = $14`,
		string(b.RouteID), idPtr(b.Pickup.PointID), nullString(b.Pickup.Address), b.Pickup.Lat, b.Pickup.Lng,
		idPtr(b.DropoffPointID), string(b.PlanType), string(b.TripType), b.StartDate, b.EndDate,
		b.PaymentRef, b.UpdatedAt, string(b.ID), expectedVersion,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	return true, tx.Commit(ctx)
}

// lockSeats locks the route row for the rest of tx and fails when it has no free seat.
func lockSeats(ctx context.Context, tx pgx.Tx, routeID types.ID, exclude *types.ID) error {
	var seats int
	err := tx.QueryRow(ctx, `SELECT capacity FROM routes WHERE id = $1 FOR UPDATE`, string(routeID)).Scan(&seats)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("route %s: %w", routeID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	var holders int
	if err := tx.QueryRow(ctx, `
		SELECT count(*) FROM bookings
		WHERE route_id = $1 AND status IN ('pending', 'active') AND ($2::text IS NULL OR id <> $2)`,
		string(routeID), idPtr(exclude),
	).Scan(&holders); err != nil {
		return err
	}
	if capacity.Remaining(seats, holders) == 0 {
		return &capacity.ExceededError{RouteID: routeID, Capacity: seats}
	}
	return nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, expectedVersion int, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = $1, status_version = status_version + 1, updated_at = $5
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), string(id), string(from), expectedVersion, at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) AppendEvent(ctx context.Context, e *StateEvent) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO booking_state_events (booking_id, from_status, to_status, actor_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		string(e.BookingID), string(e.FromStatus), string(e.ToStatus), e.ActorType, e.CreatedAt,
	).Scan(&e.ID)
}

func (s *PGStore) ListEvents(ctx context.Context, id types.ID) ([]StateEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, booking_id, from_status, to_status, actor_type, created_at
		FROM booking_state_events
		WHERE booking_id = $1
		ORDER BY id`, string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StateEvent
	for rows.Next() {
		var e StateEvent
		var bookingID, from, to string
		if err := rows.Scan(&e.ID, &bookingID, &from, &to, &e.ActorType, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.BookingID, e.FromStatus, e.ToStatus = types.ID(bookingID), Status(from), Status(to)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PGStore) ListOverlapping(ctx context.Context, studentID types.ID, from, to time.Time, exclude *types.ID) ([]Booking, error) {
	return s.list(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE student_id = $1 AND status IN ('pending', 'active')
		  AND start_date <= $3 AND (end_date IS NULL OR end_date >= $2)
		  AND ($4::text IS NULL OR id <> $4)
		ORDER BY start_date, id`,
		string(studentID), types.Day(from), types.Day(to), idPtr(exclude),
	)
}

func (s *PGStore) ListDue(ctx context.Context, today time.Time) ([]Booking, error) {
	return s.list(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE (status = 'pending' AND start_date <= $1)
		   OR (status = 'active' AND end_date IS NOT NULL AND end_date < $1)
		ORDER BY id`,
		types.Day(today),
	)
}

func (s *PGStore) CountSeatHolders(ctx context.Context, routeID types.ID, exclude *types.ID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM bookings
		WHERE route_id = $1 AND status IN ('pending', 'active') AND ($2::text IS NULL OR id <> $2)`,
		string(routeID), idPtr(exclude),
	).Scan(&n)
	return n, err
}

// SeatHoldersByRoute counts pending and active bookings per route.
func (s *PGStore) SeatHoldersByRoute(ctx context.Context) (map[types.ID]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT route_id, count(*) FROM bookings
		WHERE status IN ('pending', 'active')
		GROUP BY route_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[types.ID]int{}
	for rows.Next() {
		var routeID string
		var n int
		if err := rows.Scan(&routeID, &n); err != nil {
			return nil, err
		}
		out[types.ID(routeID)] = n
	}
	return out, rows.Err()
}

// ListCreatedBetween returns bookings of any status created on civil dates from through to.
func (s *PGStore) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]Booking, error) {
	return s.list(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at, id`,
		types.Day(from), types.Day(to).AddDate(0, 0, 1),
	)
}

func (s *PGStore) ListByIDs(ctx context.Context, ids []types.ID) ([]Booking, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	return s.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ANY($1) ORDER BY id`, raw)
}

func (s *PGStore) list(ctx context.Context, query string, args ...any) ([]Booking, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var id, studentID, routeID, plan, trip, status string
	var pointID, dropoffID *string
	if err := row.Scan(
		&id, &studentID, &routeID, &pointID, &b.Pickup.Address, &b.Pickup.Lat, &b.Pickup.Lng,
		&dropoffID, &plan, &trip, &status, &b.StatusVersion, &b.StartDate, &b.EndDate,
		&b.PaymentRef, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.ID, b.StudentID, b.RouteID = types.ID(id), types.ID(studentID), types.ID(routeID)
	b.Pickup.PointID = toIDPtr(pointID)
	b.DropoffPointID = toIDPtr(dropoffID)
	b.PlanType, b.TripType, b.Status = types.PlanType(plan), TripType(trip), Status(status)
	b.StartDate = types.Day(b.StartDate)
	if b.EndDate != nil {
		end := types.Day(*b.EndDate)
		b.EndDate = &end
	}
	return &b, nil
}

func idPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	v := string(*id)
	return &v
}

func toIDPtr(s *string) *types.ID {
	if s == nil {
		return nil
	}
	v := types.ID(*s)
	return &v
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
