// README: Completion telemetry store backed by PostgreSQL. Records are append-only except notes.
package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"shuttle/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) RouteCompletions(ctx context.Context, f Filter) ([]RouteCompletion, error) {
	where, args := f.clauses()
	rows, err := s.db.Query(ctx, `
		SELECT id, route_id, driver_id, service_date, period, completed_at, notes
		FROM route_completions`+where+` ORDER BY service_date, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RouteCompletion
	for rows.Next() {
		var c RouteCompletion
		var routeID, driverID, period string
		if err := rows.Scan(&c.ID, &routeID, &driverID, &c.Date, &period, &c.CompletedAt, &c.Notes); err != nil {
			return nil, err
		}
		c.RouteID, c.DriverID, c.Period = types.ID(routeID), types.ID(driverID), Period(period)
		c.Date = types.Day(c.Date)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DailyPickups(ctx context.Context, f Filter) ([]DailyPickup, error) {
	where, args := f.clauses()
	rows, err := s.db.Query(ctx, `
		SELECT id, booking_id, route_id, driver_id, service_date, period, completed_at, notes
		FROM daily_pickups`+where+` ORDER BY service_date, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailyPickup
	for rows.Next() {
		var p DailyPickup
		var bookingID, routeID, driverID, period string
		if err := rows.Scan(&p.ID, &bookingID, &routeID, &driverID, &p.Date, &period, &p.CompletedAt, &p.Notes); err != nil {
			return nil, err
		}
		p.BookingID, p.RouteID, p.DriverID, p.Period = types.ID(bookingID), types.ID(routeID), types.ID(driverID), Period(period)
		p.Date = types.Day(p.Date)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) RecordRouteCompletion(ctx context.Context, c *RouteCompletion) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO route_completions (route_id, driver_id, service_date, period, completed_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		string(c.RouteID), string(c.DriverID), types.Day(c.Date), string(c.Period), c.CompletedAt, c.Notes,
	).Scan(&c.ID)
}

func (s *Store) RecordDailyPickup(ctx context.Context, p *DailyPickup) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO daily_pickups (booking_id, route_id, driver_id, service_date, period, completed_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		string(p.BookingID), string(p.RouteID), string(p.DriverID), types.Day(p.Date), string(p.Period), p.CompletedAt, p.Notes,
	).Scan(&p.ID)
}

// Annotate replaces the corrective notes on a record. Notes are the only mutable field.
func (s *Store) Annotate(ctx context.Context, kind Kind, id int64, notes string) error {
	var table string
	switch kind {
	case KindRouteCompletion:
		table = "route_completions"
	case KindDailyPickup:
		table = "daily_pickups"
	default:
		return fmt.Errorf("unknown completion kind %q", kind)
	}
	tag, err := s.db.Exec(ctx, `UPDATE `+table+` SET notes = $1 WHERE id = $2`, notes, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (f Filter) clauses() (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.DriverID != "" {
		add("driver_id = $%d", string(f.DriverID))
	}
	if f.RouteID != "" {
		add("route_id = $%d", string(f.RouteID))
	}
	if !f.From.IsZero() {
		add("service_date >= $%d", types.Day(f.From))
	}
	if !f.To.IsZero() {
		add("service_date <= $%d", types.Day(f.To))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
