// README: Fleet read store backed by PostgreSQL (routes, vehicles, drivers, pickup points).
package fleet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shuttle/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const routeColumns = `
	SELECT r.id, r.name, r.capacity, r.is_active,
	       COALESCE(r.vehicle_id, ''), COALESCE(v.vehicle_type, ''), r.driver_id
	FROM routes r
	LEFT JOIN vehicles v ON v.id = r.vehicle_id`

func (s *Store) Get(ctx context.Context, id types.ID) (*Route, error) {
	rows, err := s.db.Query(ctx, routeColumns+` WHERE r.id = $1`, string(id))
	if err != nil {
		return nil, err
	}
	routes, err := s.collect(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return nil, ErrRouteNotFound
	}
	return &routes[0], nil
}

func (s *Store) ListActive(ctx context.Context) ([]Route, error) {
	rows, err := s.db.Query(ctx, routeColumns+` WHERE r.is_active ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	return s.collect(ctx, rows)
}

func (s *Store) ListAll(ctx context.Context) ([]Route, error) {
	rows, err := s.db.Query(ctx, routeColumns+` ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	return s.collect(ctx, rows)
}

func (s *Store) ListDrivers(ctx context.Context) ([]Driver, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM drivers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Driver
	for rows.Next() {
		var d Driver
		var id string
		if err := rows.Scan(&id, &d.Name); err != nil {
			return nil, err
		}
		d.ID = types.ID(id)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) GetDriver(ctx context.Context, id types.ID) (*Driver, error) {
	var d Driver
	var rawID string
	err := s.db.QueryRow(ctx, `SELECT id, name FROM drivers WHERE id = $1`, string(id)).Scan(&rawID, &d.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDriverNotFound
	}
	if err != nil {
		return nil, err
	}
	d.ID = types.ID(rawID)
	return &d, nil
}

func (s *Store) collect(ctx context.Context, rows pgx.Rows) ([]Route, error) {
	out, err := scanRoutes(rows)
	if err != nil || len(out) == 0 {
		return out, err
	}
	index := make(map[types.ID]int, len(out))
	ids := make([]string, len(out))
	for i, r := range out {
		index[r.ID] = i
		ids[i] = string(r.ID)
	}

	points, err := s.db.Query(ctx, `
		SELECT id, route_id, name, sequence, COALESCE(pickup_time, ''), COALESCE(dropoff_time, '')
		FROM pickup_points
		WHERE route_id = ANY($1)
		ORDER BY route_id, sequence`, ids,
	)
	if err != nil {
		return nil, err
	}
	defer points.Close()
	for points.Next() {
		var p PickupPoint
		var id, routeID string
		if err := points.Scan(&id, &routeID, &p.Name, &p.Sequence, &p.PickupTime, &p.DropoffTime); err != nil {
			return nil, err
		}
		p.ID = types.ID(id)
		if i, ok := index[types.ID(routeID)]; ok {
			out[i].PickupPoints = append(out[i].PickupPoints, p)
		}
	}
	return out, points.Err()
}

func scanRoutes(rows pgx.Rows) ([]Route, error) {
	defer rows.Close()
	var out []Route
	for rows.Next() {
		var r Route
		var id, vehicleID string
		var driverID *string
		if err := rows.Scan(&id, &r.Name, &r.Capacity, &r.Active, &vehicleID, &r.VehicleType, &driverID); err != nil {
			return nil, err
		}
		r.ID = types.ID(id)
		r.VehicleID = types.ID(vehicleID)
		if driverID != nil {
			d := types.ID(*driverID)
			r.DriverID = &d
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
