// README: Pricing rule store backed by PostgreSQL.
package pricing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"shuttle/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) ActiveByPlan(ctx context.Context, plan types.PlanType) ([]Rule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, plan_type, route_id, vehicle_type, amount::text, currency, is_active
		FROM pricing_rules
		WHERE plan_type = $1 AND is_active
		ORDER BY id`, string(plan),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		var r Rule
		var planType, amount string
		var routeID, vehicleType *string
		if err := rows.Scan(&r.ID, &planType, &routeID, &vehicleType, &amount, &r.Currency, &r.Active); err != nil {
			return nil, err
		}
		r.PlanType = types.PlanType(planType)
		if routeID != nil {
			id := types.ID(*routeID)
			r.RouteID = &id
		}
		r.VehicleType = vehicleType
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("pricing rule %d amount: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, r *Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	var routeID *string
	if r.RouteID != nil {
		v := string(*r.RouteID)
		routeID = &v
	}
	return s.db.QueryRow(ctx, `
		INSERT INTO pricing_rules (plan_type, route_id, vehicle_type, amount, currency, is_active)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)
		RETURNING id`,
		string(r.PlanType), routeID, r.VehicleType, r.Amount.String(), r.Currency, r.Active,
	).Scan(&r.ID)
}

// SetActive soft-enables or disables a rule.
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE pricing_rules SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrRuleNotFound, id)
	}
	return nil
}
