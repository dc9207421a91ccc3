// README: Pricing rules and the specificity tiers they resolve through.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"shuttle/internal/types"
)

type Rule struct {
	ID          int64
	PlanType    types.PlanType
	RouteID     *types.ID
	VehicleType *string
	Amount      decimal.Decimal
	Currency    string
	Active      bool
}

type Tier string

const (
	TierRoute       Tier = "route"
	TierVehicleType Tier = "vehicle_type"
	TierGlobal      Tier = "global"
)

// Tier derives specificity from which references the rule carries.
func (r Rule) Tier() Tier {
	switch {
	case r.RouteID != nil:
		return TierRoute
	case r.VehicleType != nil:
		return TierVehicleType
	default:
		return TierGlobal
	}
}

// Target is what a price is resolved for: a route and the type of vehicle serving it.
type Target struct {
	RouteID     types.ID
	VehicleType string
}

type Quote struct {
	Price  types.Money
	Tier   Tier
	RuleID int64
}

var (
	ErrRuleNotFound = errors.New("pricing rule not found")
	ErrInvalidRule  = errors.New("invalid pricing rule")
)

// Validate checks a rule before it is stored.
func (r Rule) Validate() error {
	switch {
	case !r.PlanType.Valid():
		return fmt.Errorf("%w: unknown plan type %q", ErrInvalidRule, r.PlanType)
	case !r.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRule)
	case r.Currency == "":
		return fmt.Errorf("%w: currency is required", ErrInvalidRule)
	}
	return nil
}

type RuleNotFoundError struct {
	PlanType types.PlanType
	RouteID  types.ID
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("no active pricing rule for plan %q on route %s", e.PlanType, e.RouteID)
}

func (e *RuleNotFoundError) Unwrap() error { return ErrRuleNotFound }
