// README: Pricing service resolves plan prices through the route > vehicle type > global cascade.
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"shuttle/internal/types"
)

// RuleSource returns active rules for a plan type ordered by rule ID.
type RuleSource interface {
	ActiveByPlan(ctx context.Context, plan types.PlanType) ([]Rule, error)
}

type Service struct {
	store RuleSource
}

func NewService(store RuleSource) *Service {
	return &Service{store: store}
}

// Resolve returns the amount to charge for plan on target.
func (s *Service) Resolve(ctx context.Context, plan types.PlanType, target Target) (decimal.Decimal, error) {
	q, err := s.Quote(ctx, plan, target)
	if err != nil {
		return decimal.Zero, err
	}
	return q.Price.Amount, nil
}

func (s *Service) Quote(ctx context.Context, plan types.PlanType, target Target) (Quote, error) {
	rules, err := s.store.ActiveByPlan(ctx, plan)
	if err != nil {
		return Quote{}, fmt.Errorf("load pricing rules: %w", err)
	}
	r, ok := Select(rules, plan, target)
	if !ok {
		return Quote{}, &RuleNotFoundError{PlanType: plan, RouteID: target.RouteID}
	}
	return Quote{
		Price:  types.Money{Amount: r.Amount, Currency: r.Currency},
		Tier:   r.Tier(),
		RuleID: r.ID,
	}, nil
}

// Select applies the cascade to rules. Each tier is tried in full before the next one,
// and within a tier the first rule in slice order wins.
func Select(rules []Rule, plan types.PlanType, target Target) (Rule, bool) {
	matchers := []func(Rule) bool{
		func(r Rule) bool { return r.RouteID != nil && *r.RouteID == target.RouteID },
		func(r Rule) bool {
			return r.RouteID == nil && r.VehicleType != nil && target.VehicleType != "" && *r.VehicleType == target.VehicleType
		},
		func(r Rule) bool { return r.RouteID == nil && r.VehicleType == nil },
	}
	for _, match := range matchers {
		for _, r := range rules {
			if !r.Active || r.PlanType != plan {
				continue
			}
			if match(r) {
				return r, true
			}
		}
	}
	return Rule{}, false
}
