package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shuttle/internal/modules/calendar"
	"shuttle/internal/modules/completion"
	"shuttle/internal/modules/pricing"
	"shuttle/internal/types"
)

// Rules is an in-memory pricing rule source.
type Rules struct {
	mu    sync.Mutex
	rules []pricing.Rule
	calls int
}

func NewRules(rules ...pricing.Rule) *Rules {
	return &Rules{rules: rules}
}

func (s *Rules) ActiveByPlan(_ context.Context, plan types.PlanType) ([]pricing.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var out []pricing.Rule
	for _, r := range s.rules {
		if r.Active && r.PlanType == plan {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Rules) Create(_ context.Context, r *pricing.Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var max int64
	for _, existing := range s.rules {
		if existing.ID > max {
			max = existing.ID
		}
	}
	r.ID = max + 1
	s.rules = append(s.rules, *r)
	return nil
}

func (s *Rules) SetActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules[i].Active = active
			return nil
		}
	}
	return fmt.Errorf("%w: id %d", pricing.ErrRuleNotFound, id)
}

// Calls reports how many times rules were loaded.
func (s *Rules) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Calendar is an in-memory calendar event source.
type Calendar struct {
	mu     sync.Mutex
	events []calendar.Event
}

func NewCalendar(events ...calendar.Event) *Calendar {
	return &Calendar{events: events}
}

func (s *Calendar) Create(_ context.Context, e *calendar.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Date = types.Day(e.Date)
	e.ID = int64(len(s.events) + 1)
	s.events = append(s.events, *e)
	return nil
}

func (s *Calendar) EventsBetween(_ context.Context, from, to time.Time) ([]calendar.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, to = types.Day(from), types.Day(to)
	var out []calendar.Event
	for _, e := range s.events {
		d := types.Day(e.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Completions is an in-memory telemetry store.
type Completions struct {
	mu      sync.Mutex
	Routes  []completion.RouteCompletion
	Pickups []completion.DailyPickup
}

func (s *Completions) RouteCompletions(_ context.Context, f completion.Filter) ([]completion.RouteCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []completion.RouteCompletion
	for _, c := range s.Routes {
		if f.Match(c.DriverID, c.RouteID, c.Date) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Completions) DailyPickups(_ context.Context, f completion.Filter) ([]completion.DailyPickup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []completion.DailyPickup
	for _, p := range s.Pickups {
		if f.Match(p.DriverID, p.RouteID, p.Date) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Completions) Annotate(_ context.Context, kind completion.Kind, id int64, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case completion.KindRouteCompletion:
		for i := range s.Routes {
			if s.Routes[i].ID == id {
				s.Routes[i].Notes = notes
				return nil
			}
		}
	case completion.KindDailyPickup:
		for i := range s.Pickups {
			if s.Pickups[i].ID == id {
				s.Pickups[i].Notes = notes
				return nil
			}
		}
	default:
		return fmt.Errorf("unknown completion kind %q", kind)
	}
	return completion.ErrNotFound
}

func (s *Completions) RecordRouteCompletion(_ context.Context, c *completion.RouteCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = int64(len(s.Routes) + 1)
	c.Date = types.Day(c.Date)
	s.Routes = append(s.Routes, *c)
	return nil
}

func (s *Completions) RecordDailyPickup(_ context.Context, p *completion.DailyPickup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = int64(len(s.Pickups) + 1)
	p.Date = types.Day(p.Date)
	s.Pickups = append(s.Pickups, *p)
	return nil
}
