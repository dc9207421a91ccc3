package memstore

import (
	"context"
	"sort"
	"sync"

	"shuttle/internal/modules/fleet"
	"shuttle/internal/types"
)

// Routes is an in-memory fleet read surface.
type Routes struct {
	mu      sync.RWMutex
	routes  map[types.ID]fleet.Route
	drivers map[types.ID]fleet.Driver
}

func NewRoutes(routes ...fleet.Route) *Routes {
	s := &Routes{routes: map[types.ID]fleet.Route{}, drivers: map[types.ID]fleet.Driver{}}
	for _, r := range routes {
		s.routes[r.ID] = r
	}
	return s
}

func (s *Routes) PutDriver(d fleet.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[d.ID] = d
}

func (s *Routes) lookup(id types.ID) (fleet.Route, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[id]
	return r, ok
}

func (s *Routes) Get(_ context.Context, id types.ID) (*fleet.Route, error) {
	r, ok := s.lookup(id)
	if !ok {
		return nil, fleet.ErrRouteNotFound
	}
	return &r, nil
}

func (s *Routes) ListAll(_ context.Context) ([]fleet.Route, error) {
	return s.list(func(fleet.Route) bool { return true }), nil
}

func (s *Routes) ListActive(_ context.Context) ([]fleet.Route, error) {
	return s.list(func(r fleet.Route) bool { return r.Active }), nil
}

func (s *Routes) ListDrivers(_ context.Context) ([]fleet.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]fleet.Driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Routes) GetDriver(_ context.Context, id types.ID) (*fleet.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, fleet.ErrDriverNotFound
	}
	return &d, nil
}

func (s *Routes) list(keep func(fleet.Route) bool) []fleet.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []fleet.Route
	for _, r := range s.routes {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
