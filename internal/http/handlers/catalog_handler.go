// README: Read-only lookups for clients building a booking: price quotes, free seats, service days.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"shuttle/internal/modules/calendar"
	"shuttle/internal/modules/capacity"
	"shuttle/internal/modules/fleet"
	"shuttle/internal/modules/pricing"
	"shuttle/internal/types"
)

type RouteReader interface {
	Get(ctx context.Context, id types.ID) (*fleet.Route, error)
}

type CatalogHandler struct {
	routes   RouteReader
	pricing  *pricing.Service
	seats    *capacity.Guard
	calendar *calendar.Service
}

func NewCatalogHandler(routes RouteReader, pricingSvc *pricing.Service, guard *capacity.Guard, cal *calendar.Service) *CatalogHandler {
	return &CatalogHandler{routes: routes, pricing: pricingSvc, seats: guard, calendar: cal}
}

func (h *CatalogHandler) Quote(c *gin.Context) {
	plan := types.PlanType(c.Query("plan_type"))
	routeID := c.Query("route_id")
	if !plan.Valid() || routeID == "" {
		writeError(c, http.StatusBadRequest, "plan_type and route_id are required")
		return
	}
	ctx := c.Request.Context()
	route, err := h.routes.Get(ctx, types.ID(routeID))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	q, err := h.pricing.Quote(ctx, plan, pricing.Target{RouteID: route.ID, VehicleType: route.VehicleType})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{
		"plan_type": plan,
		"route_id":  route.ID,
		"price":     toQuoteResp(q),
	})
}

func (h *CatalogHandler) Seats(c *gin.Context) {
	ctx := c.Request.Context()
	route, err := h.routes.Get(ctx, types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	available, err := h.seats.AvailableSeats(ctx, *route, nil)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{
		"route_id":  route.ID,
		"capacity":  route.Capacity,
		"available": available,
		"active":    route.Active,
	})
}

type calendarDayResp struct {
	Date           string `json:"date"`
	ServiceDay     bool   `json:"service_day"`
	Kind           string `json:"kind,omitempty"`
	Description    string `json:"description,omitempty"`
	NextServiceDay string `json:"next_service_day"`
}

func (h *CatalogHandler) CalendarDay(c *gin.Context) {
	date, err := types.ParseDay(c.Param("date"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	cal, err := h.calendar.LookAhead(c.Request.Context(), date)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	resp := calendarDayResp{
		Date:           types.FormatDay(date),
		ServiceDay:     cal.IsServiceDay(date),
		NextServiceDay: types.FormatDay(cal.NextServiceDay(date)),
	}
	if ev, ok := cal.EventOn(date); ok {
		resp.Kind = string(ev.Kind)
		resp.Description = ev.Description
	}
	writeJSON(c, http.StatusOK, resp)
}
