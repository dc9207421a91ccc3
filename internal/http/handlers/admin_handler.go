// README: Admin handlers: on-demand lifecycle sweep, pricing rule and calendar event maintenance.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"shuttle/internal/modules/booking"
	"shuttle/internal/modules/calendar"
	"shuttle/internal/modules/pricing"
	"shuttle/internal/types"
)

type RuleWriter interface {
	Create(ctx context.Context, r *pricing.Rule) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type EventWriter interface {
	Create(ctx context.Context, e *calendar.Event) error
}

type AdminHandler struct {
	booking *booking.Service
	rules   RuleWriter
	events  EventWriter
}

func NewAdminHandler(svc *booking.Service, rules RuleWriter, events EventWriter) *AdminHandler {
	return &AdminHandler{booking: svc, rules: rules, events: events}
}

func (h *AdminHandler) Sweep(c *gin.Context) {
	applied, ran, err := h.booking.SweepOnce(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		writeJSON(c, http.StatusInternalServerError, map[string]any{
			"error":   "sweep finished with errors",
			"applied": applied,
		})
		return
	}
	if !ran {
		writeJSON(c, http.StatusAccepted, map[string]any{"ran": false, "applied": 0})
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"ran": true, "applied": applied})
}

type ruleReq struct {
	PlanType    string  `json:"plan_type"`
	RouteID     *string `json:"route_id"`
	VehicleType *string `json:"vehicle_type"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Active      *bool   `json:"active"`
}

type ruleResp struct {
	ID          int64   `json:"id"`
	PlanType    string  `json:"plan_type"`
	Tier        string  `json:"tier"`
	RouteID     *string `json:"route_id,omitempty"`
	VehicleType *string `json:"vehicle_type,omitempty"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Active      bool    `json:"active"`
}

// CreateRule adds a pricing rule. Rules are active unless the body says otherwise.
func (h *AdminHandler) CreateRule(c *gin.Context) {
	var req ruleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(c, http.StatusBadRequest, "amount must be a decimal string")
		return
	}
	rule := &pricing.Rule{
		PlanType:    types.PlanType(req.PlanType),
		RouteID:     idPtr(req.RouteID),
		VehicleType: req.VehicleType,
		Amount:      amount,
		Currency:    req.Currency,
		Active:      req.Active == nil || *req.Active,
	}
	if rule.VehicleType != nil && *rule.VehicleType == "" {
		rule.VehicleType = nil
	}
	if rule.Currency == "" {
		rule.Currency = "USD"
	}
	if err := h.rules.Create(c.Request.Context(), rule); err != nil {
		writeDomainError(c, err)
		return
	}
	resp := ruleResp{
		ID:          rule.ID,
		PlanType:    string(rule.PlanType),
		Tier:        string(rule.Tier()),
		VehicleType: rule.VehicleType,
		Amount:      rule.Amount.StringFixed(2),
		Currency:    rule.Currency,
		Active:      rule.Active,
	}
	if rule.RouteID != nil {
		v := string(*rule.RouteID)
		resp.RouteID = &v
	}
	writeJSON(c, http.StatusCreated, resp)
}

type activeReq struct {
	Active *bool `json:"active"`
}

func (h *AdminHandler) SetRuleActive(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid rule id")
		return
	}
	var req activeReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		writeError(c, http.StatusBadRequest, "active is required")
		return
	}
	if err := h.rules.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"id": id, "active": *req.Active})
}

type eventReq struct {
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// CreateEvent records a holiday or closure. Bookings already admitted keep their end dates.
func (h *AdminHandler) CreateEvent(c *gin.Context) {
	var req eventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	date, err := types.ParseDay(req.Date)
	if err != nil {
		writeError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	e := &calendar.Event{Date: date, Kind: calendar.Kind(req.Kind), Description: req.Description}
	if err := h.events.Create(c.Request.Context(), e); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{
		"id":          e.ID,
		"date":        types.FormatDay(e.Date),
		"kind":        e.Kind,
		"description": e.Description,
	})
}
