// README: Booking handlers for create/get/update, lifecycle transitions and history.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shuttle/internal/modules/booking"
	"shuttle/internal/modules/pricing"
	"shuttle/internal/types"
)

type BookingHandler struct {
	booking *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{booking: svc}
}

type bookingReq struct {
	StudentID        string   `json:"student_id"`
	RouteID          string   `json:"route_id"`
	PickupPointID    *string  `json:"pickup_point_id"`
	PickupAddress    string   `json:"pickup_address"`
	PickupLat        *float64 `json:"pickup_lat"`
	PickupLng        *float64 `json:"pickup_lng"`
	DropoffPointID   *string  `json:"dropoff_point_id"`
	PlanType         string   `json:"plan_type"`
	TripType         string   `json:"trip_type"`
	StartDate        string   `json:"start_date"`
	EndDate          *string  `json:"end_date"`
	PaymentRef       *string  `json:"payment_ref"`
	RequiresApproval bool     `json:"requires_approval"`
}

type transitionReq struct {
	ActorType string `json:"actor_type"`
}

type quoteResp struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Tier     string `json:"tier"`
	RuleID   int64  `json:"rule_id"`
}

type bookingResp struct {
	ID             string     `json:"id"`
	StudentID      string     `json:"student_id"`
	RouteID        string     `json:"route_id"`
	PickupPointID  *types.ID  `json:"pickup_point_id,omitempty"`
	PickupAddress  string     `json:"pickup_address,omitempty"`
	PickupLat      *float64   `json:"pickup_lat,omitempty"`
	PickupLng      *float64   `json:"pickup_lng,omitempty"`
	DropoffPointID *types.ID  `json:"dropoff_point_id,omitempty"`
	PlanType       string     `json:"plan_type"`
	TripType       string     `json:"trip_type"`
	Status         string     `json:"status"`
	StatusVersion  int        `json:"status_version"`
	StartDate      string     `json:"start_date"`
	EndDate        string     `json:"end_date,omitempty"`
	PaymentRef     *string    `json:"payment_ref,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Price          *quoteResp `json:"price,omitempty"`
	DryRun         bool       `json:"dry_run,omitempty"`
}

type eventResp struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorType  string    `json:"actor_type"`
	CreatedAt  time.Time `json:"created_at"`
}

func toBookingResp(b *booking.Booking) bookingResp {
	resp := bookingResp{
		ID:             string(b.ID),
		StudentID:      string(b.StudentID),
		RouteID:        string(b.RouteID),
		PickupPointID:  b.Pickup.PointID,
		PickupAddress:  b.Pickup.Address,
		PickupLat:      b.Pickup.Lat,
		PickupLng:      b.Pickup.Lng,
		DropoffPointID: b.DropoffPointID,
		PlanType:       string(b.PlanType),
		TripType:       string(b.TripType),
		Status:         string(b.Status),
		StatusVersion:  b.StatusVersion,
		StartDate:      types.FormatDay(b.StartDate),
		PaymentRef:     b.PaymentRef,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	if b.EndDate != nil {
		resp.EndDate = types.FormatDay(*b.EndDate)
	}
	return resp
}

func toQuoteResp(q pricing.Quote) *quoteResp {
	return &quoteResp{
		Amount:   q.Price.Amount.StringFixed(2),
		Currency: q.Price.Currency,
		Tier:     string(q.Tier),
		RuleID:   q.RuleID,
	}
}

func toResultResp(res *booking.Result) bookingResp {
	resp := toBookingResp(res.Booking)
	resp.Price = toQuoteResp(res.Quote)
	resp.DryRun = res.DryRun
	return resp
}

// terms holds the request fields shared by create and update.
type terms struct {
	pickup  booking.Pickup
	start   time.Time
	end     *time.Time
	dropoff *types.ID
}

func (r bookingReq) terms() (terms, error) {
	start, err := parseDay(r.StartDate)
	if err != nil {
		return terms{}, err
	}
	end, err := parseDayPtr(r.EndDate)
	if err != nil {
		return terms{}, err
	}
	return terms{
		pickup: booking.Pickup{
			PointID: idPtr(r.PickupPointID),
			Address: r.PickupAddress,
			Lat:     r.PickupLat,
			Lng:     r.PickupLng,
		},
		start:   start,
		end:     end,
		dropoff: idPtr(r.DropoffPointID),
	}, nil
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req bookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := req.terms()
	if err != nil {
		writeError(c, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	}
	dryRun := c.Query("dry_run") == "true"
	res, err := h.booking.Create(c.Request.Context(), booking.CreateCommand{
		StudentID:        types.ID(req.StudentID),
		RouteID:          types.ID(req.RouteID),
		Pickup:           t.pickup,
		DropoffPointID:   t.dropoff,
		PlanType:         types.PlanType(req.PlanType),
		TripType:         booking.TripType(req.TripType),
		StartDate:        t.start,
		EndDate:          t.end,
		PaymentRef:       req.PaymentRef,
		RequiresApproval: req.RequiresApproval,
		DryRun:           dryRun,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	status := http.StatusCreated
	if dryRun {
		status = http.StatusOK
	}
	writeJSON(c, status, toResultResp(res))
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.booking.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResp(b))
}

func (h *BookingHandler) Update(c *gin.Context) {
	var req bookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := req.terms()
	if err != nil {
		writeError(c, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	}
	res, err := h.booking.Update(c.Request.Context(), booking.UpdateCommand{
		BookingID:      types.ID(c.Param("id")),
		RouteID:        types.ID(req.RouteID),
		Pickup:         t.pickup,
		DropoffPointID: t.dropoff,
		PlanType:       types.PlanType(req.PlanType),
		TripType:       booking.TripType(req.TripType),
		StartDate:      t.start,
		EndDate:        t.end,
		PaymentRef:     req.PaymentRef,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toResultResp(res))
}

func (h *BookingHandler) Approve(c *gin.Context) {
	h.transition(c, h.booking.Approve)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	h.transition(c, h.booking.Cancel)
}

func (h *BookingHandler) Refund(c *gin.Context) {
	h.transition(c, h.booking.Refund)
}

type transitionFunc func(ctx context.Context, cmd booking.TransitionCommand) (*booking.Booking, error)

func (h *BookingHandler) transition(c *gin.Context, apply transitionFunc) {
	var req transitionReq
	// The body is optional; an empty one keeps the default actor.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	b, err := apply(c.Request.Context(), booking.TransitionCommand{
		BookingID: types.ID(c.Param("id")),
		ActorType: req.ActorType,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResp(b))
}

func (h *BookingHandler) History(c *gin.Context) {
	events, err := h.booking.History(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, eventResp{
			FromStatus: string(e.FromStatus),
			ToStatus:   string(e.ToStatus),
			ActorType:  e.ActorType,
			CreatedAt:  e.CreatedAt,
		})
	}
	writeJSON(c, http.StatusOK, map[string]any{"events": out})
}
