// README: Completion handlers: driver telemetry intake and corrective notes.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shuttle/internal/modules/completion"
	"shuttle/internal/types"
)

type CompletionStore interface {
	RecordRouteCompletion(ctx context.Context, c *completion.RouteCompletion) error
	RecordDailyPickup(ctx context.Context, p *completion.DailyPickup) error
	Annotate(ctx context.Context, kind completion.Kind, id int64, notes string) error
}

type CompletionHandler struct {
	store CompletionStore
}

func NewCompletionHandler(store CompletionStore) *CompletionHandler {
	return &CompletionHandler{store: store}
}

type recordReq struct {
	RouteID     string     `json:"route_id"`
	DriverID    string     `json:"driver_id"`
	BookingID   string     `json:"booking_id"`
	Date        string     `json:"date"`
	Period      string     `json:"period"`
	CompletedAt *time.Time `json:"completed_at"`
	Notes       string     `json:"notes"`
}

type notesReq struct {
	Notes string `json:"notes"`
}

func kindParam(c *gin.Context) (completion.Kind, bool) {
	kind := completion.Kind(c.Param("kind"))
	if !kind.Valid() {
		writeError(c, http.StatusBadRequest, "kind must be route_completion or daily_pickup")
		return kind, false
	}
	return kind, true
}

func (h *CompletionHandler) Record(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var req recordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	date, err := types.ParseDay(req.Date)
	if err != nil {
		writeError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	period := completion.Period(req.Period)
	switch {
	case req.RouteID == "" || req.DriverID == "":
		writeError(c, http.StatusBadRequest, "route_id and driver_id are required")
		return
	case !period.Valid():
		writeError(c, http.StatusBadRequest, "period must be am or pm")
		return
	case kind == completion.KindDailyPickup && req.BookingID == "":
		writeError(c, http.StatusBadRequest, "booking_id is required for daily pickups")
		return
	}

	ctx := c.Request.Context()
	var id int64
	if kind == completion.KindRouteCompletion {
		rc := &completion.RouteCompletion{
			RouteID:     types.ID(req.RouteID),
			DriverID:    types.ID(req.DriverID),
			Date:        date,
			Period:      period,
			CompletedAt: req.CompletedAt,
			Notes:       req.Notes,
		}
		err = h.store.RecordRouteCompletion(ctx, rc)
		id = rc.ID
	} else {
		dp := &completion.DailyPickup{
			BookingID:   types.ID(req.BookingID),
			RouteID:     types.ID(req.RouteID),
			DriverID:    types.ID(req.DriverID),
			Date:        date,
			Period:      period,
			CompletedAt: req.CompletedAt,
			Notes:       req.Notes,
		}
		err = h.store.RecordDailyPickup(ctx, dp)
		id = dp.ID
	}
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{"kind": kind, "id": id})
}

func (h *CompletionHandler) Annotate(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid record id")
		return
	}
	var req notesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.store.Annotate(c.Request.Context(), kind, id, req.Notes); err != nil {
		if errors.Is(err, completion.ErrNotFound) {
			writeError(c, http.StatusNotFound, err.Error())
			return
		}
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"kind": kind, "id": id, "notes": req.Notes})
}
