// README: Base handler utilities (JSON helpers, error mapping, query parsing).
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shuttle/internal/modules/analytics"
	"shuttle/internal/modules/booking"
	"shuttle/internal/modules/calendar"
	"shuttle/internal/modules/capacity"
	"shuttle/internal/modules/fleet"
	"shuttle/internal/modules/pricing"
	"shuttle/internal/types"
)

type errorResponse struct {
	Error             string `json:"error"`
	SuggestedDate     string `json:"suggested_date,omitempty"`
	ExistingBookingID string `json:"existing_booking_id,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeDomainError maps module errors to HTTP statuses. Unknown errors are logged by the
// access log as a 500 and never echoed to the client.
func writeDomainError(c *gin.Context, err error) {
	var dateErr *booking.InvalidServiceDateError
	if errors.As(err, &dateErr) {
		resp := errorResponse{Error: err.Error()}
		if !dateErr.Suggested.IsZero() && !dateErr.Suggested.Equal(dateErr.Date) {
			resp.SuggestedDate = types.FormatDay(dateErr.Suggested)
		}
		writeJSON(c, http.StatusUnprocessableEntity, resp)
		return
	}
	var overlapErr *booking.OverlapError
	if errors.As(err, &overlapErr) {
		writeJSON(c, http.StatusConflict, errorResponse{
			Error:             err.Error(),
			ExistingBookingID: string(overlapErr.Existing.ID),
		})
		return
	}

	switch {
	case errors.Is(err, booking.ErrBadRequest),
		errors.Is(err, analytics.ErrInvalidFilter),
		errors.Is(err, pricing.ErrInvalidRule),
		errors.Is(err, calendar.ErrInvalidEvent):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, fleet.ErrRouteNotFound),
		errors.Is(err, fleet.ErrDriverNotFound),
		errors.Is(err, pricing.ErrRuleNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, capacity.ErrCapacityExceeded),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// parseDay reads an optional YYYY-MM-DD value; the zero time means absent.
func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return types.ParseDay(v)
}

func parseDayPtr(v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	d, err := types.ParseDay(*v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func idPtr(v *string) *types.ID {
	if v == nil || *v == "" {
		return nil
	}
	id := types.ID(*v)
	return &id
}
