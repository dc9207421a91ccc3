// README: Booking errors. Typed errors unwrap to the package sentinels.
package booking

import (
	"errors"
	"fmt"
	"time"

	"shuttle/internal/modules/calendar"
	"shuttle/internal/types"
)

var (
	ErrBadRequest         = errors.New("bad request")
	ErrNotFound           = errors.New("booking not found")
	ErrConflict           = errors.New("booking state conflict")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrOverlap            = errors.New("overlapping booking")
	ErrInvalidServiceDate = errors.New("start date is not a service day")
)

type TransitionError struct {
	From  Status
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s booking", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

type OverlapError struct {
	Existing Booking
}

func (e *OverlapError) Error() string {
	end := "open-ended"
	if e.Existing.EndDate != nil {
		end = types.FormatDay(*e.Existing.EndDate)
	}
	return fmt.Sprintf("student already has %s booking %s for %s to %s",
		e.Existing.Status, e.Existing.ID, types.FormatDay(e.Existing.StartDate), end)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

type InvalidServiceDateError struct {
	Date      time.Time
	Event     calendar.Event
	Suggested time.Time
}

func (e *InvalidServiceDateError) Error() string {
	msg := fmt.Sprintf("%s is a %s", types.FormatDay(e.Date), e.Event.Kind)
	if e.Event.Description != "" {
		msg += " (" + e.Event.Description + ")"
	}
	if !e.Suggested.IsZero() && !e.Suggested.Equal(e.Date) {
		msg += "; next service day is " + types.FormatDay(e.Suggested)
	}
	return msg
}

func (e *InvalidServiceDateError) Unwrap() error { return ErrInvalidServiceDate }

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
