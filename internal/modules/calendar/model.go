// README: Calendar events that mark a civil date as a non-service day.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidEvent = errors.New("invalid calendar event")

type Kind string

const (
	KindHoliday Kind = "holiday"
	KindClosure Kind = "closure"
)

type Event struct {
	ID          int64
	Date        time.Time
	Kind        Kind
	Description string
}

// Blocks reports whether the event makes its date a non-service day.
func (e Event) Blocks() bool {
	return e.Kind == KindHoliday || e.Kind == KindClosure
}

// Validate accepts only dated events that block service.
func (e Event) Validate() error {
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidEvent)
	}
	if !e.Blocks() {
		return fmt.Errorf("%w: kind must be holiday or closure", ErrInvalidEvent)
	}
	return nil
}

const (
	// nextServiceDayScan bounds how far NextServiceDay looks ahead.
	nextServiceDayScan = 30
)
