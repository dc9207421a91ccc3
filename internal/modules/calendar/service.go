// README: Calendar service loads events for a window and hands out pure Calendar values.
package calendar

import (
	"context"
	"fmt"
	"time"

	"shuttle/internal/types"
)

// Source is the calendar-event query surface.
type Source interface {
	EventsBetween(ctx context.Context, from, to time.Time) ([]Event, error)
}

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// Window loads every event in [from, to] into a Calendar.
func (s *Service) Window(ctx context.Context, from, to time.Time) (*Calendar, error) {
	events, err := s.source.EventsBetween(ctx, types.Day(from), types.Day(to))
	if err != nil {
		return nil, fmt.Errorf("load calendar events: %w", err)
	}
	return New(events...), nil
}

// BookingWindow covers everything a booking starting on start can touch: the longest plan
// plus the NextServiceDay look-ahead and the single-pass extension tail.
func (s *Service) BookingWindow(ctx context.Context, start time.Time) (*Calendar, error) {
	from := types.Day(start)
	return s.Window(ctx, from, from.AddDate(1, 2, 0))
}

// LookAhead loads date and the days NextServiceDay may scan after it.
func (s *Service) LookAhead(ctx context.Context, date time.Time) (*Calendar, error) {
	from := types.Day(date)
	return s.Window(ctx, from, from.AddDate(0, 0, nextServiceDayScan))
}
