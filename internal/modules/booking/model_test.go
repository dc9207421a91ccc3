package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func TestNextTransitionTable(t *testing.T) {
	cases := []struct {
		from Status
		ev   Event
		want Status
		ok   bool
	}{
		{StatusPending, EventActivate, StatusActive, true},
		{StatusActive, EventExpire, StatusExpired, true},
		{StatusPending, EventApprove, StatusActive, true},
		{StatusAwaitingApproval, EventApprove, StatusActive, true},
		{StatusPending, EventCancel, StatusCancelled, true},
		{StatusAwaitingApproval, EventCancel, StatusCancelled, true},
		{StatusActive, EventCancel, StatusCancelled, true},
		{StatusActive, EventRefund, StatusRefunded, true},
		// rejected
		{StatusAwaitingApproval, EventActivate, StatusAwaitingApproval, false},
		{StatusPending, EventExpire, StatusPending, false},
		{StatusPending, EventRefund, StatusPending, false},
		{StatusActive, EventApprove, StatusActive, false},
		{StatusCancelled, EventApprove, StatusCancelled, false},
		{StatusExpired, EventActivate, StatusExpired, false},
		{StatusRefunded, EventCancel, StatusRefunded, false},
		{StatusCompleted, EventRefund, StatusCompleted, false},
	}
	for _, tc := range cases {
		got, err := Next(tc.from, tc.ev)
		assert.Equal(t, tc.want, got, "%s/%s", tc.from, tc.ev)
		if tc.ok {
			assert.NoError(t, err)
			continue
		}
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		var te *TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, tc.from, te.From)
		assert.Equal(t, tc.ev, te.Event)
	}
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	events := []Event{EventActivate, EventExpire, EventApprove, EventCancel, EventRefund}
	for _, s := range []Status{StatusCancelled, StatusExpired, StatusCompleted, StatusRefunded} {
		require.True(t, s.Terminal())
		for _, ev := range events {
			assert.False(t, CanTransition(s, ev), "%s/%s", s, ev)
		}
	}
}

func TestDueEvent(t *testing.T) {
	today := date("2025-03-10")
	cases := []struct {
		name string
		b    Booking
		want Event
		due  bool
	}{
		{"pending starts today", Booking{Status: StatusPending, StartDate: today}, EventActivate, true},
		{"pending starts tomorrow", Booking{Status: StatusPending, StartDate: today.AddDate(0, 0, 1)}, "", false},
		{"active ended yesterday", Booking{Status: StatusActive, StartDate: date("2025-03-01"), EndDate: datePtr("2025-03-09")}, EventExpire, true},
		{"active ends today", Booking{Status: StatusActive, StartDate: date("2025-03-01"), EndDate: datePtr("2025-03-10")}, "", false},
		{"active open-ended", Booking{Status: StatusActive, StartDate: date("2024-03-01")}, "", false},
		{"awaiting approval never auto-activates", Booking{Status: StatusAwaitingApproval, StartDate: date("2025-01-01")}, "", false},
		{"terminal", Booking{Status: StatusCancelled, StartDate: date("2025-01-01")}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, due := DueEvent(tc.b, today.Add(13*time.Hour))
			assert.Equal(t, tc.due, due)
			assert.Equal(t, tc.want, ev)
		})
	}
}

func TestOverlapWindow(t *testing.T) {
	from, to := OverlapWindow(date("2025-01-15"), nil)
	assert.Equal(t, date("2025-01-15"), from)
	assert.Equal(t, date("2026-01-15"), to)

	_, to = OverlapWindow(date("2025-01-15"), datePtr("2025-02-15"))
	assert.Equal(t, date("2025-02-15"), to)
}

func TestOverlapsInclusiveBounds(t *testing.T) {
	existing := Booking{StartDate: date("2025-01-01"), EndDate: datePtr("2025-01-31")}
	assert.True(t, existing.Overlaps(date("2025-01-15"), date("2025-02-15")))
	assert.True(t, existing.Overlaps(date("2025-01-31"), date("2025-02-15")), "shared last day")
	assert.True(t, existing.Overlaps(date("2024-12-01"), date("2025-01-01")), "shared first day")
	assert.False(t, existing.Overlaps(date("2025-02-01"), date("2025-02-28")))
	assert.False(t, existing.Overlaps(date("2024-12-01"), date("2024-12-31")))

	open := Booking{StartDate: date("2025-01-01")}
	assert.True(t, open.Overlaps(date("2030-01-01"), date("2030-02-01")))
}

func TestErrorMessagesNameTheConflict(t *testing.T) {
	err := &OverlapError{Existing: Booking{ID: "b1", Status: StatusActive, StartDate: date("2025-01-01"), EndDate: datePtr("2025-01-31")}}
	assert.Contains(t, err.Error(), "2025-01-01 to 2025-01-31")
	assert.ErrorIs(t, err, ErrOverlap)
}
