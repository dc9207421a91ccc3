package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayTruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	in := time.Date(2025, 3, 9, 23, 45, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), Day(in))
}

func TestParseAndFormatDay(t *testing.T) {
	d, err := ParseDay("2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-31", FormatDay(d))

	_, err = ParseDay("31/01/2025")
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	b := time.Date(2025, 1, 31, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, DaysBetween(a, b))
	assert.Equal(t, -30, DaysBetween(b, a))
}

func TestPlanTypeValid(t *testing.T) {
	assert.True(t, PlanAcademicTerm.Valid())
	assert.False(t, PlanType("daily").Valid())
}
