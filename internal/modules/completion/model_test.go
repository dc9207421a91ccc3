package completion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatch(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	f := Filter{DriverID: "d1", From: from, To: to}

	assert.True(t, f.Match("d1", "r1", time.Date(2025, 3, 31, 22, 0, 0, 0, time.UTC)))
	assert.True(t, f.Match("d1", "r9", from))
	assert.False(t, f.Match("d2", "r1", from))
	assert.False(t, f.Match("d1", "r1", to.AddDate(0, 0, 1)))
	assert.False(t, f.Match("d1", "r1", from.AddDate(0, 0, -1)))

	assert.True(t, Filter{}.Match("any", "any", time.Now()))
	assert.False(t, Filter{RouteID: "r1"}.Match("d1", "r2", from))
}

func TestFilterClauses(t *testing.T) {
	where, args := Filter{}.clauses()
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = Filter{DriverID: "d1", To: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)}.clauses()
	assert.Equal(t, " WHERE driver_id = $1 AND service_date <= $2", where)
	assert.Len(t, args, 2)
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindRouteCompletion.Valid())
	assert.True(t, KindDailyPickup.Valid())
	assert.False(t, Kind("trip").Valid())
	assert.True(t, PeriodPM.Valid())
	assert.False(t, Period("noon").Valid())
}
