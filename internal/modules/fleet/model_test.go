package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstPointUsesLowestSequence(t *testing.T) {
	r := Route{PickupPoints: []PickupPoint{
		{ID: "b", Sequence: 2, PickupTime: "07:40"},
		{ID: "a", Sequence: 1, PickupTime: "07:30"},
	}}
	p, ok := r.FirstPoint()
	require.True(t, ok)
	assert.Equal(t, "a", string(p.ID))
	assert.Equal(t, "b", string(r.PickupPoints[0].ID), "route order untouched")

	_, ok = Route{}.FirstPoint()
	assert.False(t, ok)
}

func TestPointLookup(t *testing.T) {
	r := Route{PickupPoints: []PickupPoint{{ID: "p1"}, {ID: "p2", Name: "Gate"}}}
	p, ok := r.Point("p2")
	require.True(t, ok)
	assert.Equal(t, "Gate", p.Name)

	_, ok = r.Point("p3")
	assert.False(t, ok)
}

func TestScheduledAt(t *testing.T) {
	day := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)

	got, ok := ScheduledAt(day, "07:45", nil)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 4, 7, 45, 0, 0, time.UTC), got)

	taipei := time.FixedZone("UTC+8", 8*3600)
	got, ok = ScheduledAt(day, "07:45", taipei)
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2025, 3, 3, 23, 45, 0, 0, time.UTC)))

	_, ok = ScheduledAt(day, "", nil)
	assert.False(t, ok)
	_, ok = ScheduledAt(day, "7.45am", nil)
	assert.False(t, ok)
}
