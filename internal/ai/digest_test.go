package ai

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shuttle/internal/modules/analytics"
)

func TestParseDigestStripsFences(t *testing.T) {
	d, err := parseDigest("```json\n{\"headline\":\"ok\",\"highlights\":[\"a\"],\"risks\":[]}\n```")
	require.NoError(t, err)
	assert.Equal(t, "ok", d.Headline)
	assert.Equal(t, []string{"a"}, d.Highlights)
	assert.Equal(t, "gemini", d.Source)

	_, err = parseDigest("not json")
	assert.Error(t, err)
}

func TestBuildDigestPromptEmbedsSnapshot(t *testing.T) {
	p := buildDigestPrompt(`{"revenue":null}`)
	assert.Contains(t, p, `{"revenue":null}`)
	assert.Contains(t, p, "Respond with JSON only")
}

func TestRuleSummarizer(t *testing.T) {
	snap := &analytics.Snapshot{
		GeneratedAt: time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC),
		Revenue: &analytics.RevenueReport{
			From:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			Total:   decimal.RequireFromString("440"),
			Skipped: 2,
			Points:  []analytics.RevenuePoint{{Key: "2025-03-24", Bookings: 2, Revenue: decimal.RequireFromString("440")}},
		},
		Utilization: &analytics.UtilizationReport{Routes: []analytics.RouteUtilization{
			{RouteName: "North", Capacity: 10, Utilization: 100, Band: analytics.BandFull},
			{RouteName: "South", Capacity: 10, Utilization: 20, Band: analytics.BandLow},
		}},
	}
	d, err := RuleSummarizer{}.Digest(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, "440.00 revenue across 2 active routes since 2025-03-01", d.Headline)
	assert.Equal(t, []string{"week of 2025-03-24: 2 bookings, 440.00"}, d.Highlights)
	require.Len(t, d.Risks, 2)
	assert.Contains(t, d.Risks[0], "North is full")
	assert.Equal(t, "2 bookings could not be priced", d.Risks[1])

	_, err = RuleSummarizer{}.Digest(context.Background(), nil)
	assert.Error(t, err)
}
