package ai

import (
	"context"
	"fmt"

	"shuttle/internal/modules/analytics"
)

// RuleSummarizer builds a digest without a model. Used when no Gemini key is configured.
type RuleSummarizer struct{}

func (RuleSummarizer) Digest(_ context.Context, snap *analytics.Snapshot) (*Digest, error) {
	if snap == nil {
		return nil, fmt.Errorf("empty snapshot")
	}
	d := &Digest{Source: "rules", Highlights: []string{}, Risks: []string{}}

	routes := 0
	if snap.Utilization != nil {
		routes = len(snap.Utilization.Routes)
		for _, r := range snap.Utilization.Routes {
			if r.Band == analytics.BandFull || r.Band == analytics.BandHigh {
				d.Risks = append(d.Risks, fmt.Sprintf("route %s is %s (%.2f%% of %d seats)", r.RouteName, r.Band, r.Utilization, r.Capacity))
			}
		}
	}
	if snap.Revenue != nil {
		d.Headline = fmt.Sprintf("%s revenue across %d active routes since %s",
			snap.Revenue.Total.StringFixed(2), routes, snap.Revenue.From.Format("2006-01-02"))
		for _, p := range snap.Revenue.Points {
			d.Highlights = append(d.Highlights, fmt.Sprintf("week of %s: %d bookings, %s", p.Key, p.Bookings, p.Revenue.StringFixed(2)))
		}
		if snap.Revenue.Skipped > 0 {
			d.Risks = append(d.Risks, fmt.Sprintf("%d bookings could not be priced", snap.Revenue.Skipped))
		}
	}
	return d, nil
}
