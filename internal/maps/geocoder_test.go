package maps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

type fakeAPI struct {
	results []maps.GeocodingResult
	got     *maps.GeocodingRequest
}

func (f *fakeAPI) Geocode(_ context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	f.got = r
	return f.results, nil
}

func TestGeocodeTakesFirstResult(t *testing.T) {
	api := &fakeAPI{results: []maps.GeocodingResult{
		{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 25.03, Lng: 121.56}}},
		{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 1, Lng: 1}}},
	}}
	g := &Geocoder{client: api, region: "tw"}

	pt, err := g.Geocode(context.Background(), "Taipei 101")
	require.NoError(t, err)
	assert.InDelta(t, 25.03, pt.Lat, 1e-9)
	assert.InDelta(t, 121.56, pt.Lng, 1e-9)
	assert.Equal(t, "tw", api.got.Region)
}

func TestGeocodeNoResults(t *testing.T) {
	g := &Geocoder{client: &fakeAPI{}}
	_, err := g.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoResults)
}
