package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosdata/listings-cli/internal/model"
)

var center = Point{Lat: 55.75578, Lng: 37.61786}

func TestFixLatLng(t *testing.T) {
	tests := []struct {
		name             string
		lat, lng         float64
		wantLat, wantLng float64
	}{
		{"already correct", 55.75, 37.61, 55.75, 37.61},
		{"swapped", 37.61, 55.75, 55.75, 37.61},
		{"equal stays", 50.0, 50.0, 50.0, 50.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lng := FixLatLng(tt.lat, tt.lng)
			assert.Equal(t, tt.wantLat, lat)
			assert.Equal(t, tt.wantLng, lng)
		})
	}
}

func TestHaversine_ZeroDistance(t *testing.T) {
	assert.Zero(t, Haversine(center, center))
}

func TestHaversine_KnownDistance(t *testing.T) {
	// City center to VDNKh main entrance, roughly 10.1 km.
	vdnkh := Point{Lat: 55.82663, Lng: 37.63773}
	d := Haversine(center, vdnkh)
	assert.InDelta(t, 10_100, d, 500)
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Point{Lat: 55.70, Lng: 37.50}
	b := Point{Lat: 55.80, Lng: 37.70}
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestNearest(t *testing.T) {
	stations := []Station{
		{Name: "Охотный ряд", Line: "Сокольническая", Type: "subway", Lat: 55.7573, Lng: 37.6156},
		{Name: "Киевская", Line: "Кольцевая", Type: "subway", Lat: 55.7435, Lng: 37.5646},
	}

	got, ok := Nearest(Point{Lat: 55.7560, Lng: 37.6170}, stations)
	require.True(t, ok)
	assert.Equal(t, "Охотный ряд", got.Name)
	assert.Equal(t, "Сокольническая", got.Line)
	assert.Less(t, got.DistanceMeters, 500.0)
}

func TestNearest_Empty(t *testing.T) {
	_, ok := Nearest(center, nil)
	assert.False(t, ok)
}

func TestCountWithin(t *testing.T) {
	p := Point{Lat: 55.75578, Lng: 37.61786}
	points := []Point{
		p,                                  // 0m
		{Lat: 55.75578, Lng: 37.61866},     // ~50m east
		{Lat: 55.75578, Lng: 37.62430},     // ~400m east
		{Lat: 55.76430, Lng: 37.61786},     // ~950m north
		{Lat: 55.79000, Lng: 37.61786},     // ~3.8km north
		{Lat: 55.90000, Lng: 37.61786},     // ~16km north
	}

	counts := CountWithin(p, points)
	assert.Equal(t, 1, counts["0m"])
	assert.Equal(t, 2, counts["100m"])
	assert.Equal(t, 3, counts["500m"])
	assert.Equal(t, 4, counts["1km"])
	assert.Equal(t, 5, counts["5km"])
}

func TestEnricher_Compute(t *testing.T) {
	e := &Enricher{
		Center: center,
		Stations: []Station{
			{Name: "Охотный ряд", Line: "Сокольническая", Type: "subway", Lat: 55.7573, Lng: 37.6156},
			{Name: "Тестовская", Line: "МЦД-1", Type: "mcd", Lat: 55.7530, Lng: 37.5320},
		},
	}

	rows := []model.PropertyRow{
		{PropertyID: "a", DealType: model.DealSaleSecondary, Lat: 55.7560, Lng: 37.6170},
		{PropertyID: "b", DealType: model.DealLongRent, Lat: 37.6170, Lng: 55.7560}, // swapped on purpose
	}

	feats := e.Compute(rows)
	// Both rows resolve to the same fixed coordinate.
	require.Len(t, feats, 1)

	f := feats[0]
	assert.Equal(t, 55.7560, f.Lat)
	assert.Less(t, f.DistanceToCenterMeters, 100.0)
	assert.Equal(t, "Охотный ряд", f.NearestSubway.Name)
	assert.Equal(t, "Тестовская", f.NearestMCD.Name)
	assert.Equal(t, 1, f.AdsWithin[model.DealSaleSecondary]["0m"])
	assert.Equal(t, 1, f.AdsWithin[model.DealLongRent]["0m"])
}

func TestEnricher_Compute_UniqueCoordinates(t *testing.T) {
	e := &Enricher{Center: center}
	rows := []model.PropertyRow{
		{PropertyID: "a", Lat: 55.70, Lng: 37.50},
		{PropertyID: "b", Lat: 55.70, Lng: 37.50},
		{PropertyID: "c", Lat: 55.71, Lng: 37.51},
	}
	feats := e.Compute(rows)
	assert.Len(t, feats, 2)
}
