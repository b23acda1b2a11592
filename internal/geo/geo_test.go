package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceMiles_Symmetry(t *testing.T) {
	pairs := [][4]float64{
		{32.7767, -96.7970, 32.7555, -97.3308}, // Dallas ↔ Fort Worth
		{29.7604, -95.3698, 30.2672, -97.7431}, // Houston ↔ Austin
		{40.7128, -74.0060, 34.0522, -118.2437},
	}
	for _, p := range pairs {
		ab := DistanceMiles(p[0], p[1], p[2], p[3])
		ba := DistanceMiles(p[2], p[3], p[0], p[1])
		assert.Equal(t, ab, ba)
	}
}

func TestDistanceMiles_Identity(t *testing.T) {
	assert.Equal(t, 0.0, DistanceMiles(32.7767, -96.7970, 32.7767, -96.7970))
}

func TestDistanceMiles_KnownDistance(t *testing.T) {
	// Dallas to Fort Worth is roughly 30 miles.
	d := DistanceMiles(32.7767, -96.7970, 32.7555, -97.3308)
	assert.InDelta(t, 31.0, d, 2.0)
}

func TestDistanceMiles_TriangleInequality(t *testing.T) {
	a := [2]float64{32.7767, -96.7970}
	b := [2]float64{32.7555, -97.3308}
	c := [2]float64{33.0198, -96.6989}

	ab := DistanceMiles(a[0], a[1], b[0], b[1])
	bc := DistanceMiles(b[0], b[1], c[0], c[1])
	ac := DistanceMiles(a[0], a[1], c[0], c[1])

	assert.LessOrEqual(t, ac, ab+bc+1e-9)
}

func TestDistanceMiles_NonFiniteInputs(t *testing.T) {
	assert.True(t, math.IsNaN(DistanceMiles(math.NaN(), 0, 32, -96)))
	assert.True(t, math.IsNaN(DistanceMiles(32, math.Inf(1), 32, -96)))
}

func TestValidCoordinate(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		want     bool
	}{
		{"dallas", 32.7767, -96.7970, true},
		{"null island", 0, 0, false},
		{"nan lat", math.NaN(), -96.7, false},
		{"inf lng", 32.7, math.Inf(-1), false},
		{"lat out of range", 91, 0, false},
		{"lng out of range", 0, 181, false},
		{"equator non-zero lng", 0, -78.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCoordinate(tt.lat, tt.lng))
		})
	}
}

// dfwRegion is a rough quadrilateral around the Dallas-Fort Worth metro.
var dfwRegion = Polygon{
	{Lat: 33.3, Lng: -97.6},
	{Lat: 33.3, Lng: -96.2},
	{Lat: 32.4, Lng: -96.2},
	{Lat: 32.4, Lng: -97.6},
}

func TestPointInPolygon_CentroidInside(t *testing.T) {
	c := dfwRegion.Centroid()
	assert.True(t, PointInPolygon(c.Lat, c.Lng, dfwRegion))
}

func TestPointInPolygon_FarOutside(t *testing.T) {
	// Roughly 100+ miles east of any vertex.
	assert.False(t, PointInPolygon(32.8, -94.0, dfwRegion))
}

func TestPointInPolygon_NonConvex(t *testing.T) {
	// A "C" shape: the notch on the right side is outside the polygon.
	c := Polygon{
		{Lat: 0, Lng: 0},
		{Lat: 4, Lng: 0},
		{Lat: 4, Lng: 4},
		{Lat: 3, Lng: 4},
		{Lat: 3, Lng: 1},
		{Lat: 1, Lng: 1},
		{Lat: 1, Lng: 4},
		{Lat: 0, Lng: 4},
	}
	assert.True(t, PointInPolygon(0.5, 2, c)) // bottom arm
	assert.True(t, PointInPolygon(3.5, 2, c)) // top arm
	assert.False(t, PointInPolygon(2, 3, c))  // inside the notch
	assert.False(t, PointInPolygon(2, 5, c))  // right of everything
}

func TestPointInPolygon_DegenerateAndInvalid(t *testing.T) {
	assert.False(t, PointInPolygon(1, 1, Polygon{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}}))
	assert.False(t, PointInPolygon(math.NaN(), 1, dfwRegion))
}

func TestPolygonValidate(t *testing.T) {
	require.NoError(t, dfwRegion.Validate())

	assert.Error(t, Polygon{}.Validate())
	assert.Error(t, Polygon{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}}.Validate())
	assert.Error(t, Polygon{{Lat: math.NaN(), Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}.Validate())
	assert.Error(t, Polygon{{Lat: 95, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}.Validate())
}
