// Package geo provides the spherical-distance and point-in-polygon primitives
// shared by the region filter, the clustering engine, and the hotspot detector.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// EarthRadiusMiles is the mean Earth radius used for great-circle distances.
const EarthRadiusMiles = 3959.0

// MilesPerDegreeLat is the approximate north-south extent of one degree of
// latitude. Longitude degrees shrink by cos(latitude).
const MilesPerDegreeLat = 69.0

// Point is a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Polygon is an ordered vertex list with an implicit closing edge from the
// last vertex back to the first.
type Polygon []Point

// ValidCoordinate reports whether lat/lng are finite and within range.
// (0,0) is rejected: real permits never geocode to the Gulf of Guinea, so an
// exact null island coordinate means a failed geocode upstream.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return false
	}
	if lat == 0 && lng == 0 {
		return false
	}
	return true
}

// DistanceMiles returns the great-circle distance between two coordinates
// via the Haversine formula. Symmetric and metric, which DBSCAN neighbor
// queries rely on. Non-finite inputs yield NaN; callers gate on
// ValidCoordinate before asking for distances.
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	if math.IsNaN(lat1) || math.IsNaN(lng1) || math.IsNaN(lat2) || math.IsNaN(lng2) ||
		math.IsInf(lat1, 0) || math.IsInf(lng1, 0) || math.IsInf(lat2, 0) || math.IsInf(lng2, 0) {
		return math.NaN()
	}

	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// PointInPolygon tests whether a coordinate lies inside the polygon using the
// even-odd ray casting rule. Correct for non-convex polygons. Behavior for a
// point exactly on an edge is undefined; boundary-touching points may resolve
// either way.
func PointInPolygon(lat, lng float64, poly Polygon) bool {
	if len(poly) < 3 {
		return false
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}

	inside := false
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		yi, xi := poly[i].Lat, poly[i].Lng
		yj, xj := poly[j].Lat, poly[j].Lng

		if (yi > lat) != (yj > lat) &&
			lng < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Centroid returns the vertex-average center of the polygon.
func (p Polygon) Centroid() Point {
	if len(p) == 0 {
		return Point{}
	}
	var sumLat, sumLng float64
	for _, v := range p {
		sumLat += v.Lat
		sumLng += v.Lng
	}
	n := float64(len(p))
	return Point{Lat: sumLat / n, Lng: sumLng / n}
}

// Validate rejects polygons that cannot serve as a region filter. This is the
// construction-time check: an empty or degenerate region is fatal configuration,
// not a per-record classification failure.
func (p Polygon) Validate() error {
	if len(p) < 3 {
		return eris.Errorf("geo: region polygon needs at least 3 vertices, got %d", len(p))
	}
	for i, v := range p {
		if math.IsNaN(v.Lat) || math.IsNaN(v.Lng) || math.IsInf(v.Lat, 0) || math.IsInf(v.Lng, 0) {
			return eris.Errorf("geo: region polygon vertex %d is not finite", i)
		}
		if v.Lat < -90 || v.Lat > 90 || v.Lng < -180 || v.Lng > 180 {
			return eris.Errorf("geo: region polygon vertex %d out of range (%f, %f)", i, v.Lat, v.Lng)
		}
	}
	return nil
}
