package geo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadPolygon reads a target-region polygon from disk. The format is chosen
// by extension: .geojson/.json (first Polygon or MultiPolygon outer ring),
// .shp (first polygon record, outer ring), or .yaml/.yml (a sequence of
// [lat, lng] pairs). The returned polygon is validated.
func LoadPolygon(path string) (Polygon, error) {
	var (
		poly Polygon
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson", ".json":
		poly, err = loadGeoJSON(path)
	case ".shp":
		poly, err = loadShapefile(path)
	case ".yaml", ".yml":
		poly, err = loadYAML(path)
	default:
		return nil, eris.Errorf("geo: unsupported region file extension %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := poly.Validate(); err != nil {
		return nil, err
	}

	zap.L().Debug("geo: loaded region polygon",
		zap.String("path", path),
		zap.Int("vertices", len(poly)),
	)
	return poly, nil
}

func loadGeoJSON(path string) (Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read region file %s", path)
	}

	// A region file may be a bare geometry, a Feature, or a FeatureCollection.
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err == nil && len(fc.Features) > 0 {
		for _, f := range fc.Features {
			if poly := ringFromGeometry(f.Geometry); poly != nil {
				return poly, nil
			}
		}
		return nil, eris.Errorf("geo: no polygon feature in %s", path)
	}

	var feature geojson.Feature
	if err := json.Unmarshal(data, &feature); err == nil && feature.Geometry != nil {
		if poly := ringFromGeometry(feature.Geometry); poly != nil {
			return poly, nil
		}
	}

	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrapf(err, "geo: parse geojson %s", path)
	}
	if poly := ringFromGeometry(g); poly != nil {
		return poly, nil
	}
	return nil, eris.Errorf("geo: geometry in %s is not a polygon", path)
}

// ringFromGeometry extracts the outer ring of the first polygon in g.
// GeoJSON coordinates are (lng, lat) ordered.
func ringFromGeometry(g geom.T) Polygon {
	var ring *geom.LinearRing
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() > 0 {
			ring = t.LinearRing(0)
		}
	case *geom.MultiPolygon:
		if t.NumPolygons() > 0 && t.Polygon(0).NumLinearRings() > 0 {
			ring = t.Polygon(0).LinearRing(0)
		}
	default:
		return nil
	}
	if ring == nil {
		return nil
	}

	coords := ring.Coords()
	poly := make(Polygon, 0, len(coords))
	for _, c := range coords {
		poly = append(poly, Point{Lat: c.Y(), Lng: c.X()})
	}
	// Drop an explicit closing vertex; the closing edge is implicit.
	if len(poly) > 1 && poly[0] == poly[len(poly)-1] {
		poly = poly[:len(poly)-1]
	}
	return poly
}

func loadShapefile(path string) (Polygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	for reader.Next() {
		_, shape := reader.Shape()
		sp, ok := shape.(*shp.Polygon)
		if !ok || len(sp.Points) == 0 {
			continue
		}

		// Outer ring only: the first part, or all points when unparted.
		end := len(sp.Points)
		if sp.NumParts > 1 {
			end = int(sp.Parts[1])
		}

		poly := make(Polygon, 0, end)
		for _, pt := range sp.Points[:end] {
			poly = append(poly, Point{Lat: pt.Y, Lng: pt.X})
		}
		if len(poly) > 1 && poly[0] == poly[len(poly)-1] {
			poly = poly[:len(poly)-1]
		}
		return poly, nil
	}

	return nil, eris.Errorf("geo: no polygon record in shapefile %s", path)
}

func loadYAML(path string) (Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read region file %s", path)
	}

	var pairs [][]float64
	if err := yaml.Unmarshal(data, &pairs); err != nil {
		return nil, eris.Wrapf(err, "geo: parse region yaml %s", path)
	}

	poly := make(Polygon, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, eris.Errorf("geo: region yaml vertex %d must be a [lat, lng] pair", i)
		}
		poly = append(poly, Point{Lat: pair[0], Lng: pair[1]})
	}
	return poly, nil
}

// PolygonFromPairs builds a polygon from inline configuration, where each
// element is a [lat, lng] pair.
func PolygonFromPairs(pairs [][]float64) (Polygon, error) {
	poly := make(Polygon, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, eris.Errorf("geo: region vertex %d must be a [lat, lng] pair", i)
		}
		poly = append(poly, Point{Lat: pair[0], Lng: pair[1]})
	}
	if err := poly.Validate(); err != nil {
		return nil, err
	}
	return poly, nil
}
