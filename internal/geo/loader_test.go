package geo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPolygon_YAML(t *testing.T) {
	path := writeTemp(t, "region.yaml", `
- [33.3, -97.6]
- [33.3, -96.2]
- [32.4, -96.2]
- [32.4, -97.6]
`)
	poly, err := LoadPolygon(path)
	require.NoError(t, err)
	require.Len(t, poly, 4)
	assert.Equal(t, Point{Lat: 33.3, Lng: -97.6}, poly[0])
}

func TestLoadPolygon_GeoJSONGeometry(t *testing.T) {
	// GeoJSON coordinates are [lng, lat]; the closing vertex is dropped.
	path := writeTemp(t, "region.geojson", `{
		"type": "Polygon",
		"coordinates": [[[-97.6, 33.3], [-96.2, 33.3], [-96.2, 32.4], [-97.6, 32.4], [-97.6, 33.3]]]
	}`)
	poly, err := LoadPolygon(path)
	require.NoError(t, err)
	require.Len(t, poly, 4)
	assert.Equal(t, Point{Lat: 33.3, Lng: -97.6}, poly[0])
	assert.Equal(t, Point{Lat: 32.4, Lng: -97.6}, poly[3])
}

func TestLoadPolygon_GeoJSONFeatureCollection(t *testing.T) {
	path := writeTemp(t, "region.json", `{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"properties": {"name": "target"},
			"geometry": {
				"type": "Polygon",
				"coordinates": [[[-97.6, 33.3], [-96.2, 33.3], [-96.2, 32.4], [-97.6, 33.3]]]
			}
		}]
	}`)
	poly, err := LoadPolygon(path)
	require.NoError(t, err)
	assert.Len(t, poly, 3)
}

func TestLoadPolygon_Errors(t *testing.T) {
	_, err := LoadPolygon("region.txt")
	assert.Error(t, err)

	_, err = LoadPolygon(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	// Two vertices fail polygon validation.
	path := writeTemp(t, "degenerate.yaml", "- [1, 2]\n- [3, 4]\n")
	_, err = LoadPolygon(path)
	assert.Error(t, err)

	// Malformed pair.
	path = writeTemp(t, "badpair.yaml", "- [1, 2, 3]\n- [3, 4]\n- [5, 6]\n")
	_, err = LoadPolygon(path)
	assert.Error(t, err)
}

func TestPolygonFromPairs(t *testing.T) {
	poly, err := PolygonFromPairs([][]float64{{33.3, -97.6}, {33.3, -96.2}, {32.4, -96.2}})
	require.NoError(t, err)
	assert.Len(t, poly, 3)

	_, err = PolygonFromPairs([][]float64{{33.3}})
	assert.Error(t, err)

	_, err = PolygonFromPairs(nil)
	assert.Error(t, err)
}
