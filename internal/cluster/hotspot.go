package cluster

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/permit-radar/internal/geo"
	"github.com/sells-group/permit-radar/internal/model"
)

// Defaults for the kernel-density hotspot pass.
const (
	DefaultGridSizeMiles  = 0.5
	DefaultBandwidthMiles = 1.0
	DefaultMinIntensity   = 30.0
)

// HotspotParams controls the kernel-density estimation.
type HotspotParams struct {
	GridSizeMiles  float64
	BandwidthMiles float64
	MinIntensity   float64
}

// Hotspots estimates a continuous spatial density surface over the geocoded
// records and returns the grid cells whose normalized intensity clears the
// threshold, sorted by intensity descending. Independent of DBSCAN: a dense
// strip a fixed cluster radius would miss still lights up here.
//
// This is an O(cells × points) scan; beyond a few thousand points a bucketed
// spatial index over the points would pay off, but the emitted values are the
// contract, not the scan strategy.
func Hotspots(records []model.LeadRecord, p HotspotParams) []model.Hotspot {
	type pt struct {
		lat, lng  float64
		valuation float64
	}
	var points []pt
	for _, rec := range records {
		if !rec.HasCoordinates() {
			continue
		}
		points = append(points, pt{lat: *rec.Latitude, lng: *rec.Longitude, valuation: rec.Valuation})
	}
	if len(points) == 0 {
		return nil
	}

	minLat, maxLat := points[0].lat, points[0].lat
	minLng, maxLng := points[0].lng, points[0].lng
	for _, q := range points[1:] {
		minLat = math.Min(minLat, q.lat)
		maxLat = math.Max(maxLat, q.lat)
		minLng = math.Min(minLng, q.lng)
		maxLng = math.Max(maxLng, q.lng)
	}

	// Grid steps in degrees; the longitude step widens with latitude.
	latStep := p.GridSizeMiles / geo.MilesPerDegreeLat
	meanLat := (minLat + maxLat) / 2
	lngScale := math.Cos(meanLat * math.Pi / 180)
	if math.Abs(lngScale) < 1e-6 {
		lngScale = 1e-6 // polar bounding boxes degenerate; keep the step finite
	}
	lngStep := p.GridSizeMiles / (geo.MilesPerDegreeLat * math.Abs(lngScale))

	var hotspots []model.Hotspot
	total := float64(len(points))

	for lat := minLat; lat <= maxLat+latStep/2; lat += latStep {
		for lng := minLng; lng <= maxLng+lngStep/2; lng += lngStep {
			var kernelSum, valuationSum float64
			contributing := 0

			for _, q := range points {
				d := geo.DistanceMiles(lat, lng, q.lat, q.lng)
				if d > p.BandwidthMiles {
					continue
				}
				kernelSum += math.Exp(-0.5 * (d / p.BandwidthMiles) * (d / p.BandwidthMiles))
				valuationSum += q.valuation
				contributing++
			}

			// A cell fed by a single permit is never a hotspot, no matter
			// how small the batch makes the /point_count normalization.
			intensity := kernelSum / total * 100
			if contributing < 2 || intensity < p.MinIntensity {
				continue
			}

			hotspots = append(hotspots, model.Hotspot{
				CenterLat:    lat,
				CenterLng:    lng,
				Intensity:    intensity,
				LeadCount:    contributing,
				AvgValuation: valuationSum / float64(contributing),
				RadiusMiles:  p.BandwidthMiles,
			})
		}
	}

	sort.SliceStable(hotspots, func(a, b int) bool {
		return hotspots[a].Intensity > hotspots[b].Intensity
	})
	for i := range hotspots {
		hotspots[i].ID = i + 1
	}

	zap.L().Debug("cluster: hotspot scan complete",
		zap.Int("points", len(points)),
		zap.Int("hotspots", len(hotspots)),
	)
	return hotspots
}
