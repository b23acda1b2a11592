package cluster

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/permit-radar/internal/geo"
	"github.com/sells-group/permit-radar/internal/model"
)

func defaultHotspotParams() HotspotParams {
	return HotspotParams{
		GridSizeMiles:  DefaultGridSizeMiles,
		BandwidthMiles: DefaultBandwidthMiles,
		MinIntensity:   DefaultMinIntensity,
	}
}

// denseDowntown returns n points packed within ~0.2 miles of (32.78, -96.80).
func denseDowntown(n int) []model.LeadRecord {
	records := make([]model.LeadRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, geocoded(
			fmt.Sprintf("d%d", i),
			32.7800+float64(i%5)*0.0005,
			-96.8000+float64(i/5)*0.0005,
			70,
		))
	}
	return records
}

func TestHotspots_DenseAreaDetected(t *testing.T) {
	hotspots := Hotspots(denseDowntown(10), defaultHotspotParams())
	require.NotEmpty(t, hotspots)

	top := hotspots[0]
	assert.Equal(t, 1, top.ID)
	assert.GreaterOrEqual(t, top.Intensity, DefaultMinIntensity)
	assert.LessOrEqual(t, top.Intensity, 100.0)
	assert.Equal(t, 10, top.LeadCount)
	assert.Equal(t, DefaultBandwidthMiles, top.RadiusMiles)
	assert.InDelta(t, 32.78, top.CenterLat, 0.05)
}

func TestHotspots_IsolatedPointNeverHot(t *testing.T) {
	records := denseDowntown(10)
	// One lone permit ~12 miles north, far outside everyone's bandwidth.
	records = append(records, geocoded("lone", 32.9500, -96.8000, 95))

	hotspots := Hotspots(records, defaultHotspotParams())
	require.NotEmpty(t, hotspots, "the dense area must still light up")

	for _, h := range hotspots {
		d := geo.DistanceMiles(h.CenterLat, h.CenterLng, 32.95, -96.80)
		assert.Greater(t, d, 2.0,
			"no hotspot near the isolated point: its diluted intensity is below threshold")
	}
}

func TestHotspots_SinglePointNeverHot(t *testing.T) {
	records := []model.LeadRecord{geocoded("lone", 32.7800, -96.8000, 90)}
	assert.Empty(t, Hotspots(records, defaultHotspotParams()),
		"one permit alone is not a hotspot")
}

func TestHotspots_IsolatedPointInSmallBatch(t *testing.T) {
	// Two neighbors downtown plus one lone permit ~12 miles north. With only
	// three points total, the /point_count normalization alone would leave
	// the lone cell above threshold; the two-contributor gate must not.
	records := []model.LeadRecord{
		geocoded("a", 32.7800, -96.8000, 80),
		geocoded("b", 32.7805, -96.8005, 75),
		geocoded("lone", 32.9500, -96.8000, 95),
	}

	hotspots := Hotspots(records, defaultHotspotParams())
	require.NotEmpty(t, hotspots, "the downtown pair must still light up")

	for _, h := range hotspots {
		d := geo.DistanceMiles(h.CenterLat, h.CenterLng, 32.95, -96.80)
		assert.Greater(t, d, 2.0, "no hotspot around the isolated point")
		assert.GreaterOrEqual(t, h.LeadCount, 2)
	}
}

func TestHotspots_SortedByIntensityDescending(t *testing.T) {
	records := denseDowntown(12)
	hotspots := Hotspots(records, defaultHotspotParams())
	require.NotEmpty(t, hotspots)

	for i := 1; i < len(hotspots); i++ {
		assert.GreaterOrEqual(t, hotspots[i-1].Intensity, hotspots[i].Intensity)
		assert.Equal(t, i+1, hotspots[i].ID)
	}
}

func TestHotspots_AverageValuation(t *testing.T) {
	records := denseDowntown(4)
	for i := range records {
		records[i].Valuation = float64((i + 1) * 100000)
	}
	hotspots := Hotspots(records, defaultHotspotParams())
	require.NotEmpty(t, hotspots)

	// All four points sit inside the bandwidth of the top cell.
	top := hotspots[0]
	if top.LeadCount == 4 {
		assert.InDelta(t, 250000.0, top.AvgValuation, 0.001)
	}
}

func TestHotspots_NoGeocodedPoints(t *testing.T) {
	records := []model.LeadRecord{
		{ID: "a"},
		{ID: "b", Latitude: ptr(0), Longitude: ptr(0)},
	}
	assert.Nil(t, Hotspots(records, defaultHotspotParams()))
}

func TestHotspots_HighThresholdFiltersEverything(t *testing.T) {
	p := defaultHotspotParams()
	p.MinIntensity = 101 // nothing can clear an impossible threshold
	assert.Empty(t, Hotspots(denseDowntown(10), p))
}
