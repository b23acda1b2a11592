package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/permit-radar/internal/model"
)

func validConfig() *Config {
	return &Config{
		Region: RegionConfig{
			Polygon: [][]float64{{33.3, -97.6}, {33.3, -96.2}, {32.4, -96.2}, {32.4, -97.6}},
		},
		Dedup:   DedupConfig{SimilarityThreshold: 85},
		Quality: QualityConfig{MinValuation: 10000, RecencyDays: 30, MinScoreThreshold: 60},
		Cluster: ClusterConfig{EpsilonMiles: 1.0, MinPoints: 3},
		Hotspot: HotspotConfig{GridSizeMiles: 0.5, BandwidthMiles: 1.0, MinIntensity: 30},
		Store:   StoreConfig{Driver: "sqlite", Path: "test.db"},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no region at all", func(c *Config) { c.Region = RegionConfig{} }},
		{"degenerate inline polygon", func(c *Config) { c.Region.Polygon = [][]float64{{1, 2}, {3, 4}} }},
		{"threshold above 100", func(c *Config) { c.Dedup.SimilarityThreshold = 101 }},
		{"negative threshold", func(c *Config) { c.Dedup.SimilarityThreshold = -1 }},
		{"negative valuation floor", func(c *Config) { c.Quality.MinValuation = -5 }},
		{"min_points zero", func(c *Config) { c.Cluster.MinPoints = 0 }},
		{"epsilon zero", func(c *Config) { c.Cluster.EpsilonMiles = 0 }},
		{"grid size zero", func(c *Config) { c.Hotspot.GridSizeMiles = 0 }},
		{"bandwidth negative", func(c *Config) { c.Hotspot.BandwidthMiles = -1 }},
		{"intensity above 100", func(c *Config) { c.Hotspot.MinIntensity = 150 }},
		{"unknown store driver", func(c *Config) { c.Store.Driver = "oracle" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_RegionFileAlone(t *testing.T) {
	cfg := validConfig()
	cfg.Region = RegionConfig{File: "region.geojson"}
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 85, cfg.Dedup.SimilarityThreshold)
	assert.Equal(t, 10000.0, cfg.Quality.MinValuation)
	assert.Equal(t, 30, cfg.Quality.RecencyDays)
	assert.Equal(t, 60, cfg.Quality.MinScoreThreshold)
	assert.Equal(t, 1.0, cfg.Cluster.EpsilonMiles)
	assert.Equal(t, 3, cfg.Cluster.MinPoints)
	assert.Equal(t, 0.5, cfg.Hotspot.GridSizeMiles)
	assert.Equal(t, 1.0, cfg.Hotspot.BandwidthMiles)
	assert.Equal(t, 30.0, cfg.Hotspot.MinIntensity)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestQualityConfig_StageHelpers(t *testing.T) {
	qc := QualityConfig{
		AllowedStages:  []string{" Application ", "ISSUED"},
		RecencyByStage: map[string]int{"Construction": 120},
	}
	assert.Equal(t, []model.ProjectStage{model.StageApplication, model.StageIssued}, qc.Stages())
	assert.Equal(t, map[model.ProjectStage]int{model.StageConstruction: 120}, qc.StageWindows())

	empty := QualityConfig{}
	assert.Empty(t, empty.Stages())
	assert.Nil(t, empty.StageWindows())
}
