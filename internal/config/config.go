// Package config loads and validates the application configuration.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/permit-radar/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Region  RegionConfig  `yaml:"region" mapstructure:"region"`
	Dedup   DedupConfig   `yaml:"dedup" mapstructure:"dedup"`
	Quality QualityConfig `yaml:"quality" mapstructure:"quality"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Cluster ClusterConfig `yaml:"cluster" mapstructure:"cluster"`
	Hotspot HotspotConfig `yaml:"hotspot" mapstructure:"hotspot"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RegionConfig supplies the target-region polygon, either inline as
// [lat, lng] pairs or as a file path (.geojson/.json/.shp/.yaml).
type RegionConfig struct {
	Polygon [][]float64 `yaml:"polygon" mapstructure:"polygon"`
	File    string      `yaml:"file" mapstructure:"file"`
}

// DedupConfig configures the deduplication resolver.
type DedupConfig struct {
	SimilarityThreshold int `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// QualityConfig configures the quality classifier.
type QualityConfig struct {
	MinValuation      float64        `yaml:"min_valuation" mapstructure:"min_valuation"`
	SupportedTypes    []string       `yaml:"supported_types" mapstructure:"supported_types"`
	AllowedStages     []string       `yaml:"allowed_stages" mapstructure:"allowed_stages"`
	RecencyDays       int            `yaml:"recency_days" mapstructure:"recency_days"`
	RecencyByStage    map[string]int `yaml:"recency_days_by_stage" mapstructure:"recency_days_by_stage"`
	MinScoreThreshold int            `yaml:"min_score_threshold" mapstructure:"min_score_threshold"`
}

// ScoringConfig holds the composite-score factor caps.
type ScoringConfig struct {
	Valuation   float64 `yaml:"valuation" mapstructure:"valuation"`
	Confidence  float64 `yaml:"confidence" mapstructure:"confidence"`
	Recency     float64 `yaml:"recency" mapstructure:"recency"`
	Enrichment  float64 `yaml:"enrichment" mapstructure:"enrichment"`
	Contractor  float64 `yaml:"contractor" mapstructure:"contractor"`
	Probability float64 `yaml:"probability" mapstructure:"probability"`
}

// ClusterConfig configures the DBSCAN pass.
type ClusterConfig struct {
	EpsilonMiles float64 `yaml:"epsilon_miles" mapstructure:"epsilon_miles"`
	MinPoints    int     `yaml:"min_points" mapstructure:"min_points"`
}

// HotspotConfig configures the kernel-density pass.
type HotspotConfig struct {
	GridSizeMiles  float64 `yaml:"grid_size_miles" mapstructure:"grid_size_miles"`
	BandwidthMiles float64 `yaml:"bandwidth_miles" mapstructure:"bandwidth_miles"`
	MinIntensity   float64 `yaml:"min_intensity" mapstructure:"min_intensity"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PERMIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "permit-radar.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("dedup.similarity_threshold", 85)
	v.SetDefault("quality.min_valuation", 10000)
	v.SetDefault("quality.recency_days", 30)
	v.SetDefault("quality.min_score_threshold", 60)
	v.SetDefault("scoring.valuation", 30)
	v.SetDefault("scoring.confidence", 30)
	v.SetDefault("scoring.recency", 10)
	v.SetDefault("scoring.enrichment", 5)
	v.SetDefault("scoring.contractor", 15)
	v.SetDefault("scoring.probability", 10)
	v.SetDefault("cluster.epsilon_miles", 1.0)
	v.SetDefault("cluster.min_points", 3)
	v.SetDefault("hotspot.grid_size_miles", 0.5)
	v.SetDefault("hotspot.bandwidth_miles", 1.0)
	v.SetDefault("hotspot.min_intensity", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate rejects malformed configuration. Per the pipeline's error
// contract this is the only fatal path: bad records degrade, bad
// configuration refuses to construct.
func (c *Config) Validate() error {
	if len(c.Region.Polygon) == 0 && c.Region.File == "" {
		return eris.New("config: region polygon is required (region.polygon or region.file)")
	}
	if len(c.Region.Polygon) > 0 && len(c.Region.Polygon) < 3 {
		return eris.Errorf("config: region polygon needs at least 3 vertices, got %d", len(c.Region.Polygon))
	}
	if c.Dedup.SimilarityThreshold < 0 || c.Dedup.SimilarityThreshold > 100 {
		return eris.Errorf("config: dedup.similarity_threshold must be 0..100, got %d", c.Dedup.SimilarityThreshold)
	}
	if c.Quality.MinValuation < 0 {
		return eris.Errorf("config: quality.min_valuation must be non-negative, got %f", c.Quality.MinValuation)
	}
	if c.Cluster.MinPoints < 1 {
		return eris.Errorf("config: cluster.min_points must be at least 1, got %d", c.Cluster.MinPoints)
	}
	if c.Cluster.EpsilonMiles <= 0 {
		return eris.Errorf("config: cluster.epsilon_miles must be positive, got %f", c.Cluster.EpsilonMiles)
	}
	if c.Hotspot.GridSizeMiles <= 0 {
		return eris.Errorf("config: hotspot.grid_size_miles must be positive, got %f", c.Hotspot.GridSizeMiles)
	}
	if c.Hotspot.BandwidthMiles <= 0 {
		return eris.Errorf("config: hotspot.bandwidth_miles must be positive, got %f", c.Hotspot.BandwidthMiles)
	}
	if c.Hotspot.MinIntensity < 0 || c.Hotspot.MinIntensity > 100 {
		return eris.Errorf("config: hotspot.min_intensity must be 0..100, got %f", c.Hotspot.MinIntensity)
	}
	switch c.Store.Driver {
	case "", "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// AllowedStages converts the configured stage names to their typed form.
func (c *QualityConfig) Stages() []model.ProjectStage {
	stages := make([]model.ProjectStage, 0, len(c.AllowedStages))
	for _, s := range c.AllowedStages {
		stages = append(stages, model.ProjectStage(strings.ToLower(strings.TrimSpace(s))))
	}
	return stages
}

// StageWindows converts the configured per-stage recency windows to their
// typed form.
func (c *QualityConfig) StageWindows() map[model.ProjectStage]int {
	if len(c.RecencyByStage) == 0 {
		return nil
	}
	out := make(map[model.ProjectStage]int, len(c.RecencyByStage))
	for stage, days := range c.RecencyByStage {
		out[model.ProjectStage(strings.ToLower(strings.TrimSpace(stage)))] = days
	}
	return out
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
