// Package quality evaluates per-record quality flags and derives
// actionability. Every predicate fails closed: missing or malformed data
// narrows actionability, it never produces an error.
package quality

import (
	"strings"
	"time"

	"github.com/sells-group/permit-radar/internal/geo"
	"github.com/sells-group/permit-radar/internal/model"
)

// Defaults applied when configuration leaves a knob unset.
const (
	DefaultMinValuation      = 10000.0
	DefaultRecencyDays       = 30
	DefaultMinScoreThreshold = 60
)

// placeholders are applicant/address values that mean "nobody filled this in".
var placeholders = map[string]bool{
	"unknown": true,
	"n/a":     true,
	"na":      true,
	"tbd":     true,
	"test":    true,
	"none":    true,
	"null":    true,
	"pending": true,
	"-":       true,
	"owner":   true,
}

// DefaultSupportedTypes is the permit-type allow-list used when config
// supplies none.
var DefaultSupportedTypes = []string{
	"new construction",
	"commercial remodel",
	"tenant improvement",
	"addition",
	"shell building",
	"certificate of occupancy",
}

// DefaultAllowedStages is the project-stage allow-list used when config
// supplies none.
var DefaultAllowedStages = []model.ProjectStage{
	model.StageApplication,
	model.StageReview,
	model.StageIssued,
	model.StageConstruction,
	model.StageOccupancy,
}

// DefaultRecencyByStage maps stages to their recency windows in days.
// Later stages stay interesting longer: a project under construction is
// still sellable months after the permit date.
var DefaultRecencyByStage = map[model.ProjectStage]int{
	model.StageApplication:  30,
	model.StageReview:       30,
	model.StageIssued:       60,
	model.StageConstruction: 120,
	model.StageOccupancy:    45,
}

// Config holds the classifier's externally supplied thresholds.
type Config struct {
	MinValuation      float64
	SupportedTypes    []string
	AllowedStages     []model.ProjectStage
	RecencyDays       int
	RecencyByStage    map[model.ProjectStage]int
	MinScoreThreshold int
	Region            geo.Polygon
}

// Classifier evaluates quality flags against a fixed configuration.
type Classifier struct {
	minValuation      float64
	supportedTypes    map[string]bool
	allowedStages     map[model.ProjectStage]bool
	recencyDays       int
	recencyByStage    map[model.ProjectStage]int
	minScoreThreshold int
	region            geo.Polygon
}

// New creates a Classifier, filling unset config fields with defaults.
// Region validity is the pipeline constructor's concern; an empty region
// here simply fails the within_region flag for every record.
func New(cfg Config) *Classifier {
	c := &Classifier{
		minValuation:      cfg.MinValuation,
		supportedTypes:    make(map[string]bool),
		allowedStages:     make(map[model.ProjectStage]bool),
		recencyDays:       cfg.RecencyDays,
		recencyByStage:    cfg.RecencyByStage,
		minScoreThreshold: cfg.MinScoreThreshold,
		region:            cfg.Region,
	}
	if c.minValuation <= 0 {
		c.minValuation = DefaultMinValuation
	}
	if c.recencyDays <= 0 {
		c.recencyDays = DefaultRecencyDays
	}
	if c.recencyByStage == nil {
		c.recencyByStage = DefaultRecencyByStage
	}
	if c.minScoreThreshold <= 0 {
		c.minScoreThreshold = DefaultMinScoreThreshold
	}

	types := cfg.SupportedTypes
	if len(types) == 0 {
		types = DefaultSupportedTypes
	}
	for _, pt := range types {
		c.supportedTypes[strings.ToLower(strings.TrimSpace(pt))] = true
	}

	stages := cfg.AllowedStages
	if len(stages) == 0 {
		stages = DefaultAllowedStages
	}
	for _, st := range stages {
		c.allowedStages[st] = true
	}

	return c
}

// Classify evaluates all seven quality flags plus the recency window and
// writes the derived fields onto rec. Runs before scoring; the score-dependent
// fields are derived later by Reclassify.
func (c *Classifier) Classify(rec *model.LeadRecord, now time.Time) {
	flags := model.QualityFlags{
		Geocoded:            c.geocoded(rec),
		ValueAboveThreshold: rec.Valuation >= c.minValuation,
		TypeSupported:       c.supportedTypes[strings.ToLower(strings.TrimSpace(rec.PermitType))],
		LandUseSupported:    rec.LandUse == model.LandUseCommercial || rec.LandUse == model.LandUseMixed,
		BusinessVerified:    validIdentity(rec.Applicant),
		AddressValid:        validIdentity(rec.Address),
	}
	flags.WithinRegion = flags.Geocoded && geo.PointInPolygon(*rec.Latitude, *rec.Longitude, c.region)

	rec.QualityFlags = flags
	rec.IsActionable = flags.All() && c.allowedStages[rec.ProjectStage]
	rec.RecencyWindowDays = c.recencyWindow(rec.ProjectStage)
	rec.IsRecent = c.isRecent(rec, now)

	// Stale from a previous run until the scorer repopulates them.
	rec.HighQualityCandidate = false
	rec.IsHighQuality = false
}

// Reclassify derives the score-dependent quality fields. Must run after the
// composite scorer has populated LeadScore.
func (c *Classifier) Reclassify(rec *model.LeadRecord) {
	rec.HighQualityCandidate = rec.IsActionable && rec.LeadScore >= c.minScoreThreshold
	rec.IsHighQuality = rec.HighQualityCandidate && rec.IsRecent
}

func (c *Classifier) geocoded(rec *model.LeadRecord) bool {
	return rec.HasCoordinates() && geo.ValidCoordinate(*rec.Latitude, *rec.Longitude)
}

func (c *Classifier) recencyWindow(stage model.ProjectStage) int {
	if days, ok := c.recencyByStage[stage]; ok && days > 0 {
		return days
	}
	return c.recencyDays
}

func (c *Classifier) isRecent(rec *model.LeadRecord, now time.Time) bool {
	if rec.AppliedDate.IsZero() || rec.AppliedDate.After(now) {
		return false
	}
	days := int(now.Sub(rec.AppliedDate).Hours() / 24)
	return days <= rec.RecencyWindowDays
}

// validIdentity checks an applicant or address field for emptiness, length,
// and known placeholder strings.
func validIdentity(s string) bool {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 3 {
		return false
	}
	return !placeholders[strings.ToLower(trimmed)]
}
