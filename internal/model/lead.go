// Package model defines the domain types flowing through the lead pipeline.
package model

import (
	"math"
	"time"
)

// ProjectStage represents where a permit sits in the construction lifecycle.
type ProjectStage string

const (
	StageApplication  ProjectStage = "application"
	StageReview       ProjectStage = "review"
	StageIssued       ProjectStage = "issued"
	StageConstruction ProjectStage = "construction"
	StageOccupancy    ProjectStage = "occupancy"
	StageFinaled      ProjectStage = "finaled"
)

// LandUse classifies the zoning of a permit's parcel.
type LandUse string

const (
	LandUseCommercial  LandUse = "COMMERCIAL"
	LandUseMixed       LandUse = "MIXED"
	LandUseResidential LandUse = "RESIDENTIAL"
	LandUseIndustrial  LandUse = "INDUSTRIAL"
)

// QualityFlags holds the per-record quality predicates evaluated by the
// classifier. Each flag fails closed: missing or malformed data means false.
type QualityFlags struct {
	Geocoded            bool `json:"geocoded"`
	ValueAboveThreshold bool `json:"value_above_threshold"`
	TypeSupported       bool `json:"type_supported"`
	LandUseSupported    bool `json:"land_use_supported"`
	BusinessVerified    bool `json:"business_verified"`
	WithinRegion        bool `json:"within_region"`
	AddressValid        bool `json:"address_valid"`
}

// All reports whether every quality flag passed.
func (f QualityFlags) All() bool {
	return f.Geocoded && f.ValueAboveThreshold && f.TypeSupported &&
		f.LandUseSupported && f.BusinessVerified && f.WithinRegion && f.AddressValid
}

// LeadRecord is the canonical unit flowing through the pipeline. Identity and
// descriptive fields are set by upstream ingestion; derived fields (flags,
// score, cluster id) are recomputed wholesale on every run.
type LeadRecord struct {
	ID         string   `json:"id"`
	SourceIDs  []string `json:"source_ids"`
	DataSource string   `json:"data_source,omitempty"`

	Address           string       `json:"address"`
	NormalizedAddress string       `json:"normalized_address,omitempty"`
	City              string       `json:"city"`
	Applicant         string       `json:"applicant,omitempty"`
	Description       string       `json:"description,omitempty"`
	PermitType        string       `json:"permit_type,omitempty"`
	LandUse           LandUse      `json:"land_use,omitempty"`
	ProjectStage      ProjectStage `json:"project_stage,omitempty"`

	Valuation   float64   `json:"valuation"`
	AppliedDate time.Time `json:"applied_date"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`

	// Supplied by external collaborators; read-only to the pipeline.
	AIConfidence           *float64 `json:"ai_confidence,omitempty"`
	AICategory             string   `json:"ai_category,omitempty"`
	ContractorQualityScore *float64 `json:"contractor_quality_score,omitempty"`
	MLProbabilityScore     *float64 `json:"ml_probability_score,omitempty"`
	EnrichmentVerified     bool     `json:"enrichment_verified,omitempty"`

	// Derived by the pipeline each run.
	QualityFlags         QualityFlags `json:"quality_flags"`
	IsActionable         bool         `json:"is_actionable"`
	IsRecent             bool         `json:"is_recent"`
	RecencyWindowDays    int          `json:"recency_window_days,omitempty"`
	LeadScore            int          `json:"lead_score"`
	HighQualityCandidate bool         `json:"high_quality_candidate"`
	IsHighQuality        bool         `json:"is_high_quality"`
	ClusterID            *int         `json:"cluster_id,omitempty"`
}

// SourceCount returns the number of corroborating sources behind this record.
// A record that never went through a merge counts as one source even when its
// SourceIDs slice was left empty by the ingester.
func (r LeadRecord) SourceCount() int {
	if len(r.SourceIDs) == 0 {
		return 1
	}
	return len(r.SourceIDs)
}

// HasCoordinates reports whether both coordinates are present, finite, and
// within lat/lng range. (0,0) is treated as a failed geocode, not a real
// location.
func (r LeadRecord) HasCoordinates() bool {
	if r.Latitude == nil || r.Longitude == nil {
		return false
	}
	lat, lng := *r.Latitude, *r.Longitude
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
