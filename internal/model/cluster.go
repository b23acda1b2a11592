package model

// Cluster is a density-based grouping of geocoded leads, recomputed wholesale
// on every pipeline run. It is a derived view, never persisted standalone.
type Cluster struct {
	ID             int      `json:"id"`
	CentroidLat    float64  `json:"centroid_lat"`
	CentroidLng    float64  `json:"centroid_lng"`
	MemberIDs      []string `json:"member_ids"`
	RadiusMiles    float64  `json:"radius_miles"`
	Density        float64  `json:"density"`
	AverageScore   float64  `json:"average_score"`
	TotalValuation float64  `json:"total_valuation"`
	TopCategories  []string `json:"top_categories,omitempty"`
}

// Hotspot is a grid cell whose kernel-density estimate exceeds the configured
// intensity threshold. Independent of formal cluster membership.
type Hotspot struct {
	ID           int     `json:"id"`
	CenterLat    float64 `json:"center_lat"`
	CenterLng    float64 `json:"center_lng"`
	Intensity    float64 `json:"intensity"`
	LeadCount    int     `json:"lead_count"`
	AvgValuation float64 `json:"avg_valuation"`
	RadiusMiles  float64 `json:"radius_miles"`
}
