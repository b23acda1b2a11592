// Package pipeline orchestrates the batch lead-refinement workflow:
// normalize → dedupe → classify → score → re-classify → cluster + hotspot.
// A run is a pure transformation over an owned snapshot of records; derived
// fields are recomputed wholesale, never incrementally patched.
package pipeline

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/permit-radar/internal/address"
	"github.com/sells-group/permit-radar/internal/cluster"
	"github.com/sells-group/permit-radar/internal/config"
	"github.com/sells-group/permit-radar/internal/dedupe"
	"github.com/sells-group/permit-radar/internal/geo"
	"github.com/sells-group/permit-radar/internal/model"
	"github.com/sells-group/permit-radar/internal/quality"
	"github.com/sells-group/permit-radar/internal/scorer"
)

// Pipeline runs the lead-refinement batch. Construction validates all
// configuration; a constructed Pipeline never fails mid-run on record data.
type Pipeline struct {
	resolver   *dedupe.Resolver
	classifier *quality.Classifier
	scorer     *scorer.Scorer
	clusterP   cluster.Params
	hotspotP   cluster.HotspotParams

	// now is swappable for tests.
	now func() time.Time
}

// New constructs a Pipeline from validated configuration, resolving the
// region polygon from inline pairs or a region file.
func New(cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		region geo.Polygon
		err    error
	)
	if len(cfg.Region.Polygon) > 0 {
		region, err = geo.PolygonFromPairs(cfg.Region.Polygon)
	} else {
		region, err = geo.LoadPolygon(cfg.Region.File)
	}
	if err != nil {
		return nil, err
	}

	classifier := quality.New(quality.Config{
		MinValuation:      cfg.Quality.MinValuation,
		SupportedTypes:    cfg.Quality.SupportedTypes,
		AllowedStages:     cfg.Quality.Stages(),
		RecencyDays:       cfg.Quality.RecencyDays,
		RecencyByStage:    cfg.Quality.StageWindows(),
		MinScoreThreshold: cfg.Quality.MinScoreThreshold,
		Region:            region,
	})

	return &Pipeline{
		resolver:   dedupe.NewResolver(cfg.Dedup.SimilarityThreshold),
		classifier: classifier,
		scorer: scorer.New(scorer.Weights{
			Valuation:   cfg.Scoring.Valuation,
			Confidence:  cfg.Scoring.Confidence,
			Recency:     cfg.Scoring.Recency,
			Enrichment:  cfg.Scoring.Enrichment,
			Contractor:  cfg.Scoring.Contractor,
			Probability: cfg.Scoring.Probability,
		}),
		clusterP: cluster.Params{
			EpsilonMiles: cfg.Cluster.EpsilonMiles,
			MinPoints:    cfg.Cluster.MinPoints,
		},
		hotspotP: cluster.HotspotParams{
			GridSizeMiles:  cfg.Hotspot.GridSizeMiles,
			BandwidthMiles: cfg.Hotspot.BandwidthMiles,
			MinIntensity:   cfg.Hotspot.MinIntensity,
		},
		now: time.Now,
	}, nil
}

// Run executes the full batch over an owned snapshot of records and returns
// the ranked, deduplicated, clustered result. The input slice is not mutated.
func (p *Pipeline) Run(ctx context.Context, records []model.LeadRecord) (*model.RunResult, error) {
	log := zap.L().With(zap.Int("input_records", len(records)))
	log.Info("pipeline: starting run")
	start := p.now()

	// Normalize addresses up front so the resolver and output agree.
	leads := make([]model.LeadRecord, len(records))
	copy(leads, records)
	for i := range leads {
		leads[i].NormalizedAddress = address.Normalize(leads[i].Address)
	}

	leads = p.resolver.Resolve(leads)

	now := p.now()
	for i := range leads {
		p.classifier.Classify(&leads[i], now)
	}
	for i := range leads {
		leads[i].LeadScore = p.scorer.Score(leads[i], now)
		p.classifier.Reclassify(&leads[i])
	}

	// Cluster and hotspot passes are independent reads of the scored set.
	var (
		clusters   []model.Cluster
		assignment map[string]int
		hotspots   []model.Hotspot
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		clusters, assignment = cluster.Clusters(leads, p.clusterP)
		return nil
	})
	g.Go(func() error {
		hotspots = cluster.Hotspots(leads, p.hotspotP)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range leads {
		if id, ok := assignment[leads[i].ID]; ok {
			cid := id
			leads[i].ClusterID = &cid
		} else {
			leads[i].ClusterID = nil
		}
	}

	rankLeads(leads)

	result := &model.RunResult{
		Summary:  summarize(len(records), leads, clusters, hotspots),
		Leads:    leads,
		Clusters: clusters,
		Hotspots: hotspots,
	}

	log.Info("pipeline: run complete",
		zap.Int("merged_records", result.Summary.MergedRecords),
		zap.Int("actionable", result.Summary.Actionable),
		zap.Int("clusters", len(clusters)),
		zap.Int("hotspots", len(hotspots)),
		zap.Duration("elapsed", p.now().Sub(start)),
	)
	return result, nil
}

// rankLeads orders the output for presentation: score descending, then
// valuation descending, then id so the ordering is total and reproducible.
func rankLeads(leads []model.LeadRecord) {
	sort.SliceStable(leads, func(a, b int) bool {
		if leads[a].LeadScore != leads[b].LeadScore {
			return leads[a].LeadScore > leads[b].LeadScore
		}
		if leads[a].Valuation != leads[b].Valuation {
			return leads[a].Valuation > leads[b].Valuation
		}
		return leads[a].ID < leads[b].ID
	})
}

func summarize(input int, leads []model.LeadRecord, clusters []model.Cluster, hotspots []model.Hotspot) model.RunSummary {
	s := model.RunSummary{
		InputRecords:  input,
		MergedRecords: len(leads),
		Clusters:      len(clusters),
		Hotspots:      len(hotspots),
	}
	for _, l := range leads {
		if l.IsActionable {
			s.Actionable++
		}
		if l.IsHighQuality {
			s.HighQuality++
		}
	}
	return s
}
