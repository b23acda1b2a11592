// Package scorer computes the composite 0-100 lead score. Each factor is
// clamped to its own cap before summation so no single signal can dominate,
// then the sum is clamped to [0,100].
package scorer

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/permit-radar/internal/model"
)

// valuationFullCredit is the valuation that earns the full valuation weight.
const valuationFullCredit = 1_000_000.0

// multiSourceBonus is added per corroborating source beyond the first.
const multiSourceBonus = 10

// Weights holds the per-factor caps. Each factor contributes at most its
// weight; the defaults sum to 100.
type Weights struct {
	Valuation   float64 `yaml:"valuation" mapstructure:"valuation"`
	Confidence  float64 `yaml:"confidence" mapstructure:"confidence"`
	Recency     float64 `yaml:"recency" mapstructure:"recency"`
	Enrichment  float64 `yaml:"enrichment" mapstructure:"enrichment"`
	Contractor  float64 `yaml:"contractor" mapstructure:"contractor"`
	Probability float64 `yaml:"probability" mapstructure:"probability"`
}

// DefaultWeights returns the standard factor caps.
func DefaultWeights() Weights {
	return Weights{
		Valuation:   30,
		Confidence:  30,
		Recency:     10,
		Enrichment:  5,
		Contractor:  15,
		Probability: 10,
	}
}

// Breakdown holds the individual factor scores and the final composite.
type Breakdown struct {
	Valuation   float64 `json:"valuation"`
	Confidence  float64 `json:"confidence"`
	Recency     float64 `json:"recency"`
	Enrichment  float64 `json:"enrichment"`
	Contractor  float64 `json:"contractor"`
	Probability float64 `json:"probability"`
	SourceBonus float64 `json:"source_bonus"`
	Final       int     `json:"final"`
}

// Scorer computes composite lead scores with a fixed weight set.
type Scorer struct {
	weights Weights
}

// New creates a Scorer. All-zero weights fall back to defaults, matching the
// degenerate-config handling elsewhere in the pipeline.
func New(w Weights) *Scorer {
	if w.Valuation == 0 && w.Confidence == 0 && w.Recency == 0 &&
		w.Enrichment == 0 && w.Contractor == 0 && w.Probability == 0 {
		zap.L().Warn("scorer: all weights are zero, falling back to defaults")
		w = DefaultWeights()
	}
	return &Scorer{weights: w}
}

// Score returns the composite lead score for a record.
func (s *Scorer) Score(rec model.LeadRecord, now time.Time) int {
	return s.ScoreBreakdown(rec, now).Final
}

// ScoreBreakdown returns the composite score together with its factors.
// Missing optional signals contribute their floor (zero), never an error.
func (s *Scorer) ScoreBreakdown(rec model.LeadRecord, now time.Time) Breakdown {
	w := s.weights

	b := Breakdown{
		Valuation:   clamp(rec.Valuation/valuationFullCredit*w.Valuation, 0, w.Valuation),
		Confidence:  clamp(deref(rec.AIConfidence)/100*w.Confidence, 0, w.Confidence),
		Recency:     s.recencyScore(rec, now),
		Contractor:  clamp(deref(rec.ContractorQualityScore)/100*w.Contractor, 0, w.Contractor),
		Probability: clamp(deref(rec.MLProbabilityScore)/100*w.Probability, 0, w.Probability),
	}
	if rec.EnrichmentVerified {
		b.Enrichment = w.Enrichment
	}

	// Multi-source corroboration bonus from the dedup pass.
	b.SourceBonus = float64(multiSourceBonus * (rec.SourceCount() - 1))

	total := b.Valuation + b.Confidence + b.Recency + b.Enrichment +
		b.Contractor + b.Probability + b.SourceBonus
	b.Final = int(clamp(total, 0, 100) + 0.5)
	return b
}

// recencyScore decays linearly from the full recency weight at day zero to
// nothing at the end of the record's recency window. Stale records floor at 0.
func (s *Scorer) recencyScore(rec model.LeadRecord, now time.Time) float64 {
	if rec.AppliedDate.IsZero() {
		return 0
	}
	window := float64(rec.RecencyWindowDays)
	if window <= 0 {
		window = 30
	}

	days := now.Sub(rec.AppliedDate).Hours() / 24
	if days < 0 {
		days = 0
	}
	return clamp((window-days)/window*s.weights.Recency, 0, s.weights.Recency)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
