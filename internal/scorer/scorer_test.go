package scorer

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/permit-radar/internal/model"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func ptr(f float64) *float64 { return &f }

func scoringRecord() model.LeadRecord {
	conf := 70.0
	return model.LeadRecord{
		ID:                "p1",
		SourceIDs:         []string{"s1"},
		Valuation:         500000,
		AppliedDate:       testNow.AddDate(0, 0, -5),
		RecencyWindowDays: 30,
		AIConfidence:      &conf,
	}
}

func TestScore_KnownValue(t *testing.T) {
	s := New(DefaultWeights())
	b := s.ScoreBreakdown(scoringRecord(), testNow)

	assert.InDelta(t, 15.0, b.Valuation, 0.001)  // 500k / 1M * 30
	assert.InDelta(t, 21.0, b.Confidence, 0.001) // 70 * 0.30
	assert.InDelta(t, 8.333, b.Recency, 0.01)    // (30-5)/30 * 10
	assert.Equal(t, 0.0, b.Enrichment)
	assert.Equal(t, 0.0, b.Contractor)
	assert.Equal(t, 0.0, b.Probability)
	assert.Equal(t, 0.0, b.SourceBonus)
	assert.Equal(t, 44, b.Final)
}

func TestScore_Bounded(t *testing.T) {
	s := New(DefaultWeights())

	extremes := []model.LeadRecord{
		{},
		{Valuation: 1e12, AIConfidence: ptr(1e6), ContractorQualityScore: ptr(1e6), MLProbabilityScore: ptr(1e6), EnrichmentVerified: true, SourceIDs: []string{"a", "b", "c", "d", "e", "f"}, AppliedDate: testNow, RecencyWindowDays: 30},
		{Valuation: -5, AIConfidence: ptr(-100), ContractorQualityScore: ptr(-1), AppliedDate: testNow.AddDate(-5, 0, 0)},
		{AIConfidence: ptr(math.NaN()), Valuation: math.NaN()},
	}
	for i, rec := range extremes {
		score := s.Score(rec, testNow)
		assert.GreaterOrEqual(t, score, 0, "record %d", i)
		assert.LessOrEqual(t, score, 100, "record %d", i)
	}
}

func TestScore_ValuationMonotonic(t *testing.T) {
	s := New(DefaultWeights())

	prev := -1
	for _, v := range []float64{0, 10000, 100000, 500000, 1000000, 5000000, 1e9} {
		rec := scoringRecord()
		rec.Valuation = v
		score := s.Score(rec, testNow)
		assert.GreaterOrEqual(t, score, prev, "valuation %v must not decrease the score", v)
		prev = score
	}
}

func TestScore_ClampPerTerm(t *testing.T) {
	s := New(DefaultWeights())

	// A $50M valuation contributes exactly the valuation cap, not more.
	rec := scoringRecord()
	rec.Valuation = 50_000_000
	rec.AIConfidence = nil
	b := s.ScoreBreakdown(rec, testNow)
	assert.Equal(t, 30.0, b.Valuation)

	// Stale recency floors at zero, it never goes negative.
	rec = scoringRecord()
	rec.AppliedDate = testNow.AddDate(0, 0, -90)
	b = s.ScoreBreakdown(rec, testNow)
	assert.Equal(t, 0.0, b.Recency)
}

func TestScore_OptionalSignals(t *testing.T) {
	s := New(DefaultWeights())

	rec := scoringRecord()
	base := s.Score(rec, testNow)

	rec.ContractorQualityScore = ptr(80)
	rec.MLProbabilityScore = ptr(50)
	rec.EnrichmentVerified = true
	b := s.ScoreBreakdown(rec, testNow)

	assert.InDelta(t, 12.0, b.Contractor, 0.001) // 80 * 0.15
	assert.InDelta(t, 5.0, b.Probability, 0.001) // 50 * 0.10
	assert.Equal(t, 5.0, b.Enrichment)
	assert.Greater(t, b.Final, base)
}

func TestScore_MultiSourceBonus(t *testing.T) {
	s := New(DefaultWeights())

	rec := scoringRecord()
	base := s.Score(rec, testNow)

	rec.SourceIDs = []string{"s1", "s2", "s3"}
	boosted := s.Score(rec, testNow)
	assert.Equal(t, base+20, boosted)

	// The bonus never pushes past 100.
	rec.Valuation = 10_000_000
	rec.AIConfidence = ptr(100)
	rec.EnrichmentVerified = true
	rec.ContractorQualityScore = ptr(100)
	rec.MLProbabilityScore = ptr(100)
	rec.SourceIDs = []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, 100, s.Score(rec, testNow))
}

func TestScore_CustomWeights(t *testing.T) {
	s := New(Weights{Valuation: 50, Confidence: 50})

	rec := scoringRecord()
	rec.Valuation = 2_000_000 // clamped to the 50-point cap
	conf := 50.0
	rec.AIConfidence = &conf
	b := s.ScoreBreakdown(rec, testNow)

	assert.Equal(t, 50.0, b.Valuation)
	assert.Equal(t, 25.0, b.Confidence)
	assert.Equal(t, 0.0, b.Recency, "zero recency weight means zero contribution")
}

func TestNew_ZeroWeightsFallBack(t *testing.T) {
	s := New(Weights{})
	assert.Equal(t, DefaultWeights(), s.weights)
}
