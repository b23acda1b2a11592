// Package dedupe merges permit records that describe the same physical
// project across heterogeneous sources.
package dedupe

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/permit-radar/internal/address"
	"github.com/sells-group/permit-radar/internal/model"
)

// DefaultSimilarityThreshold is the minimum address similarity (0..100) for
// two records in the same city to be considered duplicates.
const DefaultSimilarityThreshold = 85

// Resolver merges duplicate records. It is a pure function of its input: the
// caller's slice is never mutated.
type Resolver struct {
	threshold int
}

// NewResolver creates a Resolver with the given similarity threshold.
// Out-of-range thresholds are rejected at config validation; this constructor
// only normalizes a zero value to the default.
func NewResolver(threshold int) *Resolver {
	if threshold == 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Resolver{threshold: threshold}
}

// Resolve returns a new record set with duplicates merged. Duplicate pairs
// (similarity ≥ threshold AND same city AND distinct ids) are unioned into
// connected components, so A~B and B~C always land in one merged record even
// when A and C themselves fall under the threshold.
func (r *Resolver) Resolve(records []model.LeadRecord) []model.LeadRecord {
	if len(records) <= 1 {
		return append([]model.LeadRecord(nil), records...)
	}

	// Cache normalized addresses once per record.
	work := make([]model.LeadRecord, len(records))
	copy(work, records)
	for i := range work {
		if work[i].NormalizedAddress == "" {
			work[i].NormalizedAddress = address.Normalize(work[i].Address)
		}
	}

	uf := newUnionFind(len(work))
	for i := 0; i < len(work); i++ {
		for j := i + 1; j < len(work); j++ {
			if r.isDuplicate(work[i], work[j]) {
				uf.union(i, j)
			}
		}
	}

	// Group indexes by component root.
	components := make(map[int][]int)
	for i := range work {
		root := uf.find(i)
		components[root] = append(components[root], i)
	}

	// Deterministic output order regardless of map iteration: components are
	// emitted by their smallest member index.
	roots := make([]int, 0, len(components))
	for root := range components {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(a, b int) bool {
		return components[roots[a]][0] < components[roots[b]][0]
	})

	merged := make([]model.LeadRecord, 0, len(roots))
	for _, root := range roots {
		group := make([]model.LeadRecord, 0, len(components[root]))
		for _, idx := range components[root] {
			group = append(group, work[idx])
		}
		merged = append(merged, mergeGroup(group))
	}

	if dropped := len(records) - len(merged); dropped > 0 {
		zap.L().Debug("dedupe: merged duplicate records",
			zap.Int("input", len(records)),
			zap.Int("output", len(merged)),
			zap.Int("merged_away", dropped),
		)
	}
	return merged
}

func (r *Resolver) isDuplicate(a, b model.LeadRecord) bool {
	if a.ID == b.ID {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(a.City), strings.TrimSpace(b.City)) {
		return false
	}
	return address.Similarity(a.NormalizedAddress, b.NormalizedAddress) >= r.threshold
}

// mergeGroup collapses one connected component into a single record.
// The constituent with the highest valuation wins id and fields; ties break
// on earliest applied date, then lexically smallest id so the result is
// independent of input order.
func mergeGroup(group []model.LeadRecord) model.LeadRecord {
	if len(group) == 1 {
		return group[0]
	}

	ranked := make([]model.LeadRecord, len(group))
	copy(ranked, group)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Valuation != ranked[j].Valuation {
			return ranked[i].Valuation > ranked[j].Valuation
		}
		if !ranked[i].AppliedDate.Equal(ranked[j].AppliedDate) {
			return ranked[i].AppliedDate.Before(ranked[j].AppliedDate)
		}
		return ranked[i].ID < ranked[j].ID
	})

	out := ranked[0]

	// Union of source ids, sorted for determinism.
	sourceSet := make(map[string]bool)
	for _, rec := range ranked {
		if len(rec.SourceIDs) == 0 && rec.ID != "" {
			sourceSet[rec.ID] = true
			continue
		}
		for _, sid := range rec.SourceIDs {
			sourceSet[sid] = true
		}
	}
	out.SourceIDs = make([]string, 0, len(sourceSet))
	for sid := range sourceSet {
		out.SourceIDs = append(out.SourceIDs, sid)
	}
	sort.Strings(out.SourceIDs)

	// Human-readable provenance: distinct sources joined with "+", in rank order.
	var sources []string
	seen := make(map[string]bool)
	for _, rec := range ranked {
		ds := rec.DataSource
		if ds == "" {
			continue
		}
		if !seen[ds] {
			seen[ds] = true
			sources = append(sources, ds)
		}
	}
	out.DataSource = strings.Join(sources, "+")

	// Reconcile optional fields the winner is missing from the next best
	// constituent that has them.
	for _, rec := range ranked[1:] {
		if out.Latitude == nil && rec.Latitude != nil && rec.Longitude != nil {
			out.Latitude, out.Longitude = rec.Latitude, rec.Longitude
		}
		if out.AIConfidence == nil && rec.AIConfidence != nil {
			out.AIConfidence = rec.AIConfidence
			if out.AICategory == "" {
				out.AICategory = rec.AICategory
			}
		}
		if out.ContractorQualityScore == nil && rec.ContractorQualityScore != nil {
			out.ContractorQualityScore = rec.ContractorQualityScore
		}
		if out.MLProbabilityScore == nil && rec.MLProbabilityScore != nil {
			out.MLProbabilityScore = rec.MLProbabilityScore
		}
		if rec.EnrichmentVerified {
			out.EnrichmentVerified = true
		}
	}

	return out
}

// unionFind is a standard disjoint-set with path compression and union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
