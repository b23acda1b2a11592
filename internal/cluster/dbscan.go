// Package cluster derives the spatial views over a scored lead set: DBSCAN
// density clusters and kernel-density hotspots. Both operate only on geocoded
// records and leave their input immutable.
package cluster

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/permit-radar/internal/geo"
	"github.com/sells-group/permit-radar/internal/model"
)

// Defaults for the DBSCAN parameters.
const (
	DefaultEpsilonMiles = 1.0
	DefaultMinPoints    = 3
)

// maxDensity is the density reported for a cluster whose members are all
// coincident (radius zero).
const maxDensity = math.MaxFloat64

// Params controls the DBSCAN pass.
type Params struct {
	EpsilonMiles float64
	MinPoints    int
}

// noCluster marks an arena slot not yet assigned to any cluster.
const noCluster = -1

// point is one geocoded record projected into the clustering arena. The
// visited/cluster state lives here, parallel to the input, so the input
// records stay untouched.
type point struct {
	recIdx  int
	lat     float64
	lng     float64
	visited bool
	cluster int
}

// Clusters runs DBSCAN over the geocoded subset of records and returns the
// summarized clusters, sorted by average score descending, together with a
// record-id → cluster-id assignment. Non-geocoded records never join or form
// clusters. Cluster membership is independent of input ordering; the numeric
// ids are presentation order only.
func Clusters(records []model.LeadRecord, p Params) ([]model.Cluster, map[string]int) {
	arena := buildArena(records)
	if len(arena) == 0 {
		return nil, nil
	}

	clusterCount := 0
	for i := range arena {
		if arena[i].visited {
			continue
		}
		arena[i].visited = true

		neighbors := neighborhood(arena, i, p.EpsilonMiles)
		if len(neighbors) < p.MinPoints {
			continue // noise for now; may still be absorbed as a border point
		}

		expandCluster(arena, i, neighbors, clusterCount, p)
		clusterCount++
	}

	clusters := summarize(records, arena, clusterCount)

	// Rank for presentation, then renumber so lead cluster ids match.
	sort.SliceStable(clusters, func(a, b int) bool {
		return clusters[a].AverageScore > clusters[b].AverageScore
	})
	assignment := make(map[string]int)
	for i := range clusters {
		clusters[i].ID = i + 1
		for _, id := range clusters[i].MemberIDs {
			assignment[id] = clusters[i].ID
		}
	}

	zap.L().Debug("cluster: dbscan complete",
		zap.Int("points", len(arena)),
		zap.Int("clusters", len(clusters)),
	)
	return clusters, assignment
}

func buildArena(records []model.LeadRecord) []point {
	arena := make([]point, 0, len(records))
	for i, rec := range records {
		if !rec.HasCoordinates() {
			continue
		}
		arena = append(arena, point{
			recIdx:  i,
			lat:     *rec.Latitude,
			lng:     *rec.Longitude,
			cluster: noCluster,
		})
	}
	return arena
}

// neighborhood returns the arena indexes within epsilon of point i, including
// i itself.
func neighborhood(arena []point, i int, epsilon float64) []int {
	var out []int
	for j := range arena {
		if geo.DistanceMiles(arena[i].lat, arena[i].lng, arena[j].lat, arena[j].lng) <= epsilon {
			out = append(out, j)
		}
	}
	return out
}

// expandCluster grows cluster id from core point i using the standard DBSCAN
// expansion: border points join the cluster, and neighbors that are
// themselves core points contribute their own neighborhoods to the queue.
func expandCluster(arena []point, i int, neighbors []int, id int, p Params) {
	arena[i].cluster = id

	queue := append([]int(nil), neighbors...)
	for qi := 0; qi < len(queue); qi++ {
		j := queue[qi]

		if !arena[j].visited {
			arena[j].visited = true
			jNeighbors := neighborhood(arena, j, p.EpsilonMiles)
			if len(jNeighbors) >= p.MinPoints {
				queue = append(queue, jNeighbors...)
			}
		}

		if arena[j].cluster == noCluster {
			arena[j].cluster = id
		}
	}
}

// summarize computes the per-cluster aggregates from the finished arena.
func summarize(records []model.LeadRecord, arena []point, clusterCount int) []model.Cluster {
	if clusterCount == 0 {
		return nil
	}

	type agg struct {
		members []int // arena indexes
	}
	groups := make([]agg, clusterCount)
	for ai := range arena {
		if c := arena[ai].cluster; c != noCluster {
			groups[c].members = append(groups[c].members, ai)
		}
	}

	clusters := make([]model.Cluster, 0, clusterCount)
	for _, g := range groups {
		if len(g.members) == 0 {
			continue
		}

		var sumLat, sumLng, sumScore, sumValuation float64
		categories := make(map[string]int)
		memberIDs := make([]string, 0, len(g.members))

		for _, ai := range g.members {
			rec := records[arena[ai].recIdx]
			sumLat += arena[ai].lat
			sumLng += arena[ai].lng
			sumScore += float64(rec.LeadScore)
			sumValuation += rec.Valuation
			memberIDs = append(memberIDs, rec.ID)
			if rec.AICategory != "" {
				categories[rec.AICategory]++
			}
		}

		n := float64(len(g.members))
		centroidLat := sumLat / n
		centroidLng := sumLng / n

		var radius float64
		for _, ai := range g.members {
			d := geo.DistanceMiles(centroidLat, centroidLng, arena[ai].lat, arena[ai].lng)
			if d > radius {
				radius = d
			}
		}

		density := maxDensity
		if radius > 0 {
			density = n / (math.Pi * radius * radius)
		}

		sort.Strings(memberIDs)
		clusters = append(clusters, model.Cluster{
			CentroidLat:    centroidLat,
			CentroidLng:    centroidLng,
			MemberIDs:      memberIDs,
			RadiusMiles:    radius,
			Density:        density,
			AverageScore:   sumScore / n,
			TotalValuation: sumValuation,
			TopCategories:  topCategories(categories, 3),
		})
	}
	return clusters
}

// topCategories returns up to limit categories ranked by frequency, with
// alphabetical tie-break for determinism.
func topCategories(counts map[string]int, limit int) []string {
	if len(counts) == 0 {
		return nil
	}
	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(a, b int) bool {
		if counts[cats[a]] != counts[cats[b]] {
			return counts[cats[a]] > counts[cats[b]]
		}
		return cats[a] < cats[b]
	})
	if len(cats) > limit {
		cats = cats[:limit]
	}
	return cats
}
