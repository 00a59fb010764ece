package cluster

import (
	"sort"

	"field-route-planner/internal/geo"
	"field-route-planner/internal/models"
)

// Info summarizes a clustered site set for crew-allocation decisions.
type Info struct {
	ClusterCount        int             `json:"cluster_count"`
	TotalSites          int             `json:"total_sites"`
	ClusterSizes        map[int]int     `json:"cluster_sizes"`
	ClusterDiameters    map[int]float64 `json:"cluster_diameters_miles"`
	RecommendedMinCrews int             `json:"recommended_min_crews"`
}

// Describe computes cluster statistics for a clustered site set. The
// recommended minimum is one crew per cluster so no cluster waits idle;
// the sequential planner still copes with fewer.
func Describe(sites []models.Site) Info {
	byCluster := GroupByCluster(sites)

	sizes := make(map[int]int, len(byCluster))
	diameters := make(map[int]float64, len(byCluster))
	total := 0
	for id, members := range byCluster {
		sizes[id] = len(members)
		total += len(members)
		points := make([]geo.Point, len(members))
		for i, s := range members {
			points[i] = geo.Point{Lat: s.Lat, Lon: s.Lon}
		}
		diameters[id] = geo.BoundingDiameterMiles(points)
	}

	return Info{
		ClusterCount:        len(byCluster),
		TotalSites:          total,
		ClusterSizes:        sizes,
		ClusterDiameters:    diameters,
		RecommendedMinCrews: len(byCluster),
	}
}

// SizesDescending returns cluster ids ordered by size, largest first, ties
// by smaller id. This is the sequential planner's assignment priority.
func SizesDescending(sizes map[int]int) []int {
	ids := make([]int, 0, len(sizes))
	for id := range sizes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if sizes[ids[i]] != sizes[ids[j]] {
			return sizes[ids[i]] > sizes[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
