// Package cluster partitions sites into geographic groups whose bounding
// diameter stays under a configured cap. Clusters keep multi-day routes
// local: a crew works one cluster per day.
package cluster

import (
	"log"
	"sort"

	"github.com/samber/lo"

	"field-route-planner/internal/geo"
	"field-route-planner/internal/models"
)

// Diameter presets in miles. Arbitrary values are accepted everywhere a
// preset is; these are the recognized names.
const (
	PresetTight  = 50.0
	PresetMedium = 75.0
	PresetNormal = 100.0
	PresetLoose  = 150.0
)

// Presets maps preset names to their diameter caps.
var Presets = map[string]float64{
	"tight":  PresetTight,
	"medium": PresetMedium,
	"normal": PresetNormal,
	"loose":  PresetLoose,
}

type group struct {
	siteIdx []int
	points  []geo.Point
}

func (g *group) centroid() geo.Point {
	return geo.Centroid(g.points)
}

// Assign partitions sites by agglomerative merging and returns a copy of the
// input with ClusterID set on every site. Cluster ids are numbered in
// decreasing cluster-size order; ties break on smaller centroid latitude,
// then longitude. The one-site-per-cluster seed always satisfies the cap, so
// Assign cannot fail.
func Assign(sites []models.Site, maxDiameterMiles float64) []models.Site {
	groups := make([]*group, len(sites))
	for i, s := range sites {
		groups[i] = &group{
			siteIdx: []int{i},
			points:  []geo.Point{{Lat: s.Lat, Lon: s.Lon}},
		}
	}

	// Merge the pair with the smallest merged diameter that still fits,
	// ties broken by smaller centroid distance, until no legal merge remains.
	for len(groups) > 1 {
		bestA, bestB := -1, -1
		bestDiameter := maxDiameterMiles + 1
		bestCentroidDist := 0.0

		for i := 0; i < len(groups); i++ {
			for j := i + 1; j < len(groups); j++ {
				merged := append(append([]geo.Point{}, groups[i].points...), groups[j].points...)
				d := geo.BoundingDiameterMiles(merged)
				if d > maxDiameterMiles {
					continue
				}
				cd := geo.DistanceMiles(groups[i].centroid(), groups[j].centroid())
				if d < bestDiameter || (d == bestDiameter && cd < bestCentroidDist) {
					bestDiameter = d
					bestCentroidDist = cd
					bestA, bestB = i, j
				}
			}
		}

		if bestA < 0 {
			break
		}

		a, b := groups[bestA], groups[bestB]
		a.siteIdx = append(a.siteIdx, b.siteIdx...)
		a.points = append(a.points, b.points...)
		groups = append(groups[:bestB], groups[bestB+1:]...)
	}

	// Stable numbering: larger clusters first, ties by centroid lat then lon.
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].siteIdx) != len(groups[j].siteIdx) {
			return len(groups[i].siteIdx) > len(groups[j].siteIdx)
		}
		ci, cj := groups[i].centroid(), groups[j].centroid()
		if ci.Lat != cj.Lat {
			return ci.Lat < cj.Lat
		}
		return ci.Lon < cj.Lon
	})

	out := make([]models.Site, len(sites))
	copy(out, sites)
	for clusterID, g := range groups {
		id := clusterID
		for _, idx := range g.siteIdx {
			cid := id
			out[idx].ClusterID = &cid
		}
	}

	log.Printf("[CLUSTER] Partitioned %d sites into %d clusters (max diameter %.0f mi)",
		len(sites), len(groups), maxDiameterMiles)
	return out
}

// GroupByCluster maps cluster id to its sites. Sites without a cluster id
// are omitted.
func GroupByCluster(sites []models.Site) map[int][]models.Site {
	withID := lo.Filter(sites, func(s models.Site, _ int) bool { return s.ClusterID != nil })
	return lo.GroupBy(withID, func(s models.Site) int { return *s.ClusterID })
}

// IDs returns the sorted cluster ids present in the site set.
func IDs(sites []models.Site) []int {
	ids := lo.Uniq(lo.FilterMap(sites, func(s models.Site, _ int) (int, bool) {
		if s.ClusterID == nil {
			return 0, false
		}
		return *s.ClusterID, true
	}))
	sort.Ints(ids)
	return ids
}
