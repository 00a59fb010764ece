package travel

import (
	"context"
	"math"

	"field-route-planner/internal/geo"
	"field-route-planner/internal/models"
)

// Matrix is the per-day travel-time table for a fixed set of sites, in whole
// minutes. Built once per solver invocation and released with it.
type Matrix struct {
	Sites  []models.Site
	travel [][]int
}

// Prewarmer is implemented by oracles that can resolve a whole point set in
// bulk, one table request instead of one lookup per pair.
type Prewarmer interface {
	Prewarm(ctx context.Context, points []geo.Point) error
}

// BuildMatrix queries the oracle for every site pair. Bulk-capable oracles
// are prewarmed first so the pair loop runs against their cache. Entries hold
// pure travel minutes; service time is added by RouteMinutes.
func BuildMatrix(ctx context.Context, est Estimator, sites []models.Site) (*Matrix, error) {
	if pw, ok := est.(Prewarmer); ok {
		if err := pw.Prewarm(ctx, SitePoints(sites)); err != nil {
			return nil, err
		}
	}

	n := len(sites)
	travel := make([][]int, n)
	for i := range travel {
		travel[i] = make([]int, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			min, err := est.TravelMinutes(ctx, sitePoint(sites[i]), sitePoint(sites[j]))
			if err != nil {
				return nil, err
			}
			m := int(math.Round(min))
			travel[i][j] = m
			travel[j][i] = m
		}
	}
	return &Matrix{Sites: sites, travel: travel}, nil
}

// Travel returns the driving minutes from site i to site j.
func (m *Matrix) Travel(i, j int) int {
	return m.travel[i][j]
}

// Service returns the on-site service minutes of site i.
func (m *Matrix) Service(i int) int {
	return m.Sites[i].ServiceMinutes
}

// Len returns the number of sites in the matrix.
func (m *Matrix) Len() int {
	return len(m.Sites)
}

// RouteMinutes totals a visit sequence: all service time plus the travel
// between consecutive stops. Routes have no depot, so there is no leading
// or trailing leg.
func (m *Matrix) RouteMinutes(seq []int) (service, travel int) {
	for k, idx := range seq {
		service += m.Sites[idx].ServiceMinutes
		if k > 0 {
			travel += m.travel[seq[k-1]][idx]
		}
	}
	return service, travel
}

func sitePoint(s models.Site) geo.Point {
	return geo.Point{Lat: s.Lat, Lon: s.Lon}
}

// SitePoints extracts the coordinates of a site list.
func SitePoints(sites []models.Site) []geo.Point {
	points := make([]geo.Point, len(sites))
	for i, s := range sites {
		points[i] = sitePoint(s)
	}
	return points
}
