// Package geo provides the spherical-geometry primitives used by the
// clusterer and the travel oracle: haversine distance, centroids, and
// bounding diameters of point sets.
//
// All math is great-circle on WGS-84 coordinates. Distances are in statute
// miles because route budgets and cluster presets are specified in miles.
package geo

import "math"

// EarthRadiusMiles is the mean radius of Earth in statute miles.
const EarthRadiusMiles = 3958.8

// exactDiameterLimit is the largest point set for which the bounding
// diameter is computed by exhaustive pairwise comparison.
const exactDiameterLimit = 64

// Point is a WGS-84 coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// DistanceMiles returns the great-circle (haversine) distance between two
// points in miles.
func DistanceMiles(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*sinLon*sinLon
	return 2 * EarthRadiusMiles * math.Asin(math.Sqrt(h))
}

// Centroid returns the arithmetic centroid of the points. Adequate for the
// regional scales this planner works at; not meridian-wrap safe.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return Point{Lat: lat / n, Lon: lon / n}
}

// BoundingDiameterMiles returns the maximum pairwise distance within the
// point set. Small sets are measured exactly; larger sets fall back to a
// two-sweep farthest-point approximation, which is exact on most real
// geographic distributions and never overestimates.
func BoundingDiameterMiles(points []Point) float64 {
	n := len(points)
	if n < 2 {
		return 0
	}
	if n <= exactDiameterLimit {
		max := 0.0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if d := DistanceMiles(points[i], points[j]); d > max {
					max = d
				}
			}
		}
		return max
	}

	// Farthest-point sweep: from the centroid find the farthest point a,
	// then the farthest from a, then the farthest from that.
	a := farthestFrom(Centroid(points), points)
	b := farthestFrom(points[a], points)
	c := farthestFrom(points[b], points)

	d1 := DistanceMiles(points[a], points[b])
	d2 := DistanceMiles(points[b], points[c])
	if d2 > d1 {
		return d2
	}
	return d1
}

func farthestFrom(origin Point, points []Point) int {
	best := 0
	bestDist := -1.0
	for i, p := range points {
		if d := DistanceMiles(origin, p); d > bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func radians(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
