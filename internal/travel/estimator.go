// Package travel provides the travel-time oracle used by the solver and the
// planners. One estimator serves an entire planning invocation; the solver
// never computes travel any other way.
package travel

import (
	"context"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"field-route-planner/internal/geo"
)

const (
	// DefaultAverageMPH is the assumed average ground speed when travel
	// time is derived from straight-line distance.
	DefaultAverageMPH = 45.0

	// DefaultCacheSize bounds the shared pair cache (unordered pairs).
	DefaultCacheSize = 100_000
)

// Estimator is the travel-time oracle. Implementations must be symmetric
// and safe for concurrent use.
type Estimator interface {
	// TravelMinutes returns the estimated driving time between two points.
	TravelMinutes(ctx context.Context, a, b geo.Point) (float64, error)
}

// ErrEstimateFailed is returned when the oracle cannot produce a travel time.
type ErrEstimateFailed struct {
	Origin geo.Point
	Dest   geo.Point
	Reason string
}

func (e *ErrEstimateFailed) Error() string {
	return fmt.Sprintf("travel estimate failed: %s", e.Reason)
}

// haversineEstimator derives travel time from great-circle distance at a
// constant average speed, memoized in a shared LRU pair cache.
type haversineEstimator struct {
	mph   float64
	cache *lru.Cache[pairKey, float64]
}

// NewHaversineEstimator creates the default straight-line oracle. mph <= 0
// selects DefaultAverageMPH; cacheSize <= 0 selects DefaultCacheSize.
func NewHaversineEstimator(mph float64, cacheSize int) Estimator {
	if mph <= 0 {
		mph = DefaultAverageMPH
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[pairKey, float64](cacheSize)
	return &haversineEstimator{mph: mph, cache: cache}
}

func (h *haversineEstimator) TravelMinutes(_ context.Context, a, b geo.Point) (float64, error) {
	key := makePairKey(a, b)
	if key.zero {
		// Identical (rounded) coordinates: distinct nodes, zero travel.
		return 0, nil
	}
	if min, ok := h.cache.Get(key); ok {
		return min, nil
	}
	min := geo.DistanceMiles(a, b) / h.mph * 60.0
	h.cache.Add(key, min)
	return min, nil
}

// pairKey identifies an unordered coordinate pair at ~1m precision.
type pairKey struct {
	aLat, aLon int64
	bLat, bLon int64
	zero       bool
}

func roundCoord(v float64) int64 {
	return int64(math.Round(v * 100000))
}

func makePairKey(a, b geo.Point) pairKey {
	aLat, aLon := roundCoord(a.Lat), roundCoord(a.Lon)
	bLat, bLon := roundCoord(b.Lat), roundCoord(b.Lon)
	if aLat == bLat && aLon == bLon {
		return pairKey{zero: true}
	}
	// Travel time is symmetric; normalize the pair order.
	if aLat > bLat || (aLat == bLat && aLon > bLon) {
		aLat, bLat = bLat, aLat
		aLon, bLon = bLon, aLon
	}
	return pairKey{aLat: aLat, aLon: aLon, bLat: bLat, bLon: bLon}
}
