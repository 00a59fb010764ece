package planner

import (
	"fmt"
	"log"

	"field-route-planner/internal/config"
	"field-route-planner/internal/database"
	"field-route-planner/internal/travel"
)

// NewFromConfig wires the default travel oracle stack: OSRM when a base URL
// is configured, backed by the sqlite cache when a cache path is configured,
// otherwise the haversine estimator. Close releases the cache database.
func NewFromConfig(cfg config.Config) (planner *Planner, closeFn func() error, err error) {
	closeFn = func() error { return nil }

	if cfg.OSRMBaseURL == "" {
		est := travel.NewHaversineEstimator(cfg.AverageSpeedMPH, cfg.TravelCacheSize)
		return New(est, cfg), closeFn, nil
	}

	var store travel.CacheStore
	if cfg.TravelCachePath != "" {
		db, err := database.New(cfg.TravelCachePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening travel cache: %w", err)
		}
		store = db.TravelCache()
		closeFn = db.Close
	}

	log.Printf("[PLANNER] Using OSRM travel oracle at %s (persistent cache: %v)",
		cfg.OSRMBaseURL, cfg.TravelCachePath != "")
	return New(travel.NewOSRMEstimator(cfg.OSRMBaseURL, store), cfg), closeFn, nil
}
