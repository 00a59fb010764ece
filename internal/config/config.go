// Package config loads planner tuning knobs from an optional config file and
// FRP_* environment variables, with sensible defaults for everything.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config carries the tuning knobs of the planning engine. Request-level
// fields (crews, budgets, dates) live on models.PlanRequest; these are the
// deployment-level settings.
type Config struct {
	// AverageSpeedMPH drives the haversine travel estimator.
	AverageSpeedMPH float64 `mapstructure:"average_speed_mph"`
	// TravelCacheSize bounds the in-memory travel LRU.
	TravelCacheSize int `mapstructure:"travel_cache_size"`
	// TravelCachePath is the sqlite travel cache location. Empty disables
	// the persistent layer.
	TravelCachePath string `mapstructure:"travel_cache_path"`
	// OSRMBaseURL switches travel estimation from haversine to an OSRM
	// table service when set.
	OSRMBaseURL string `mapstructure:"osrm_base_url"`

	// SolverTimeBudget caps the full solver's search per day solved.
	SolverTimeBudget time.Duration `mapstructure:"solver_time_budget"`
	// StallThreshold is the consecutive zero-progress days tolerated before
	// the multi-day loop gives up.
	StallThreshold int `mapstructure:"stall_threshold"`
	// MaxPlanningDays is the hard ceiling on schedule length.
	MaxPlanningDays int `mapstructure:"max_planning_days"`
	// CrewBuffer is how many extra crews the calendar planner may try above
	// its initial estimate.
	CrewBuffer int `mapstructure:"crew_buffer"`
	// EstTravelMinutesPerSite seeds the calendar planner's crew estimate
	// before any real travel times are known.
	EstTravelMinutesPerSite int `mapstructure:"est_travel_minutes_per_site"`
}

// Default returns the built-in configuration.
func Default() Config {
	cfg, _ := Load("")
	return cfg
}

// Load reads configuration from path (optional) layered over defaults and
// FRP_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("average_speed_mph", 45.0)
	v.SetDefault("travel_cache_size", 100_000)
	v.SetDefault("travel_cache_path", "")
	v.SetDefault("osrm_base_url", "")
	v.SetDefault("solver_time_budget", "60s")
	v.SetDefault("stall_threshold", 5)
	v.SetDefault("max_planning_days", 365)
	v.SetDefault("crew_buffer", 5)
	v.SetDefault("est_travel_minutes_per_site", 15)

	v.SetEnvPrefix("FRP")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}
