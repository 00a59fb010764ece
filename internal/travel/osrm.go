package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"field-route-planner/internal/geo"
)

// CacheEntry is a persisted travel-time lookup for one ordered pair.
type CacheEntry struct {
	Origin        geo.Point
	Dest          geo.Point
	TravelMinutes float64
}

// CacheStore persists travel times across planning runs. Implementations
// must tolerate concurrent readers; writes may serialize.
type CacheStore interface {
	Get(ctx context.Context, origin, dest geo.Point) (*CacheEntry, error)
	SetBatch(ctx context.Context, entries []CacheEntry) error
}

// maxTableCoordinates is the most coordinates the public OSRM table service
// accepts per request.
const maxTableCoordinates = 80

// osrmEstimator resolves travel times against an OSRM table service, with a
// process LRU in front of an optional persistent store. It satisfies the
// same Estimator contract as the haversine oracle, so the solver cannot tell
// them apart.
type osrmEstimator struct {
	baseURL    string
	httpClient *http.Client
	store      CacheStore
	cache      *lru.Cache[pairKey, float64]
}

// NewOSRMEstimator creates a road-network travel oracle. store may be nil,
// in which case only the in-process cache is used.
func NewOSRMEstimator(baseURL string, store CacheStore) Estimator {
	if baseURL == "" {
		baseURL = "https://router.project-osrm.org"
	}
	cache, _ := lru.New[pairKey, float64](DefaultCacheSize)
	return &osrmEstimator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      store,
		cache:      cache,
	}
}

type osrmTableResponse struct {
	Code      string      `json:"code"`
	Durations [][]float64 `json:"durations"`
}

func (c *osrmEstimator) TravelMinutes(ctx context.Context, a, b geo.Point) (float64, error) {
	key := makePairKey(a, b)
	if key.zero {
		return 0, nil
	}
	if min, ok := c.cache.Get(key); ok {
		return min, nil
	}
	if c.store != nil {
		cached, err := c.store.Get(ctx, a, b)
		if err != nil {
			return 0, err
		}
		if cached != nil {
			c.cache.Add(key, cached.TravelMinutes)
			return cached.TravelMinutes, nil
		}
	}

	log.Printf("[TRAVEL] Cache miss: origin=(%.5f,%.5f) dest=(%.5f,%.5f)", a.Lat, a.Lon, b.Lat, b.Lon)
	durations, err := c.fetchTable(ctx, []geo.Point{a, b})
	if err != nil {
		return 0, err
	}
	min := durations[0][1] / 60.0
	c.remember(ctx, []CacheEntry{{Origin: a, Dest: b, TravelMinutes: min}})
	return min, nil
}

// Prewarm fetches the full table for a point set ahead of matrix building.
// Larger sets are fetched in batches against the coordinate limit.
func (c *osrmEstimator) Prewarm(ctx context.Context, points []geo.Point) error {
	for start := 0; start < len(points); start += maxTableCoordinates {
		end := start + maxTableCoordinates
		if end > len(points) {
			end = len(points)
		}
		batch := points[start:end]

		durations, err := c.fetchTable(ctx, batch)
		if err != nil {
			return err
		}

		entries := make([]CacheEntry, 0, len(batch)*len(batch))
		for i := range batch {
			for j := range batch {
				if i == j {
					continue
				}
				min := durations[i][j] / 60.0
				c.cache.Add(makePairKey(batch[i], batch[j]), min)
				entries = append(entries, CacheEntry{Origin: batch[i], Dest: batch[j], TravelMinutes: min})
			}
		}
		c.remember(ctx, entries)

		// Rate limit between batch requests against the public service.
		if end < len(points) {
			time.Sleep(100 * time.Millisecond)
		}
	}
	return nil
}

func (c *osrmEstimator) remember(ctx context.Context, entries []CacheEntry) {
	if c.store == nil || len(entries) == 0 {
		return
	}
	if err := c.store.SetBatch(ctx, entries); err != nil {
		log.Printf("[TRAVEL] Persisting %d cache entries failed: %v", len(entries), err)
	}
}

func (c *osrmEstimator) fetchTable(ctx context.Context, points []geo.Point) ([][]float64, error) {
	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%.6f,%.6f", p.Lon, p.Lat)
	}
	queryURL := fmt.Sprintf("%s/table/v1/driving/%s?annotations=duration", c.baseURL, strings.Join(coords, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &ErrEstimateFailed{Reason: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[TRAVEL] OSRM request failed: points=%d err=%v", len(points), err)
		return nil, &ErrEstimateFailed{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ErrEstimateFailed{Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))}
	}

	var table osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return nil, &ErrEstimateFailed{Reason: err.Error()}
	}
	if table.Code != "Ok" {
		return nil, &ErrEstimateFailed{Reason: fmt.Sprintf("OSRM error: %s", table.Code)}
	}
	if len(table.Durations) != len(points) {
		return nil, &ErrEstimateFailed{Reason: "truncated durations table"}
	}
	return table.Durations, nil
}
