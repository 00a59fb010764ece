// Package testutil provides deterministic test doubles for the travel oracle.
package testutil

import (
	"context"
	"fmt"
	"math"
	"sync"

	"field-route-planner/internal/geo"
	"field-route-planner/internal/travel"
)

// TravelCall records one oracle lookup.
type TravelCall struct {
	Origin geo.Point
	Dest   geo.Point
}

// MockEstimator is a deterministic travel oracle for tests. By default it
// derives minutes from scaled Euclidean degree distance, so nearby points
// are minutes apart and distant points are hours apart. Specific pairs can
// be overridden.
type MockEstimator struct {
	// MinutesPerDegree converts coordinate distance to travel minutes.
	MinutesPerDegree float64
	// Err, when set, is returned from every lookup.
	Err error

	mu        sync.Mutex
	overrides map[string]float64
	calls     []TravelCall
}

// NewMockEstimator creates a mock with the default scale: one degree of
// separation is about 90 minutes of driving.
func NewMockEstimator() *MockEstimator {
	return &MockEstimator{
		MinutesPerDegree: 90,
		overrides:        make(map[string]float64),
	}
}

func pairLabel(a, b geo.Point) string {
	return fmt.Sprintf("%.5f,%.5f->%.5f,%.5f", a.Lat, a.Lon, b.Lat, b.Lon)
}

// SetMinutes fixes the travel time for a pair, in both directions.
func (m *MockEstimator) SetMinutes(a, b geo.Point, minutes float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[pairLabel(a, b)] = minutes
	m.overrides[pairLabel(b, a)] = minutes
}

// TravelMinutes implements travel.Estimator.
func (m *MockEstimator) TravelMinutes(_ context.Context, a, b geo.Point) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, TravelCall{Origin: a, Dest: b})

	if m.Err != nil {
		return 0, m.Err
	}
	if min, ok := m.overrides[pairLabel(a, b)]; ok {
		return min, nil
	}
	dLat := b.Lat - a.Lat
	dLon := b.Lon - a.Lon
	return math.Sqrt(dLat*dLat+dLon*dLon) * m.MinutesPerDegree, nil
}

// Calls returns a copy of the recorded lookups.
func (m *MockEstimator) Calls() []TravelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TravelCall(nil), m.calls...)
}

// MockCacheStore is an in-memory travel.CacheStore.
type MockCacheStore struct {
	mu      sync.Mutex
	entries map[string]travel.CacheEntry
}

// NewMockCacheStore creates an empty store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{entries: make(map[string]travel.CacheEntry)}
}

// Get implements travel.CacheStore.
func (s *MockCacheStore) Get(_ context.Context, origin, dest geo.Point) (*travel.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[pairLabel(origin, dest)]; ok {
		return &e, nil
	}
	return nil, nil
}

// SetBatch implements travel.CacheStore.
func (s *MockCacheStore) SetBatch(_ context.Context, entries []travel.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[pairLabel(e.Origin, e.Dest)] = e
	}
	return nil
}

// Count returns the number of stored entries.
func (s *MockCacheStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
